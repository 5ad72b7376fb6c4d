package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/codegraph-dev/codegraph/internal/logging"
)

type logsOptions struct {
	file    string
	level   string
	pattern string
	follow  bool
	lines   int
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the codegraphd daemon log",
		Long: `Prints the tail of codegraphd's log file (~/.codegraph/logs/codegraphd.log
by default) and, with --follow, streams new entries as they're written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Explicit log file path (defaults to the daemon log)")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.pattern, "pattern", "", "Only show lines matching this regular expression")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Stream new log entries as they're written")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show from the end of the log")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return err
	}

	viewerCfg := logging.ViewerConfig{
		Level:   opts.level,
		NoColor: noColor,
	}
	if opts.pattern != "" {
		re, err := regexp.Compile(opts.pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
		viewerCfg.Pattern = re
	}

	v := logging.NewViewer(viewerCfg, cmd.OutOrStdout())

	entries, err := v.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	v.Print(entries)

	if !opts.follow {
		return nil
	}

	ctx := cmd.Context()
	stream := make(chan logging.LogEntry)
	errCh := make(chan error, 1)
	go func() {
		errCh <- v.Follow(ctx, path, stream)
	}()

	for {
		select {
		case entry, ok := <-stream:
			if !ok {
				return <-errCh
			}
			v.Print([]logging.LogEntry{entry})
		case <-ctx.Done():
			return nil
		}
	}
}
