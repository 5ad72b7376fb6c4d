package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codegraph-dev/codegraph/internal/index"
	"github.com/codegraph-dev/codegraph/internal/output"
)

type indexOptions struct {
	force   bool
	include []string
	exclude []string
	asJSON  bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Scan and index a project",
		Long: `Discovers source files under path (default: the current directory),
parses and embeds them, and links symbols into the knowledge graph.

Re-running index only re-parses files whose content hash has changed;
use --force to re-parse everything regardless.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runIndex(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Re-parse every file, ignoring stored content hashes")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "Glob patterns to include (repeatable)")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "Glob patterns to exclude (repeatable)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output the refresh result as JSON")

	return cmd
}

func runIndex(cmd *cobra.Command, root string, opts indexOptions) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, root)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.indexer.RefreshIndex(ctx, index.RefreshOptions{
		Root:         a.root,
		ForceFull:    opts.force,
		IncludeGlobs: opts.include,
		ExcludeGlobs: opts.exclude,
	})
	if err != nil {
		return fmt.Errorf("refresh index: %w", err)
	}

	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("Indexed %d files, skipped %d unchanged, %d chunks (%dms)",
		result.Indexed, result.Skipped, result.Chunks, result.ElapsedMs)
	for _, fe := range result.Errors {
		out.Warningf("%s: %s (%s)", fe.File, fe.Msg, fe.Kind)
	}
	return nil
}
