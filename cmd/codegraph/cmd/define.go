package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codegraph-dev/codegraph/internal/output"
	"github.com/codegraph-dev/codegraph/internal/store"
)

type defineOptions struct {
	root     string
	filename string
	line     int
	asJSON   bool
}

func newDefineCmd() *cobra.Command {
	var opts defineOptions

	cmd := &cobra.Command{
		Use:   "define <symbol>",
		Short: "Find where a symbol is defined",
		Long: `Follows the knowledge graph's outgoing edges from --file/--line to locate
symbol's definition, falling back to a project-wide symbol-table lookup
when no edge is recorded at that call site.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefine(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", ".", "Project root")
	cmd.Flags().StringVar(&opts.filename, "file", "", "File the reference occurs in")
	cmd.Flags().IntVar(&opts.line, "line", 0, "Line the reference occurs on")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output results as JSON")

	return cmd
}

func runDefine(cmd *cobra.Command, symbol string, opts defineOptions) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts.root)
	if err != nil {
		return err
	}
	defer a.Close()

	candidates, err := a.retriever.FindDefinition(ctx, a.projectID, opts.filename, opts.line, symbol)
	if err != nil {
		return fmt.Errorf("find definition: %w", err)
	}

	if opts.asJSON {
		chunks := make([]*store.Chunk, 0, len(candidates))
		confidences := make(map[*store.Chunk]string, len(candidates))
		for _, c := range candidates {
			chunks = append(chunks, c.Chunk)
			confidences[c.Chunk] = c.Confidence
		}
		return encodeChunkResultsWithConfidence(cmd, chunks, confidences)
	}

	out := output.New(cmd.OutOrStdout())
	if len(candidates) == 0 {
		out.Status("", fmt.Sprintf("No definition found for %q", symbol))
		return nil
	}
	out.Statusf("", "Found %d candidate definitions for %q:", len(candidates), symbol)
	out.Newline()
	for i, c := range candidates {
		printChunkHit(out, i+1, c.Chunk, 0)
		out.Status("", fmt.Sprintf("   confidence: %s", c.Confidence))
		out.Newline()
	}
	return nil
}
