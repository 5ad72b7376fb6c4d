package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codegraph-dev/codegraph/internal/output"
	"github.com/codegraph-dev/codegraph/internal/store"
)

type refsOptions struct {
	root   string
	asJSON bool
}

func newRefsCmd() *cobra.Command {
	var opts refsOptions

	cmd := &cobra.Command{
		Use:   "refs <symbol>",
		Short: "Find references to a symbol",
		Long: `Follows the knowledge graph's incoming edges to symbol, falling back to
a text match on the symbol's name when it has no recorded incoming edges.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefs(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", ".", "Project root")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output results as JSON")

	return cmd
}

func runRefs(cmd *cobra.Command, symbol string, opts refsOptions) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts.root)
	if err != nil {
		return err
	}
	defer a.Close()

	refs, err := a.retriever.FindReferences(ctx, a.projectID, symbol)
	if err != nil {
		return fmt.Errorf("find references: %w", err)
	}

	if opts.asJSON {
		chunks := make([]*store.Chunk, 0, len(refs))
		confidences := make(map[*store.Chunk]string, len(refs))
		for _, r := range refs {
			chunks = append(chunks, r.Chunk)
			confidences[r.Chunk] = r.Confidence
		}
		return encodeChunkResultsWithConfidence(cmd, chunks, confidences)
	}

	out := output.New(cmd.OutOrStdout())
	if len(refs) == 0 {
		out.Status("", fmt.Sprintf("No references found for %q", symbol))
		return nil
	}
	out.Statusf("", "Found %d references to %q:", len(refs), symbol)
	out.Newline()
	for i, r := range refs {
		printChunkHit(out, i+1, r.Chunk, 0)
		out.Status("", fmt.Sprintf("   confidence: %s", r.Confidence))
		out.Newline()
	}
	return nil
}
