package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph-dev/codegraph/internal/output"
	"github.com/codegraph-dev/codegraph/internal/search"
	"github.com/codegraph-dev/codegraph/internal/store"
)

type searchOptions struct {
	root    string
	limit   int
	include []string
	exclude []string
	asJSON  bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Long: `Runs a hybrid vector+keyword search over an already-indexed project and
prints the ranked chunks that match query.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", ".", "Project root to search")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "Glob patterns to include (repeatable)")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "Glob patterns to exclude (repeatable)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output results as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts.root)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.retriever.SearchCode(ctx, a.projectID, query, search.SearchOptions{
		Limit:        opts.limit,
		IncludeGlobs: opts.include,
		ExcludeGlobs: opts.exclude,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if opts.asJSON {
		return encodeChunkResults(cmd, chunksFromSearchResults(results))
	}

	out := output.New(cmd.OutOrStdout())
	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results for %q", query))
		return nil
	}

	out.Statusf("", "Found %d results for %q:", len(results), query)
	out.Newline()
	for i, r := range results {
		printChunkHit(out, i+1, r.Chunk, r.Score)
	}
	return nil
}

func chunksFromSearchResults(results []search.SearchResult) []*store.Chunk {
	out := make([]*store.Chunk, 0, len(results))
	for _, r := range results {
		out = append(out, r.Chunk)
	}
	return out
}

func printChunkHit(out *output.Writer, rank int, c *store.Chunk, score float32) {
	location := c.Filename
	if c.StartLine > 0 {
		location = fmt.Sprintf("%s:%d", c.Filename, c.StartLine)
	}
	out.Statusf("", "%d. %s (score: %.3f)", rank, location, score)
	for _, line := range firstLines(c.Content, 3) {
		out.Status("", "   "+line)
	}
	out.Newline()
}

func firstLines(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// chunkJSON is the flat chunk shape printed by --json on search/define/refs.
type chunkJSON struct {
	Filename     string  `json:"filename"`
	StartLine    int     `json:"start_line"`
	EndLine      int     `json:"end_line"`
	SymbolName   string  `json:"symbol_name"`
	Language     string  `json:"language"`
	Content      string  `json:"content"`
	Score        float32 `json:"score,omitempty"`
	Confidence   string  `json:"confidence,omitempty"`
	LastModified string  `json:"last_modified,omitempty"`
}

func toChunkJSON(c *store.Chunk, score float32, confidence string) chunkJSON {
	j := chunkJSON{
		Filename: c.Filename, StartLine: c.StartLine, EndLine: c.EndLine,
		SymbolName: c.SymbolName, Language: c.Language, Content: c.Content,
		Score: score, Confidence: confidence,
	}
	if !c.LastModified.IsZero() {
		j.LastModified = c.LastModified.UTC().Format(time.RFC3339)
	}
	return j
}

func encodeChunkResults(cmd *cobra.Command, chunks []*store.Chunk) error {
	out := make([]chunkJSON, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, toChunkJSON(c, c.Score, ""))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// encodeChunkResultsWithConfidence is used by define/refs, where each chunk
// carries a structural/name_match confidence rather than a vector score.
func encodeChunkResultsWithConfidence(cmd *cobra.Command, chunks []*store.Chunk, confidence map[*store.Chunk]string) error {
	out := make([]chunkJSON, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, toChunkJSON(c, 0, confidence[c]))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
