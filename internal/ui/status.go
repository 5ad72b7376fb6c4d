package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// DependencyHub is one entry in a dashboard's most-depended-upon files list.
type DependencyHub struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ComplexityCandidate is one entry in a dashboard's high-complexity list.
type ComplexityCandidate struct {
	Filename      string `json:"filename"`
	SymbolName    string `json:"symbol_name"`
	Complexity    int    `json:"complexity"`
	LooksUntested bool   `json:"looks_untested"`
}

// Snapshot is a point-in-time view of a project's indexed state, the data
// a dashboard renders.
type Snapshot struct {
	ProjectName       string                `json:"project_name"`
	ChunkCount        int                   `json:"chunk_count"`
	FileCount         int                   `json:"file_count"`
	LanguageBreakdown map[string]int        `json:"language_breakdown"`
	TopDependencies   []DependencyHub       `json:"top_dependencies"`
	HighComplexity    []ComplexityCandidate `json:"high_complexity"`
	ActiveBranch      string                `json:"active_branch"`
	StaleFileCount    int                   `json:"stale_file_count"`
	EmbedderModel     string                `json:"embedder_model"`
}

// StatusRenderer prints a Snapshot to a terminal, in either plain text or
// JSON form.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer builds a StatusRenderer writing to out.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints snap as a human-readable dashboard.
func (r *StatusRenderer) Render(snap Snapshot) error {
	fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status: "+snap.ProjectName))

	fmt.Fprintf(r.out, "  Files:  %d\n", snap.FileCount)
	fmt.Fprintf(r.out, "  Chunks: %d\n", snap.ChunkCount)
	if snap.ActiveBranch != "" {
		fmt.Fprintf(r.out, "  Branch: %s\n", snap.ActiveBranch)
	}
	if snap.StaleFileCount > 0 {
		fmt.Fprintf(r.out, "  Stale:  %s\n", r.styles.Warning.Render(fmt.Sprintf("%d files changed since indexing", snap.StaleFileCount)))
	}
	fmt.Fprintln(r.out)

	if len(snap.LanguageBreakdown) > 0 {
		fmt.Fprintln(r.out, "  Languages:")
		for _, lang := range sortedLanguages(snap.LanguageBreakdown) {
			fmt.Fprintf(r.out, "    %-12s %d\n", lang, snap.LanguageBreakdown[lang])
		}
		fmt.Fprintln(r.out)
	}

	if len(snap.TopDependencies) > 0 {
		fmt.Fprintln(r.out, "  Most depended-upon:")
		for _, d := range snap.TopDependencies {
			fmt.Fprintf(r.out, "    %-40s %d\n", d.Name, d.Count)
		}
		fmt.Fprintln(r.out)
	}

	if len(snap.HighComplexity) > 0 {
		fmt.Fprintln(r.out, "  High complexity:")
		for _, c := range snap.HighComplexity {
			tag := ""
			if c.LooksUntested {
				tag = r.styles.Warning.Render(" (looks untested)")
			}
			fmt.Fprintf(r.out, "    %s:%s complexity=%d%s\n", c.Filename, c.SymbolName, c.Complexity, tag)
		}
		fmt.Fprintln(r.out)
	}

	if snap.EmbedderModel != "" {
		fmt.Fprintf(r.out, "  Embedder: %s\n", snap.EmbedderModel)
	}

	return nil
}

// RenderJSON writes snap as JSON.
func (r *StatusRenderer) RenderJSON(snap Snapshot) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func sortedLanguages(breakdown map[string]int) []string {
	langs := make([]string, 0, len(breakdown))
	for lang := range breakdown {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return breakdown[langs[i]] > breakdown[langs[j]] })
	return langs
}

// FormatBytes formats a byte count in human-readable form.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
