package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/codegraph-dev/codegraph/internal/store"
	"github.com/codegraph-dev/codegraph/internal/ui"
)

type statusOptions struct {
	root   string
	asJSON bool
	noTUI  bool
}

func newStatusCmd() *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show a project's index status",
		Long: `Prints a dashboard of a project's indexed state: file and chunk counts,
the per-language breakdown, the most depended-upon files, and chunks
flagged as high-complexity.

On an interactive terminal this runs as a small TUI (press r to refresh,
q to quit); pass --no-tui or pipe the output to get the plain-text form.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runStatus(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output the status as JSON")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Print the plain-text dashboard instead of the interactive TUI")

	return cmd
}

func runStatus(cmd *cobra.Command, root string, opts statusOptions) error {
	ctx := cmd.Context()
	load, closeApp, err := newSnapshotLoader(ctx, root)
	if err != nil {
		return err
	}
	defer closeApp()

	outWriter := cmd.OutOrStdout()
	useTUI := !opts.asJSON && !opts.noTUI && ui.IsTTY(outWriter) && !ui.DetectCI()

	if !useTUI {
		snap, err := load()
		if err != nil {
			return err
		}
		renderer := ui.NewStatusRenderer(outWriter, noColor || ui.DetectNoColor())
		if opts.asJSON {
			return renderer.RenderJSON(snap)
		}
		return renderer.Render(snap)
	}

	model := ui.NewDashboardModel(load, noColor || ui.DetectNoColor())
	p := tea.NewProgram(model)
	_, err = p.Run()
	return err
}

// newSnapshotLoader opens root's project data once and returns a LoadFunc
// that re-derives a fresh ui.Snapshot from it on every call, so a TUI's
// 'r' refresh sees newly indexed data without reopening the store.
func newSnapshotLoader(ctx context.Context, root string) (ui.LoadFunc, func(), error) {
	a, err := openApp(ctx, root)
	if err != nil {
		return nil, func() {}, err
	}

	load := func() (ui.Snapshot, error) {
		stats, err := a.retriever.GetStats(ctx, a.projectID)
		if err != nil {
			return ui.Snapshot{}, fmt.Errorf("get stats: %w", err)
		}
		return toSnapshot(filepath.Base(a.root), stats, a.embedder.ModelName()), nil
	}
	return load, a.Close, nil
}

func toSnapshot(projectName string, s *store.Stats, embedderModel string) ui.Snapshot {
	deps := make([]ui.DependencyHub, 0, len(s.TopDependencies))
	for _, d := range s.TopDependencies {
		deps = append(deps, ui.DependencyHub{Name: d.Name, Count: d.Count})
	}
	complex := make([]ui.ComplexityCandidate, 0, len(s.HighComplexity))
	for _, c := range s.HighComplexity {
		complex = append(complex, ui.ComplexityCandidate{
			Filename: c.Filename, SymbolName: c.SymbolName,
			Complexity: c.Complexity, LooksUntested: c.LooksUntested,
		})
	}
	return ui.Snapshot{
		ProjectName:       projectName,
		ChunkCount:        s.ChunkCount,
		FileCount:         s.FileCount,
		LanguageBreakdown: s.LanguageBreakdown,
		TopDependencies:   deps,
		HighComplexity:    complex,
		ActiveBranch:      s.ActiveBranch,
		StaleFileCount:    s.StaleFileCount,
		EmbedderModel:     embedderModel,
	}
}
