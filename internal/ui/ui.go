// Package ui renders a project's indexed-state dashboard for human-run CLI
// diagnostics: a plain-text view for pipes/CI, and a bubbletea TUI for an
// interactive terminal.
package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Config controls how a dashboard is rendered.
type Config struct {
	Output  io.Writer
	NoColor bool
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI reports whether the process is running inside a recognized CI
// environment, where an interactive TUI should not be attempted even if
// stdout happens to be a pty.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
