package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogsCmd_HasFlags(t *testing.T) {
	cmd := newLogsCmd()
	assert.NotNil(t, cmd.Flags().Lookup("file"))
	assert.NotNil(t, cmd.Flags().Lookup("level"))
	assert.NotNil(t, cmd.Flags().Lookup("pattern"))
	assert.NotNil(t, cmd.Flags().Lookup("follow"))
	assert.NotNil(t, cmd.Flags().Lookup("lines"))
}

func TestLogs_TailsExplicitFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "codegraphd.log")
	content := `{"time":"2026-01-15T10:30:00Z","level":"INFO","msg":"indexed project"}
{"time":"2026-01-15T10:30:01Z","level":"ERROR","msg":"embed failed"}
`
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"logs", "--file", logPath, "--no-color"})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "indexed project")
	assert.Contains(t, out, "embed failed")
}

func TestLogs_LevelFilter(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "codegraphd.log")
	content := `{"time":"2026-01-15T10:30:00Z","level":"DEBUG","msg":"debug detail"}
{"time":"2026-01-15T10:30:01Z","level":"ERROR","msg":"embed failed"}
`
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"logs", "--file", logPath, "--level", "error"})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.NotContains(t, out, "debug detail")
	assert.Contains(t, out, "embed failed")
}

func TestLogs_MissingFileErrors(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"logs", "--file", "/nonexistent/path/codegraphd.log"})

	err := cmd.Execute()
	require.Error(t, err)
}
