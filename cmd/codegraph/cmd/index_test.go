package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	abs := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestNewIndexCmd_HasFlags(t *testing.T) {
	cmd := newIndexCmd()
	assert.NotNil(t, cmd.Flags().Lookup("force"))
	assert.NotNil(t, cmd.Flags().Lookup("include"))
	assert.NotNil(t, cmd.Flags().Lookup("exclude"))
	assert.NotNil(t, cmd.Flags().Lookup("json"))
}

func TestIndex_IndexesNewFiles(t *testing.T) {
	root := setupTestProject(t)
	writeTestFile(t, root, "a.py", "def a():\n    return 1\n")
	writeTestFile(t, root, "b.py", "def b():\n    return 2\n")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"index", root})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Indexed 2 files")
}

func TestIndex_JSONOutput(t *testing.T) {
	root := setupTestProject(t)
	writeTestFile(t, root, "a.py", "def a():\n    return 1\n")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"index", root, "--json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `"Indexed": 1`)
}

func TestIndex_SecondRunSkipsUnchangedFiles(t *testing.T) {
	root := setupTestProject(t)
	writeTestFile(t, root, "a.py", "def a():\n    return 1\n")

	first := NewRootCmd()
	first.SetOut(new(bytes.Buffer))
	first.SetArgs([]string{"index", root})
	require.NoError(t, first.Execute())

	second := NewRootCmd()
	buf := new(bytes.Buffer)
	second.SetOut(buf)
	second.SetArgs([]string{"index", root})
	require.NoError(t, second.Execute())

	assert.Contains(t, buf.String(), "Indexed 0 files, skipped 1 unchanged")
}
