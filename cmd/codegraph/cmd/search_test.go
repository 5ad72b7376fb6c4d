package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph-dev/codegraph/internal/store"
)

func TestNewSearchCmd_HasFlags(t *testing.T) {
	cmd := newSearchCmd()
	assert.NotNil(t, cmd.Flags().Lookup("root"))
	assert.NotNil(t, cmd.Flags().Lookup("limit"))
	assert.NotNil(t, cmd.Flags().Lookup("json"))
}

func TestSearch_FindsKeywordMatch(t *testing.T) {
	root := setupTestProject(t)
	a := seedChunk(t, root, &store.Chunk{
		ID: "c1", Filename: "billing.py", Language: "python", SymbolName: "process_payment",
		StartLine: 1, EndLine: 1, Content: "def process_payment(order): return UNIQUEKEYWORDMATCH",
	})
	a.Close()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"search", "UNIQUEKEYWORDMATCH", "--root", root})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "billing.py")
}

func TestSearch_NoResults(t *testing.T) {
	root := setupTestProject(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"search", "nothing matches this", "--root", root})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No results")
}

func TestSearch_JSONOutput(t *testing.T) {
	root := setupTestProject(t)
	a := seedChunk(t, root, &store.Chunk{
		ID: "c1", Filename: "billing.py", Language: "python", SymbolName: "process_payment",
		StartLine: 1, EndLine: 1, Content: "def process_payment(order): return UNIQUEKEYWORDMATCH",
	})
	a.Close()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"search", "UNIQUEKEYWORDMATCH", "--root", root, "--json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `"filename": "billing.py"`)
}
