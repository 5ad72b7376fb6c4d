package ui

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Zero(t *testing.T) {
	snap := Snapshot{}
	assert.Empty(t, snap.ProjectName)
	assert.Equal(t, 0, snap.ChunkCount)
	assert.Equal(t, 0, snap.FileCount)
}

func TestStatusRenderer_Render_Basic(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	snap := Snapshot{
		ProjectName:       "my-project",
		FileCount:         50,
		ChunkCount:        250,
		ActiveBranch:      "main",
		LanguageBreakdown: map[string]int{"go": 200, "python": 50},
		TopDependencies:   []DependencyHub{{Name: "internal/store", Count: 12}},
		HighComplexity: []ComplexityCandidate{
			{Filename: "x.go", SymbolName: "Run", Complexity: 30, LooksUntested: true},
		},
		EmbedderModel: "static-256",
	}

	require.NoError(t, r.Render(snap))

	output := buf.String()
	assert.Contains(t, output, "my-project")
	assert.Contains(t, output, "50")
	assert.Contains(t, output, "250")
	assert.Contains(t, output, "main")
	assert.Contains(t, output, "go")
	assert.Contains(t, output, "internal/store")
	assert.Contains(t, output, "looks untested")
	assert.Contains(t, output, "static-256")
}

func TestStatusRenderer_Render_StaleFilesWarning(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	require.NoError(t, r.Render(Snapshot{ProjectName: "p", StaleFileCount: 3}))
	assert.Contains(t, buf.String(), "3 files changed since indexing")
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, false)

	require.NoError(t, r.RenderJSON(Snapshot{ProjectName: "json-project", FileCount: 25}))

	var parsed Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "json-project", parsed.ProjectName)
	assert.Equal(t, 25, parsed.FileCount)
}

func TestStatusRenderer_NoColor_NoEscapeCodes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	require.NoError(t, r.Render(Snapshot{ProjectName: "nocolor-project", StaleFileCount: 1}))

	output := buf.String()
	assert.NotContains(t, output, "\x1b[")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{1024 * 1024 * 1024, "1.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatBytes(tt.bytes))
		})
	}
}

func TestSortedLanguages_OrdersByCountDescending(t *testing.T) {
	langs := sortedLanguages(map[string]int{"python": 5, "go": 50, "rust": 10})
	assert.Equal(t, []string{"go", "rust", "python"}, langs)
}
