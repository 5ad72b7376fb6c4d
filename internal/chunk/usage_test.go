package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeChunker_ChunkGoFile_ExtractsCallUsage(t *testing.T) {
	source := `package main

import "fmt"

func greet() {
	fmt.Println("hi")
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "main.go", Content: []byte(source), Language: "go",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	require.Len(t, chunks[0].Usages, 1)
	u := chunks[0].Usages[0]
	assert.Equal(t, "Println", u.Name)
	assert.Equal(t, "fmt", u.Qualifier)
	assert.Equal(t, UsageContextCall, u.Context)
}

func TestCodeChunker_ChunkPythonFile_ExtractsDecoratorUsage(t *testing.T) {
	source := `from fastapi import Depends

@app.get("/")
def handler():
    pass
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "main.py", Content: []byte(source), Language: "python",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	var decorator *Usage
	for _, u := range chunks[0].Usages {
		if u.Context == UsageContextDecorator {
			decorator = &u
		}
	}
	require.NotNil(t, decorator, "expected a decorator usage, got %+v", chunks[0].Usages)
	assert.Equal(t, "get", decorator.Name)
	assert.Equal(t, "app", decorator.Qualifier)
}

func TestCodeChunker_ChunkTSXFile_ExtractsJSXInstantiateUsage(t *testing.T) {
	source := `function App() {
	return <Header title="hi" />;
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "app.tsx", Content: []byte(source), Language: "tsx",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	found := false
	for _, u := range chunks[0].Usages {
		if u.Name == "Header" && u.Context == UsageContextInstantiate {
			found = true
		}
	}
	assert.True(t, found, "expected a Header instantiate usage, got %+v", chunks[0].Usages)
}

func TestExtractDartUsages_FindsWidgetInstantiation(t *testing.T) {
	source := `Widget build(BuildContext context) {
  return Center(child: Text('hi'));
}
`
	usages := extractDartUsages(source)

	names := make([]string, 0, len(usages))
	for _, u := range usages {
		names = append(names, u.Name)
		assert.Equal(t, UsageContextInstantiate, u.Context)
	}
	assert.ElementsMatch(t, []string{"Center", "Text"}, names)
}

func TestSplitQualifiedName(t *testing.T) {
	cases := []struct {
		in            string
		qualifier, nm string
	}{
		{"fmt.Println", "fmt", "Println"},
		{"helper", "", "helper"},
		{"std::vector", "std", "vector"},
		{"a.b.c", "a.b", "c"},
	}
	for _, tc := range cases {
		q, n := splitQualifiedName(tc.in)
		assert.Equal(t, tc.qualifier, q, tc.in)
		assert.Equal(t, tc.nm, n, tc.in)
	}
}

func TestUsagesInRange_FiltersByLine(t *testing.T) {
	all := []Usage{{Name: "a", Line: 1}, {Name: "b", Line: 5}, {Name: "c", Line: 10}}
	got := usagesInRange(all, 4, 9)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Name)
}
