package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeChunker_ChunkGoFile_ExtractsDependencies(t *testing.T) {
	source := `package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println(os.Args)
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "main.go",
		Content:  []byte(source),
		Language: "go",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.ElementsMatch(t, []string{"fmt", "os"}, chunks[0].Dependencies)
}

func TestCodeChunker_ChunkPythonFile_ExtractsDependencies(t *testing.T) {
	source := `import os
from pkg.sub import helper


def run():
    helper()
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "run.py",
		Content:  []byte(source),
		Language: "python",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.ElementsMatch(t, []string{"os", "pkg.sub"}, chunks[0].Dependencies)
}

func TestCodeChunker_ChunkTypeScriptFile_ExtractsDependencies(t *testing.T) {
	source := `import { helper } from "./helper";

export function run() {
	helper();
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "run.ts",
		Content:  []byte(source),
		Language: "typescript",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.ElementsMatch(t, []string{"./helper"}, chunks[0].Dependencies)
}

func TestCodeChunker_ChunkGoFile_NoImports_DependenciesEmpty(t *testing.T) {
	source := `package main

func main() {}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "main.go",
		Content:  []byte(source),
		Language: "go",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Empty(t, chunks[0].Dependencies)
}

func TestDartChunker_Chunk_ExtractsDependencies(t *testing.T) {
	source := `import 'package:flutter/material.dart';
import 'models/user.dart';

class Greeter {
  String greet(String name) {
    return 'Hello, ' + name;
  }
}
`
	chunker := NewDartChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "lib/greeter.dart",
		Content:  []byte(source),
		Language: "dart",
	})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.ElementsMatch(t, []string{"package:flutter/material.dart", "models/user.dart"}, c.Dependencies)
	}
}
