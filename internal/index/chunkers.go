package index

import "github.com/codegraph-dev/codegraph/internal/chunk"

// chunkerSet dispatches a file to the right Chunker by detected language,
// the same three-chunker split internal/chunk exposes: tree-sitter for the
// AST-backed languages, regex for Dart and Firestore rules, header-regex
// for Markdown/MDX.
type chunkerSet struct {
	code     *chunk.CodeChunker
	dart     *chunk.RegexChunker
	rules    *chunk.RegexChunker
	markdown *chunk.MarkdownChunker
}

func newChunkerSet() *chunkerSet {
	return &chunkerSet{
		code:     chunk.NewCodeChunker(),
		dart:     chunk.NewDartChunker(),
		rules:    chunk.NewFirestoreRulesChunker(),
		markdown: chunk.NewMarkdownChunker(),
	}
}

func (cs *chunkerSet) close() {
	cs.code.Close()
	cs.dart.Close()
	cs.rules.Close()
	cs.markdown.Close()
}

// forLanguage returns the Chunker that owns language, or nil if the
// language has no chunker (scanner detected it but it's not indexable
// content, e.g. a binary or config format).
func (cs *chunkerSet) forLanguage(language string) chunk.Chunker {
	switch language {
	case "dart":
		return cs.dart
	case "firestore":
		return cs.rules
	case "markdown":
		return cs.markdown
	case "":
		return nil
	default:
		return cs.code
	}
}
