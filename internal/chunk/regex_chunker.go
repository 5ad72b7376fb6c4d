package chunk

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RegexChunker splits files into chunks using header regexes plus brace
// matching, for languages with no tree-sitter grammar in the registry.
// It mirrors MarkdownChunker's approach: find the start of each top-level
// declaration with a regex, then grow the chunk to the end of its block.
type RegexChunker struct {
	extensions []string
	language   string
	headers    []*regexp.Regexp
	options    CodeChunkerOptions
}

// dartHeaderPatterns matches class and top-level function/method declarations.
var dartHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*(?:abstract\s+|final\s+|sealed\s+|base\s+)*class\s+(\w+)`),
	regexp.MustCompile(`(?m)^\s*(?:static\s+|final\s+|const\s+|@override\s+)*[\w<>,\s\[\]?]+?\s+(\w+)\s*\([^;{]*\)\s*(?:async\*?\s*)?\{`),
}

// firestoreHeaderPatterns matches `match /path {` rule blocks.
var firestoreHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*match\s+(/\S+)\s+\{`),
}

// NewDartChunker creates a regex-based chunker for Dart source files.
func NewDartChunker() *RegexChunker {
	return &RegexChunker{
		extensions: []string{".dart"},
		language:   "dart",
		headers:    dartHeaderPatterns,
		options:    CodeChunkerOptions{MaxChunkTokens: DefaultMaxChunkTokens, OverlapTokens: DefaultOverlapTokens},
	}
}

// NewFirestoreRulesChunker creates a regex-based chunker for Firestore
// security rules files.
func NewFirestoreRulesChunker() *RegexChunker {
	return &RegexChunker{
		extensions: []string{".rules"},
		language:   "firestore-rules",
		headers:    firestoreHeaderPatterns,
		options:    CodeChunkerOptions{MaxChunkTokens: DefaultMaxChunkTokens, OverlapTokens: DefaultOverlapTokens},
	}
}

// Close releases chunker resources. RegexChunker is stateless.
func (c *RegexChunker) Close() {}

// SupportedExtensions returns file extensions this chunker handles.
func (c *RegexChunker) SupportedExtensions() []string {
	return c.extensions
}

// Chunk splits the file into one chunk per matched top-level block, falling
// back to line-based chunking when no header pattern matches.
func (c *RegexChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	blocks := c.findBlocks(content)
	if len(blocks) == 0 {
		return c.chunkByLines(file, content)
	}

	var dependencies []string
	var usages []Usage
	if c.language == "dart" {
		dependencies = extractDartDependencies(content)
		usages = extractDartUsages(content)
	}

	now := time.Now()
	var chunks []*Chunk
	for _, b := range blocks {
		blockContent := content[b.start:b.end]
		startLine := strings.Count(content[:b.start], "\n") + 1
		tokens := estimateTokens(blockContent)

		if tokens <= c.options.MaxChunkTokens {
			chunks = append(chunks, c.newChunk(file, blockContent, b.name, startLine, now))
			continue
		}
		chunks = append(chunks, c.splitOversizedBlock(file, blockContent, b.name, startLine, now)...)
	}

	for _, ch := range chunks {
		ch.Dependencies = dependencies
		ch.Usages = usagesInRange(usages, ch.StartLine, ch.EndLine)
	}

	return chunks, nil
}

type regexBlock struct {
	name  string
	start int
	end   int
}

// findBlocks locates each header match and grows it to the end of its
// brace-delimited block. Nested matches (a match inside an enclosing
// match's block, e.g. a Firestore rule nested under a parent match) each
// get their own chunk too, since that inner scope is usually the more
// useful retrieval unit; the resulting overlap mirrors the overlap
// CodeChunker accepts between a class chunk and its method sub-chunks.
func (c *RegexChunker) findBlocks(content string) []regexBlock {
	type match struct {
		start int
		name  string
	}
	var matches []match
	for _, re := range c.headers {
		for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
			name := "block"
			if len(m) >= 4 && m[2] >= 0 {
				name = content[m[2]:m[3]]
			}
			matches = append(matches, match{start: m[0], name: name})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	// Sort by start position for stable, line-ordered output.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].start < matches[j-1].start; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	var blocks []regexBlock
	for _, m := range matches {
		openBrace := strings.IndexByte(content[m.start:], '{')
		if openBrace == -1 {
			continue
		}
		openBrace += m.start
		end := matchBrace(content, openBrace)
		if end == -1 {
			continue
		}
		blocks = append(blocks, regexBlock{name: m.name, start: m.start, end: end + 1})
	}
	return blocks
}

// matchBrace returns the index of the '}' matching the '{' at openIdx, or -1.
func matchBrace(content string, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (c *RegexChunker) newChunk(file *FileInput, content, name string, startLine int, now time.Time) *Chunk {
	endLine := startLine + strings.Count(content, "\n")
	return &Chunk{
		ID:          generateChunkID(file.Path, name, startLine),
		FilePath:    file.Path,
		Content:     content,
		RawContent:  content,
		ContentType: ContentTypeCode,
		Language:    c.language,
		StartLine:   startLine,
		EndLine:     endLine,
		Symbols: []*Symbol{{
			Name:      name,
			Type:      SymbolTypeType,
			StartLine: startLine,
			EndLine:   endLine,
		}},
		Complexity: computeComplexity(content, c.language),
		Metadata:   make(map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// splitOversizedBlock splits a block that exceeds MaxChunkTokens into
// line-based sub-chunks, matching CodeChunker's splitByLines behavior.
func (c *RegexChunker) splitOversizedBlock(file *FileInput, content, name string, startLine int, now time.Time) []*Chunk {
	lines := strings.Split(content, "\n")
	maxLinesPerChunk := (c.options.MaxChunkTokens * TokensPerChar) / 80
	if maxLinesPerChunk < 20 {
		maxLinesPerChunk = 20
	}
	overlapLines := (c.options.OverlapTokens * TokensPerChar) / 80
	if overlapLines < 2 {
		overlapLines = 2
	}

	var chunks []*Chunk
	for i := 0; i < len(lines); {
		end := i + maxLinesPerChunk
		if end > len(lines) {
			end = len(lines)
		}
		chunkContent := strings.Join(lines[i:end], "\n")
		chunkStartLine := startLine + i
		partName := name
		if len(chunks) > 0 {
			partName = name + "_part" + strconv.Itoa(len(chunks)+1)
		}
		chunks = append(chunks, c.newChunk(file, chunkContent, partName, chunkStartLine, now))

		i = end - overlapLines
		if i <= 0 || end >= len(lines) {
			break
		}
	}
	return chunks
}

// chunkByLines is the fallback when no header pattern matches anything in
// the file (e.g. a Dart file containing only top-level variables).
func (c *RegexChunker) chunkByLines(file *FileInput, content string) ([]*Chunk, error) {
	lines := strings.Split(content, "\n")
	linesPerChunk := 128
	overlapLines := 16

	var chunks []*Chunk
	now := time.Now()
	for i := 0; i < len(lines); {
		end := i + linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}
		chunkContent := strings.Join(lines[i:end], "\n")
		startLine := i + 1

		chunks = append(chunks, &Chunk{
			ID:          generateChunkID(file.Path, "line_block_"+strconv.Itoa(len(chunks)+1), startLine),
			FilePath:    file.Path,
			Content:     chunkContent,
			RawContent:  chunkContent,
			ContentType: ContentTypeText,
			Language:    c.language,
			StartLine:   startLine,
			EndLine:     end,
			Complexity:  1,
			Metadata:    make(map[string]string),
			CreatedAt:   now,
			UpdatedAt:   now,
		})

		i = end - overlapLines
		if i <= 0 || end >= len(lines) {
			break
		}
	}
	return chunks, nil
}
