package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/codegraph-dev/codegraph/internal/chunk"
	"github.com/codegraph-dev/codegraph/internal/store"
)

// contentHash hashes raw file bytes for change detection, the same
// sha256-truncated-to-32-hex shape every other identifier in this system
// uses.
func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:32]
}

// symbolKind maps a chunk's primary symbol (if any) to the persisted
// SymbolKind. A chunk with no extracted symbols (a markdown section or a
// line-based fallback block) maps to SymbolKindChunk. Firestore rule chunks carry a single SymbolTypeType
// symbol regardless of their real shape, so c.Language (the chunker's own
// "firestore-rules" tag, distinct from the scanner's "firestore") is what
// disambiguates match_path from an ordinary type/class symbol.
func symbolKind(c *chunk.Chunk) store.SymbolKind {
	if c.Language == "firestore-rules" {
		return store.SymbolKindMatchPath
	}
	if len(c.Symbols) == 0 {
		return store.SymbolKindChunk
	}

	switch c.Symbols[0].Type {
	case chunk.SymbolTypeFunction:
		return store.SymbolKindFunction
	case chunk.SymbolTypeMethod:
		return store.SymbolKindMethod
	case chunk.SymbolTypeClass, chunk.SymbolTypeInterface, chunk.SymbolTypeType:
		return store.SymbolKindClass
	case chunk.SymbolTypeVariable:
		return store.SymbolKindVariable
	case chunk.SymbolTypeConstant:
		return store.SymbolKindConstant
	default:
		return store.SymbolKindChunk
	}
}

// symbolName returns the chunk's declared name, falling back to a
// synthetic "<file>:<start>-<end>" identifier for unnamed content (a
// markdown section, an oversized split, a line-based fallback block).
func symbolName(relPath string, c *chunk.Chunk) string {
	if len(c.Symbols) > 0 && c.Symbols[0].Name != "" {
		return c.Symbols[0].Name
	}
	return fmt.Sprintf("%s:%d-%d", relPath, c.StartLine, c.EndLine)
}

// signature returns the chunk's primary symbol signature, empty for
// non-callable or unnamed content.
func signature(c *chunk.Chunk) string {
	if len(c.Symbols) == 0 {
		return ""
	}
	return c.Symbols[0].Signature
}

// toStoreChunk converts a parsed chunk plus its embedding vector into the
// persisted row shape. Author/LastModified are left zero; git enrichment
// fills them in asynchronously after Pass 1/2 complete.
func toStoreChunk(relPath, language string, c *chunk.Chunk, vector []float32, fileHash string, now time.Time) *store.Chunk {
	return &store.Chunk{
		ID:           c.ID,
		Filename:     relPath,
		Language:     language,
		SymbolName:   symbolName(relPath, c),
		SymbolKind:   symbolKind(c),
		StartLine:    c.StartLine,
		EndLine:      c.EndLine,
		Content:      c.Content,
		Signature:    signature(c),
		Complexity:   c.Complexity,
		Dependencies: c.Dependencies,
		LastModified: now,
		ContentHash:  fileHash,
		Vector:       vector,
	}
}
