package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/buildregs/ragagent/internal/vectordb"
)

// DefaultChunkTokens is the chunk size used when a caller doesn't override it.
const DefaultChunkTokens = 500

// ChunkRegulationFile splits one regulation source document into the
// ordered set of vector store documents that represent it. Each chunk
// keeps its 1-based sequence number as Metadata.LineStart, which
// internal/retrieval surfaces as a Chunk's Page — an approximate locator
// within the source document, not a literal PDF page number (ingestion
// from PDF/OCR is out of scope; this operates on already-extracted text).
func ChunkRegulationFile(relPath, content string, maxTokens int) []vectordb.Document {
	if maxTokens <= 0 {
		maxTokens = DefaultChunkTokens
	}

	parts := SplitLargeFile(content, maxTokens)
	now := time.Now()
	docs := make([]vectordb.Document, len(parts))
	for i, part := range parts {
		docs[i] = vectordb.Document{
			ID:      fmt.Sprintf("%s#%d", relPath, i+1),
			Content: strings.TrimSpace(part),
			Metadata: vectordb.DocumentMetadata{
				FilePath:    relPath,
				LineStart:   i + 1,
				LineEnd:     i + 1,
				ContentHash: contentHash(part),
				Type:        vectordb.DocTypeText,
				LastUpdated: now,
			},
		}
	}
	return docs
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SplitLargeFile splits file content into chunks that fit within a token
// budget, breaking on line boundaries so a regulation passage is never cut
// mid-sentence more often than necessary.
func SplitLargeFile(content string, maxTokens int) []string {
	// Rough estimate: 1 token ~= 4 characters.
	maxChars := maxTokens * 4
	if len(content) <= maxChars {
		return []string{content}
	}

	lines := strings.Split(content, "\n")
	var chunks []string
	var current []string
	currentLen := 0

	for _, line := range lines {
		lineLen := len(line) + 1 // +1 for newline
		if currentLen+lineLen > maxChars && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			currentLen = 0
		}
		current = append(current, line)
		currentLen += lineLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}
