package vectordb

import "time"

// DocumentType categorizes the kind of document stored in the vector DB.
type DocumentType string

const (
	// DocTypeText and DocTypeImageOCR distinguish a regulation chunk
	// extracted directly from text versus one recovered via OCR over a
	// scanned page image; internal/retrieval surfaces this as a Chunk's
	// ContentType.
	DocTypeText     DocumentType = "text"
	DocTypeImageOCR DocumentType = "image-ocr"
)

// Document represents a piece of content to be stored and searched.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata holds structured information about a document.
type DocumentMetadata struct {
	FilePath    string
	LineStart   int
	LineEnd     int
	ContentHash string
	Type        DocumentType
	LastUpdated time.Time

	// Paragraph is the 1-based paragraph index within the source document,
	// when the source granularity is finer than a whole chunk. Zero means
	// not tracked.
	Paragraph int
	// Section is the regulation section or clause title this chunk falls
	// under, when the source document carries section headings.
	Section string
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// SearchFilter allows narrowing search results by metadata fields.
type SearchFilter struct {
	Type     *DocumentType
	FilePath *string
}
