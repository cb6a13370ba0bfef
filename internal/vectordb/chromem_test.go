package vectordb

import (
	"context"
	"math"
	"os"
	"testing"
	"time"
)

// mockEmbedder returns deterministic embeddings based on text content.
// It produces a simple hash-based vector for reproducible tests.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// deterministicVector produces a normalized vector from text.
// Similar texts will produce similar vectors because shared characters contribute
// to the same positions in the vector.
func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	// Normalize
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func TestChromemStore_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)

	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	docs := []Document{
		{
			ID:      "doc1",
			Content: "Minimum setback from the property boundary for a residential extension is 3 meters",
			Metadata: DocumentMetadata{
				FilePath:    "Building Regulations 2024",
				LineStart:   1,
				LineEnd:     1,
				ContentHash: "abc123",
				Type:        DocTypeText,
				Section:     "Setbacks",
				LastUpdated: time.Now(),
			},
		},
		{
			ID:      "doc2",
			Content: "Database connection pool configuration and initialization",
			Metadata: DocumentMetadata{
				FilePath:    "Unrelated Appendix",
				LineStart:   1,
				LineEnd:     1,
				ContentHash: "def456",
				Type:        DocTypeText,
				LastUpdated: time.Now(),
			},
		},
		{
			ID:      "doc3",
			Content: "Maximum building height in a residential zone is 12 meters measured from grade",
			Metadata: DocumentMetadata{
				FilePath:    "Building Regulations 2024",
				LineStart:   10,
				LineEnd:     10,
				ContentHash: "ghi789",
				Type:        DocTypeText,
				Section:     "Height Restrictions",
				LastUpdated: time.Now(),
			},
		},
	}

	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	if count := store.Count(); count != 3 {
		t.Errorf("Count: got %d, want 3", count)
	}

	// Search for setback-related content
	results, err := store.Search(ctx, "setback property boundary", 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Search returned no results")
	}
	if len(results) > 2 {
		t.Errorf("Search returned %d results, expected at most 2", len(results))
	}

	// Verify results have similarity scores
	for _, r := range results {
		if r.Similarity == 0 {
			t.Error("result has zero similarity")
		}
	}
}

func TestChromemStore_SearchWithFilter(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)

	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	docs := []Document{
		{
			ID:      "f1",
			Content: "Extracted regulation text about extension depth limits",
			Metadata: DocumentMetadata{
				FilePath: "Extensions Code",
				Type:     DocTypeText,
			},
		},
		{
			ID:      "f2",
			Content: "OCR-recovered text about extension depth limits from a scanned appendix",
			Metadata: DocumentMetadata{
				FilePath: "Scanned Appendix",
				Type:     DocTypeImageOCR,
			},
		},
	}

	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	// Filter by document type
	ocrType := DocTypeImageOCR
	results, err := store.Search(ctx, "extension depth limits", 10, &SearchFilter{Type: &ocrType})
	if err != nil {
		t.Fatalf("Search with filter: %v", err)
	}

	for _, r := range results {
		if r.Document.Metadata.Type != DocTypeImageOCR {
			t.Errorf("expected type image-ocr, got %s", r.Document.Metadata.Type)
		}
	}
}

func TestChromemStore_DeleteByFilePath(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)

	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	docs := []Document{
		{
			ID:      "d1",
			Content: "first regulation document content",
			Metadata: DocumentMetadata{
				FilePath: "regulations_a.txt",
				Type:     DocTypeText,
			},
		},
		{
			ID:      "d2",
			Content: "second regulation document content",
			Metadata: DocumentMetadata{
				FilePath: "regulations_b.txt",
				Type:     DocTypeText,
			},
		},
	}

	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	if count := store.Count(); count != 2 {
		t.Fatalf("Count before delete: got %d, want 2", count)
	}

	if err := store.DeleteByFilePath(ctx, "regulations_a.txt"); err != nil {
		t.Fatalf("DeleteByFilePath: %v", err)
	}

	if count := store.Count(); count != 1 {
		t.Errorf("Count after delete: got %d, want 1", count)
	}
}

func TestChromemStore_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)

	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	now := time.Now().Truncate(time.Second)
	docs := []Document{
		{
			ID:      "persist1",
			Content: "persistent regulation text about setbacks",
			Metadata: DocumentMetadata{
				FilePath:    "setbacks.txt",
				LineStart:   5,
				LineEnd:     5,
				ContentHash: "hash1",
				Type:        DocTypeText,
				Section:     "Setbacks",
				LastUpdated: now,
			},
		},
		{
			ID:      "persist2",
			Content: "persistent regulation text about height limits",
			Metadata: DocumentMetadata{
				FilePath:    "heights.txt",
				LineStart:   10,
				LineEnd:     10,
				ContentHash: "hash2",
				Type:        DocTypeText,
				Section:     "Height Restrictions",
				LastUpdated: now,
			},
		},
	}

	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	// Persist to temp dir
	tmpDir, err := os.MkdirTemp("", "chromem-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := store.Persist(ctx, tmpDir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	// Create new store and load
	store2, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore for load: %v", err)
	}

	if err := store2.Load(ctx, tmpDir); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if count := store2.Count(); count != 2 {
		t.Errorf("Count after load: got %d, want 2", count)
	}

	// Search in loaded store - verify documents are retrievable and metadata preserved
	results, err := store2.Search(ctx, "setbacks height limits", 2, nil)
	if err != nil {
		t.Fatalf("Search after load: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search after load returned %d results, want 2", len(results))
	}

	// Check that both documents are present with correct metadata
	foundSetbacks, foundHeights := false, false
	for _, r := range results {
		switch r.Document.Metadata.FilePath {
		case "setbacks.txt":
			foundSetbacks = true
			if r.Document.Metadata.Section != "Setbacks" {
				t.Errorf("setbacks.txt: expected section Setbacks, got %s", r.Document.Metadata.Section)
			}
			if r.Document.Metadata.Type != DocTypeText {
				t.Errorf("setbacks.txt: expected type text, got %s", r.Document.Metadata.Type)
			}
		case "heights.txt":
			foundHeights = true
			if r.Document.Metadata.LineStart != 10 {
				t.Errorf("heights.txt: expected line_start 10, got %d", r.Document.Metadata.LineStart)
			}
		}
	}
	if !foundSetbacks {
		t.Error("setbacks.txt document not found after load")
	}
	if !foundHeights {
		t.Error("heights.txt document not found after load")
	}
}

func TestFormatResults(t *testing.T) {
	results := []SearchResult{
		{
			Document: Document{
				ID:      "r1",
				Content: "Minimum setback is 3 meters.",
				Metadata: DocumentMetadata{
					FilePath:  "Building Regulations 2024",
					LineStart: 10,
					LineEnd:   20,
					Type:      DocTypeText,
					Section:   "Setbacks",
				},
			},
			Similarity: 0.9512,
		},
	}

	output := FormatResults(results)
	if output == "" {
		t.Error("FormatResults returned empty string")
	}
	if !contains(output, "Building Regulations 2024:10-20") {
		t.Errorf("expected file location in output, got: %s", output)
	}
	if !contains(output, "0.9512") {
		t.Errorf("expected similarity score in output, got: %s", output)
	}
}

func TestFormatResults_Empty(t *testing.T) {
	output := FormatResults(nil)
	if output != "No results found." {
		t.Errorf("expected 'No results found.', got: %s", output)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchString(s, substr)
}

func searchString(s, sub string) bool {
	for i := 0; i <= len(s)-len(sub); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
