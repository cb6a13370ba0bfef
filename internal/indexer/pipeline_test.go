package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/buildregs/ragagent/internal/db"
	"github.com/buildregs/ragagent/internal/vectordb"
	"github.com/buildregs/ragagent/internal/walker"
)

type stubStore struct {
	docs  map[string][]vectordb.Document
	count int
}

func newStubStore() *stubStore { return &stubStore{docs: make(map[string][]vectordb.Document)} }

func (s *stubStore) AddDocuments(_ context.Context, docs []vectordb.Document) error {
	for _, d := range docs {
		s.docs[d.Metadata.FilePath] = append(s.docs[d.Metadata.FilePath], d)
		s.count++
	}
	return nil
}

func (s *stubStore) Search(context.Context, string, int, *vectordb.SearchFilter) ([]vectordb.SearchResult, error) {
	return nil, nil
}

func (s *stubStore) GetByFilePath(_ context.Context, filePath string) ([]vectordb.Document, error) {
	return s.docs[filePath], nil
}

func (s *stubStore) DeleteByFilePath(_ context.Context, filePath string) error {
	s.count -= len(s.docs[filePath])
	delete(s.docs, filePath)
	return nil
}

func (s *stubStore) Persist(context.Context, string) error       { return nil }
func (s *stubStore) Load(context.Context, string) error          { return nil }
func (s *stubStore) Count() int                                  { return s.count }

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPipelineRunIndexesNewFiles(t *testing.T) {
	srcDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, srcDir, "setbacks.txt", "All buildings must maintain a minimum setback of 3 meters from the property line.")
	writeFile(t, srcDir, "height.txt", "Maximum building height is 12 meters in residential zones.")

	files, err := walker.Walk(walker.WalkerConfig{RootDir: srcDir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	store := newStubStore()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()
	builds := db.NewIndexBuildStore(d)

	pipeline := NewPipeline(store, builds, dataDir)
	result, err := pipeline.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.FilesProcessed != 2 {
		t.Errorf("expected 2 files processed, got %d", result.FilesProcessed)
	}
	if result.ChunksStored == 0 {
		t.Error("expected at least one chunk stored")
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}

	last, err := builds.LastStartedAt(context.Background())
	if err != nil {
		t.Fatalf("LastStartedAt() error: %v", err)
	}
	if last.IsZero() {
		t.Error("expected the index build to be recorded as completed")
	}
}

func TestPipelineRunSkipsUnchangedFiles(t *testing.T) {
	srcDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, srcDir, "setbacks.txt", "Minimum setback is 3 meters.")

	files, err := walker.Walk(walker.WalkerConfig{RootDir: srcDir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	store := newStubStore()
	pipeline := NewPipeline(store, nil, dataDir)

	if _, err := pipeline.Run(context.Background(), files); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	result, err := pipeline.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if result.FilesSkipped != 1 {
		t.Errorf("expected the unchanged file to be skipped on the second run, got %d skipped", result.FilesSkipped)
	}
	if result.FilesProcessed != 0 {
		t.Errorf("expected no files reprocessed, got %d", result.FilesProcessed)
	}
}

func TestChunkRegulationFileProducesSequentialChunks(t *testing.T) {
	content := ""
	for i := 0; i < 200; i++ {
		content += "Setback requirements apply uniformly across all residential zones.\n"
	}

	docs := ChunkRegulationFile("zoning.txt", content, 50)
	if len(docs) < 2 {
		t.Fatalf("expected the large file to split into multiple chunks, got %d", len(docs))
	}
	for i, d := range docs {
		if d.Metadata.LineStart != i+1 {
			t.Errorf("chunk %d: expected sequence number %d, got %d", i, i+1, d.Metadata.LineStart)
		}
		if d.Metadata.FilePath != "zoning.txt" {
			t.Errorf("chunk %d: expected FilePath zoning.txt, got %q", i, d.Metadata.FilePath)
		}
	}
}
