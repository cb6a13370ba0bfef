// Package indexer walks a tree of regulation source documents, chunks each
// one into passages, and stores them in the vector-indexed regulation
// corpus C2's Retrieval Gateway searches. PDF/OCR ingestion producing
// those source documents is out of scope; the pipeline operates on
// already-extracted text files.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/buildregs/ragagent/internal/db"
	"github.com/buildregs/ragagent/internal/vectordb"
	"github.com/buildregs/ragagent/internal/walker"
)

// Pipeline orchestrates a full (re)indexing run: walk -> chunk -> store.
type Pipeline struct {
	store       vectordb.VectorStore
	builds      *db.IndexBuildStore
	dataDir     string
	chunkTokens int
	onProgress  ProgressFunc
}

// NewPipeline creates a Pipeline storing into store, persisting under
// dataDir, and optionally recording build lifecycle events in builds
// (nil disables build bookkeeping — used by tests and dry runs).
func NewPipeline(store vectordb.VectorStore, builds *db.IndexBuildStore, dataDir string) *Pipeline {
	return &Pipeline{
		store:       store,
		builds:      builds,
		dataDir:     dataDir,
		chunkTokens: DefaultChunkTokens,
	}
}

// SetChunkTokens overrides the per-chunk token budget (default DefaultChunkTokens).
func (p *Pipeline) SetChunkTokens(tokens int) {
	if tokens > 0 {
		p.chunkTokens = tokens
	}
}

// SetProgressFunc sets the progress callback.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

// Run executes the full indexing pipeline over the given regulation
// source files, reading each from its Path and keying it by its RelPath.
func (p *Pipeline) Run(ctx context.Context, files []walker.FileInfo) (*PipelineResult, error) {
	start := time.Now()
	result := &PipelineResult{}

	var buildID string
	if p.builds != nil {
		id, err := p.builds.Start(ctx)
		if err != nil {
			return nil, fmt.Errorf("start index build record: %w", err)
		}
		buildID = id
	}

	state, err := LoadState(p.dataDir)
	if err != nil {
		p.failBuild(ctx, buildID)
		return nil, fmt.Errorf("load state: %w", err)
	}

	for i, f := range files {
		select {
		case <-ctx.Done():
			p.failBuild(ctx, buildID)
			return result, ctx.Err()
		default:
		}

		if !state.IsFileChanged(f.RelPath, f.ContentHash) {
			result.FilesSkipped++
			continue
		}

		content, err := os.ReadFile(f.Path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("read %s: %w", f.RelPath, err))
			result.FilesFailed++
			continue
		}

		docs := ChunkRegulationFile(f.RelPath, string(content), p.chunkTokens)

		if err := p.store.DeleteByFilePath(ctx, f.RelPath); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete old docs for %s: %w", f.RelPath, err))
			result.FilesFailed++
			continue
		}
		if err := p.store.AddDocuments(ctx, docs); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("store docs for %s: %w", f.RelPath, err))
			result.FilesFailed++
			continue
		}

		state.FileHashes[f.RelPath] = f.ContentHash
		result.ChunksStored += len(docs)
		result.FilesProcessed++

		if p.onProgress != nil {
			p.onProgress(i+1, len(files), f.RelPath)
		}
	}

	if err := p.store.Persist(ctx, filepath.Join(p.dataDir, "vectordb")); err != nil {
		p.failBuild(ctx, buildID)
		return result, fmt.Errorf("persist store: %w", err)
	}

	if err := state.SaveState(p.dataDir); err != nil {
		p.failBuild(ctx, buildID)
		return result, fmt.Errorf("save state: %w", err)
	}

	if buildID != "" {
		if len(result.Errors) > 0 {
			_ = p.builds.Fail(ctx, buildID)
		} else {
			_ = p.builds.Complete(ctx, buildID, p.store.Count())
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (p *Pipeline) failBuild(ctx context.Context, buildID string) {
	if buildID == "" {
		return
	}
	_ = p.builds.Fail(ctx, buildID)
}
