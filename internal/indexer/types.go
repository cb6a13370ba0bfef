package indexer

import "time"

// PipelineResult summarizes the outcome of a full (re)indexing run.
type PipelineResult struct {
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	ChunksStored   int
	Duration       time.Duration
	Errors         []error
}

// ProgressFunc is called during a pipeline run to report progress.
type ProgressFunc func(processed int, total int, currentFile string)
