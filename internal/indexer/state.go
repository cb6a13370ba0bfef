package indexer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// IndexState tracks which regulation source files have already been
// indexed and their content hashes, so a re-run only re-chunks and
// re-embeds files that actually changed.
type IndexState struct {
	FileHashes  map[string]string `json:"file_hashes"`
	LastUpdated time.Time         `json:"last_updated"`
}

// LoadState reads index state from .buildregs/state.json inside the given directory.
func LoadState(dir string) (*IndexState, error) {
	path := filepath.Join(dir, ".buildregs", "state.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &IndexState{FileHashes: make(map[string]string)}, nil
		}
		return nil, err
	}

	var state IndexState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.FileHashes == nil {
		state.FileHashes = make(map[string]string)
	}
	return &state, nil
}

// SaveState writes the index state to .buildregs/state.json inside the
// given directory, via a temp file + rename so a crash mid-write never
// leaves a half-written state file behind.
func (s *IndexState) SaveState(dir string) error {
	buildregsDir := filepath.Join(dir, ".buildregs")
	if err := os.MkdirAll(buildregsDir, 0o755); err != nil {
		return err
	}

	s.LastUpdated = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	final := filepath.Join(buildregsDir, "state.json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

// IsFileChanged returns true if the file's content hash differs from the stored hash.
func (s *IndexState) IsFileChanged(filePath, contentHash string) bool {
	stored, ok := s.FileHashes[filePath]
	if !ok {
		return true
	}
	return stored != contentHash
}
