package history

import (
	"fmt"
	"os"
	"path/filepath"

	"scripttimer/internal/app"
)

const fileName = "history.jsonl"

type Store struct {
	BaseDir string
	Logs    string
}

// DefaultStore keeps the history under the user's state directory.
func DefaultStore() (*Store, error) {
	dir, err := app.StateDir()
	if err != nil {
		return nil, err
	}
	return &Store{BaseDir: dir, Logs: filepath.Join(dir, fileName)}, nil
}

// NewStore uses path as the history file. A blank path means DefaultStore.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return DefaultStore()
	}
	normalized, err := app.NormalizePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}
	return &Store{BaseDir: filepath.Dir(normalized), Logs: normalized}, nil
}

func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.BaseDir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	return nil
}
