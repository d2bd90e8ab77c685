// Package file persists pipeline contexts as JSON documents on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajayshanks/datagpt/pkg/domain"
)

const ext = ".json"

// Store implements ports.ContextStore with one file per run under Dir.
type Store struct {
	Dir string
}

// New creates a file store rooted at dir. An empty dir means ".datagpt/runs".
func New(dir string) *Store {
	if dir == "" {
		dir = filepath.Join(".datagpt", "runs")
	}
	return &Store{Dir: dir}
}

func (s *Store) path(runID string) (string, error) {
	if runID == "" {
		return "", errors.New("run id cannot be empty")
	}
	if strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	return filepath.Join(s.Dir, runID+ext), nil
}

// Save writes the context through a synced temp file and renames it over
// the destination, so readers never observe a partial document.
func (s *Store) Save(ctx context.Context, runID string, pc *domain.PipelineContext) error {
	dest, err := s.path(runID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", runID, err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, runID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Windows refuses to rename onto an existing file.
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replace run file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("rename run file: %w", err)
	}
	return nil
}

// Load reads the context of runID.
func (s *Store) Load(ctx context.Context, runID string) (*domain.PipelineContext, error) {
	p, err := s.path(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	var pc domain.PipelineContext
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &pc, nil
}

// Delete removes the run file. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, runID string) error {
	p, err := s.path(runID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

// List returns the IDs of all stored runs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ext {
			continue
		}
		runs = append(runs, strings.TrimSuffix(name, ext))
	}
	return runs, nil
}
