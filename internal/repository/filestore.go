package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JetsonAtWork/incident-triage/internal/models"
	"github.com/JetsonAtWork/incident-triage/internal/service"
)

// FileStorage persists the whole incident collection as one JSON document on
// disk, mirroring the single localStorage entry the dashboard originally used.
// Every Save rewrites the entire file; there is no incremental diff and the
// last writer wins.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) service.IncidentStorage {
	return &FileStorage{path: path}
}

// Load reads the persisted collection. A missing file yields an empty
// collection; a corrupt file yields an error so the caller can decide how
// loudly to recover.
func (s *FileStorage) Load(ctx context.Context) ([]models.Incident, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Incident{}, nil
		}
		return nil, fmt.Errorf("failed to read incident store %s: %w", s.path, err)
	}

	incidents := make([]models.Incident, 0)
	if err := json.Unmarshal(data, &incidents); err != nil {
		return nil, fmt.Errorf("failed to parse incident store %s: %w", s.path, err)
	}
	return incidents, nil
}

// Save overwrites the persisted collection with the given one. The write goes
// through a temp file and a rename so a crash mid-write cannot corrupt the
// previous snapshot.
func (s *FileStorage) Save(ctx context.Context, incidents []models.Incident) error {
	data, err := json.Marshal(incidents)
	if err != nil {
		return fmt.Errorf("failed to marshal incidents: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write incident store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close incident store: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace incident store: %w", err)
	}
	return nil
}
