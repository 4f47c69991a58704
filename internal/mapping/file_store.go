package mapping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	mappingFile       = "mapeamento.json"
	confirmationsFile = "confirmacoes.json"
)

// Earlier deployments wrote the snapshot under several names; loads fall back
// through all of them so an old data directory keeps working.
var mappingFileAliases = []string{
	mappingFile,
	"mapeamento_telefone_ids.json",
	"agenda_mapeamento.json",
}

// FileStore keeps the snapshot and the confirmation records as JSON files in
// one directory. Writes go through a temp file plus rename, so a concurrent
// load never sees a half-written file.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) LoadMapping(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range mappingFileAliases {
		b, err := os.ReadFile(filepath.Join(s.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read mapping file %s: %w", name, err)
		}

		var snap Snapshot
		if err := json.Unmarshal(b, &snap); err != nil {
			return nil, fmt.Errorf("decode mapping file %s: %w", name, err)
		}
		return snap, nil
	}

	return nil, ErrSnapshotNotLoaded
}

func (s *FileStore) SaveMapping(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeJSONFile(mappingFile, snap)
}

func (s *FileStore) LoadConfirmations(ctx context.Context) (map[string]ConfirmationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadConfirmationsLocked()
}

func (s *FileStore) SaveConfirmation(ctx context.Context, appointmentID string, rec ConfirmationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.loadConfirmationsLocked()
	if err != nil {
		return err
	}
	recs[appointmentID] = rec

	return s.writeJSONFile(confirmationsFile, recs)
}

func (s *FileStore) loadConfirmationsLocked() (map[string]ConfirmationRecord, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, confirmationsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]ConfirmationRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read confirmations file: %w", err)
	}

	var recs map[string]ConfirmationRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode confirmations file: %w", err)
	}
	if recs == nil {
		recs = map[string]ConfirmationRecord{}
	}
	return recs, nil
}

func (s *FileStore) writeJSONFile(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
