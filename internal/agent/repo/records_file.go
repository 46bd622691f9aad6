package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	errx "github.com/homefix-assistant/server/internal/core/error"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

// FileRecordStore keeps each table as an indented JSON array in dir.
// A missing or unreadable file reads as an empty table.
type FileRecordStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileRecordStore creates dir and an empty file for every table that
// does not exist yet.
func NewFileRecordStore(dir string) (*FileRecordStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errx.WrapStore(fmt.Errorf("create data dir: %w", err))
	}
	s := &FileRecordStore{dir: dir}
	for _, t := range Tables {
		path := s.path(t)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := s.write(t, nil); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *FileRecordStore) path(t Table) string {
	return filepath.Join(s.dir, string(t)+".json")
}

func (s *FileRecordStore) Append(_ context.Context, table Table, record json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.read(table)
	rows = append(rows, record)
	return s.write(table, rows)
}

func (s *FileRecordStore) Load(_ context.Context, table Table) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(table), nil
}

func (s *FileRecordStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range Tables {
		if err := s.write(t, nil); err != nil {
			return err
		}
	}
	logx.Info().Str("dir", s.dir).Msg("all record tables cleared")
	return nil
}

func (s *FileRecordStore) read(t Table) []json.RawMessage {
	b, err := os.ReadFile(s.path(t))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logx.Warn().Err(err).Str("table", string(t)).Msg("failed to read record table; treating as empty")
		}
		return nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(b, &rows); err != nil {
		logx.Warn().Err(err).Str("table", string(t)).Msg("corrupt record table; treating as empty")
		return nil
	}
	return rows
}

func (s *FileRecordStore) write(t Table, rows []json.RawMessage) error {
	if rows == nil {
		rows = []json.RawMessage{}
	}
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", t, err)
	}
	if err := os.WriteFile(s.path(t), b, 0o644); err != nil {
		logx.Error().Err(err).Str("table", string(t)).Msg("failed to write record table")
		return errx.WrapStore(err)
	}
	return nil
}

var _ RecordStore = (*FileRecordStore)(nil)
