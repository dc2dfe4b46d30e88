// Package state persists small named JSON blobs on the client machine.
//
// Two blobs exist today: the partial session subset and the slow-changing
// reference data (company-type taxonomy). Persistence is strictly
// best-effort: a missing file, an unreadable directory, or no configured
// directory at all degrades to in-memory defaults and never fails a caller.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/bizdir/internal/log"
)

// Well-known blob names.
const (
	// BlobSession holds the persisted session subset
	// {identity, authenticated, verified}. Request-scoped fields
	// (loading, error, blocked) are never written here.
	BlobSession = "session"

	// BlobReference holds slow-changing reference data independent of the
	// session lifetime.
	BlobReference = "reference"
)

// Store reads and writes named JSON blobs under a directory.
// A Store with an empty directory is valid and behaves as if every blob
// were absent.
type Store struct {
	dir    string
	logger *log.Logger
}

// New creates a Store rooted at dir. An empty dir disables persistence.
func New(dir string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Store{dir: dir, logger: logger}
}

// Load reads the named blob into v. When the blob is absent, unreadable, or
// persistence is disabled, v is left untouched so callers keep their
// defaults. Returns true only when v was populated.
func (s *Store) Load(name string, v any) bool {
	if s.dir == "" {
		return false
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("state blob unreadable", "blob", name, "error", err.Error())
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("state blob corrupt, ignoring", "blob", name, "error", err.Error())
		return false
	}
	return true
}

// Save writes the named blob. Failures are logged, never surfaced: losing a
// cached blob costs a re-fetch or a re-login, not correctness.
func (s *Store) Save(name string, v any) {
	if s.dir == "" {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Warn("state blob marshal failed", "blob", name, "error", err.Error())
		return
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Debug("state dir unavailable", "dir", s.dir, "error", err.Error())
		return
	}
	if err := os.WriteFile(s.path(name), data, 0o600); err != nil {
		s.logger.Debug("state blob write failed", "blob", name, "error", err.Error())
	}
}

// Delete removes the named blob if it exists.
func (s *Store) Delete(name string) {
	if s.dir == "" {
		return
	}
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		s.logger.Debug("state blob delete failed", "blob", name, "error", err.Error())
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
