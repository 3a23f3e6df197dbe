// Package production provides production integrations: session persistence,
// transition publishing and visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/comalice/formchart/internal/core"
)

// ErrSessionNotFound is returned by Load when no record is stored for a session.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidSessionID is returned for ids that cannot name a stored record.
var ErrInvalidSessionID = errors.New("invalid session id")

// Persister stores snapshot records by session id.
type Persister[C any] interface {
	Save(ctx context.Context, sessionID string, rec core.SnapshotRecord[C]) error
	Load(ctx context.Context, sessionID string) (core.SnapshotRecord[C], error)
	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, sessionID string) error
}

func checkSessionID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w %q", ErrInvalidSessionID, id)
	}
	return nil
}

// FilePersister stores one file per session in a directory.
type FilePersister[C any] struct {
	dir       string
	ext       string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

// NewJSONPersister creates a JSON file persister, ensuring the directory exists.
func NewJSONPersister[C any](dir string) (*FilePersister[C], error) {
	return newFilePersister[C](dir, ".json", func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}, json.Unmarshal)
}

// NewYAMLPersister creates a YAML file persister, ensuring the directory exists.
func NewYAMLPersister[C any](dir string) (*FilePersister[C], error) {
	return newFilePersister[C](dir, ".yaml", yaml.Marshal, yaml.Unmarshal)
}

func newFilePersister[C any](dir, ext string, marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) (*FilePersister[C], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &FilePersister[C]{dir: dir, ext: ext, marshal: marshal, unmarshal: unmarshal}, nil
}

func (p *FilePersister[C]) file(sessionID string) string {
	return filepath.Join(p.dir, sessionID+p.ext)
}

// Save writes the record to a temporary file and renames it into place.
func (p *FilePersister[C]) Save(ctx context.Context, sessionID string, rec core.SnapshotRecord[C]) error {
	if err := checkSessionID(sessionID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := p.marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session %q: %w", sessionID, err)
	}

	fn := p.file(sessionID)
	tmp, err := os.CreateTemp(p.dir, sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", fn, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), fn); err != nil {
		return fmt.Errorf("rename to %s: %w", fn, err)
	}
	return nil
}

// Load reads the record for a session.
func (p *FilePersister[C]) Load(ctx context.Context, sessionID string) (core.SnapshotRecord[C], error) {
	var rec core.SnapshotRecord[C]
	if err := checkSessionID(sessionID); err != nil {
		return rec, err
	}
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	fn := p.file(sessionID)
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rec, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
		}
		return rec, fmt.Errorf("read %s: %w", fn, err)
	}
	if err := p.unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("unmarshal %s: %w", fn, err)
	}
	return rec, nil
}

// Delete removes the session's file.
func (p *FilePersister[C]) Delete(ctx context.Context, sessionID string) error {
	if err := checkSessionID(sessionID); err != nil {
		return err
	}
	if err := os.Remove(p.file(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete session %q: %w", sessionID, err)
	}
	return nil
}

// MemoryPersister keeps records in process memory. Records are stored as JSON
// so loads never alias a saved context.
type MemoryPersister[C any] struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryPersister creates an empty in-memory persister.
func NewMemoryPersister[C any]() *MemoryPersister[C] {
	return &MemoryPersister[C]{data: make(map[string][]byte)}
}

func (p *MemoryPersister[C]) Save(ctx context.Context, sessionID string, rec core.SnapshotRecord[C]) error {
	if err := checkSessionID(sessionID); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session %q: %w", sessionID, err)
	}
	p.mu.Lock()
	p.data[sessionID] = data
	p.mu.Unlock()
	return nil
}

func (p *MemoryPersister[C]) Load(ctx context.Context, sessionID string) (core.SnapshotRecord[C], error) {
	var rec core.SnapshotRecord[C]
	p.mu.RLock()
	data, ok := p.data[sessionID]
	p.mu.RUnlock()
	if !ok {
		return rec, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("unmarshal session %q: %w", sessionID, err)
	}
	return rec, nil
}

func (p *MemoryPersister[C]) Delete(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	delete(p.data, sessionID)
	p.mu.Unlock()
	return nil
}
