package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

// fileStore keeps the sent ids as a JSON array (4-space indent), the same
// layout as the legacy id_sent.json file, so existing state is picked up as-is.
//
// Every write goes to <path>.tmp, is fsynced, then renamed over <path>. A
// crash mid-write leaves the previous file intact.
type fileStore struct {
	log  logx.Logger
	path string

	mu     sync.Mutex
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "id_sent.json"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) Load(ctx context.Context) (*Set, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.readLocked()
}

func (s *fileStore) readLocked() (*Set, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Debug("sent ids file missing; starting empty", logx.String("path", s.path))
		return NewSet(), nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return NewSet(), nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return NewSet(ids...), nil
}

func (s *fileStore) MarkAndPersist(ctx context.Context, set *Set, id string) error {
	_ = ctx
	if set == nil {
		return errors.New("nil set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	set.Add(id)
	return s.writeLocked(set.IDs())
}

func (s *fileStore) Forget(ctx context.Context, id string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	set, err := s.readLocked()
	if err != nil {
		return false, err
	}
	if !set.Remove(id) {
		return false, nil
	}
	return true, s.writeLocked(set.IDs())
}

func (s *fileStore) writeLocked(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.MarshalIndent(ids, "", "    ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	syncDir(filepath.Dir(s.path))
	return nil
}

// syncDir makes the rename durable where the platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
