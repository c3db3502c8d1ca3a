package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore keeps session state in a single JSON file. It is the default
// backend: the gateway's whole persisted footprint is a handful of
// token/theme entries, which does not warrant a database.
type FileStore struct {
	path string

	mu     sync.RWMutex
	states map[string]State
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}

	s := &FileStore{
		path:   path,
		states: make(map[string]State),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, id string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[id]
	if !ok {
		return State{}, ErrStateNotFound
	}
	return st, nil
}

func (s *FileStore) Put(_ context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.UpdatedAt = time.Now().UTC()
	s.states[st.ID] = st
	return s.persistLocked()
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
	return s.persistLocked()
}

func (s *FileStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read state file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}

	var decoded []State
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("decode state file: %w", err)
	}
	for _, st := range decoded {
		if strings.TrimSpace(st.ID) == "" {
			continue
		}
		s.states[st.ID] = st
	}
	return nil
}

func (s *FileStore) persistLocked() error {
	out := make([]State, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir state dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
