package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ai-dslr-studio/internal/photoshoot"
)

// FileStore keeps every owner's portfolio in one JSON document. Writes go to
// a temp file that is renamed over the original.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type document map[string][]photoshoot.Shot

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("portfolio path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create portfolio dir: %w", err)
	}
	s := &FileStore{path: path}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) List(ctx context.Context, owner string) ([]photoshoot.Shot, error) {
	owner, err := validateOwner(owner)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return append([]photoshoot.Shot{}, doc[owner]...), nil
}

func (s *FileStore) Add(ctx context.Context, owner string, shot photoshoot.Shot) (bool, error) {
	owner, err := validateOwner(owner)
	if err != nil {
		return false, err
	}
	if err := validateShot(shot); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return false, err
	}
	for _, existing := range doc[owner] {
		if existing.ID == shot.ID {
			return false, nil
		}
	}
	doc[owner] = append(doc[owner], shot)
	if err := s.save(doc); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) Remove(ctx context.Context, owner string, id string) (bool, error) {
	owner, err := validateOwner(owner)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return false, err
	}

	shots := doc[owner]
	kept := shots[:0:0]
	for _, shot := range shots {
		if shot.ID != id {
			kept = append(kept, shot)
		}
	}
	if len(kept) == len(shots) {
		return false, nil
	}

	if len(kept) == 0 {
		delete(doc, owner)
	} else {
		doc[owner] = kept
	}
	if err := s.save(doc); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) load() (document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read portfolio: %w", err)
	}
	if len(raw) == 0 {
		return document{}, nil
	}

	doc := document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode portfolio %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *FileStore) save(doc document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode portfolio: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".portfolio-*.json")
	if err != nil {
		return fmt.Errorf("create temp portfolio: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write portfolio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close portfolio: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace portfolio: %w", err)
	}
	return nil
}
