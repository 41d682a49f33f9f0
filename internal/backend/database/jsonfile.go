package database

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

// JSONDatabase keeps all items in a single JSON array on disk. Every write
// reads the whole array, mutates it and replaces the file. Writers are
// serialised by mu, so concurrent uploads and deletes cannot lose updates.
type JSONDatabase struct {
	path string
	mu   sync.Mutex
}

func NewJSONDatabase(path string) DatabaseService {
	return &JSONDatabase{path: path}
}

func (s *JSONDatabase) CreateDatabase() error {
	if s.path == "" {
		return errors.New("json database requires a file path")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return s.write(make([]*PortfolioItem, 0))
	} else if err != nil {
		return err
	}
	// Fail early on a corrupt file rather than on the first request.
	_, err := s.read()
	return err
}

func (s *JSONDatabase) DoesDatabaseExist() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *JSONDatabase) Close() error {
	return nil
}

func (s *JSONDatabase) CreateItem(_ context.Context, item *PortfolioItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return err
	}
	for _, existing := range items {
		if existing.ID == item.ID {
			return fmt.Errorf("item with id %s already exists", item.ID)
		}
	}

	copied := *item
	items = append(items, &copied)
	return s.write(items)
}

func (s *JSONDatabase) GetItems(_ context.Context) ([]*PortfolioItem, error) {
	s.mu.Lock()
	items, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sortNewestFirst(items)
	return items, nil
}

func (s *JSONDatabase) GetItemByID(_ context.Context, id string) (*PortfolioItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, ErrItemNotFound
}

func (s *JSONDatabase) DeleteItem(_ context.Context, id string) (*PortfolioItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return nil, err
	}

	for i, item := range items {
		if item.ID != id {
			continue
		}
		remaining := append(items[:i:i], items[i+1:]...)
		if err := s.write(remaining); err != nil {
			return nil, err
		}
		return item, nil
	}
	return nil, ErrItemNotFound
}

// read loads the array; a missing or empty file is an empty portfolio.
// Callers must hold mu.
func (s *JSONDatabase) read() ([]*PortfolioItem, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make([]*PortfolioItem, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return make([]*PortfolioItem, 0), nil
	}

	items := make([]*PortfolioItem, 0)
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return items, nil
}

// write replaces the file through a rename so readers never see a partial
// array. Callers must hold mu.
func (s *JSONDatabase) write(items []*PortfolioItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // gone after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
