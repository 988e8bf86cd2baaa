// Package stagingtest provides an in-memory staging.Store for tests.
package stagingtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mediasync/internal/domain"
	"mediasync/internal/staging"
	"mediasync/pkg/zip"
)

// Store keeps staged files in maps and counts calls.
type Store struct {
	mu     sync.Mutex
	files  map[domain.StagingClass]map[string][]byte
	Writes int
	Purges int

	// ListErr, when set, is returned by List.
	ListErr error
	// WriteErr, when set, is returned by Write.
	WriteErr error
}

// New returns an empty Store.
func New() *Store {
	return &Store{files: map[domain.StagingClass]map[string][]byte{}}
}

// Seed adds files without counting writes.
func (s *Store) Seed(class domain.StagingClass, names ...string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.put(class, name, []byte(name))
	}
	return s
}

// Data returns the content staged as class/name.
func (s *Store) Data(class domain.StagingClass, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[class][name]
	return data, ok
}

func (s *Store) List(_ context.Context, class domain.StagingClass) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	if !class.Valid() {
		return nil, fmt.Errorf("stagingtest: unknown class %q", class)
	}
	names := make([]string, 0, len(s.files[class]))
	for name := range s.files[class] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Write(_ context.Context, class domain.StagingClass, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.Writes++
	s.put(class, name, data)
	return nil
}

func (s *Store) Bundle(ctx context.Context) ([]byte, error) {
	var entries []zip.Entry
	for _, class := range domain.StagingClasses {
		names, err := s.List(ctx, class)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			data, _ := s.Data(class, name)
			entries = append(entries, zip.Entry{Name: string(class) + "/" + name, Data: data})
		}
	}
	if len(entries) == 0 {
		return nil, staging.ErrNothingToBundle
	}
	return zip.Archive(entries)
}

func (s *Store) Purge(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Purges++
	deleted := 0
	for class, files := range s.files {
		deleted += len(files)
		delete(s.files, class)
	}
	return deleted, nil
}

func (s *Store) put(class domain.StagingClass, name string, data []byte) {
	if s.files[class] == nil {
		s.files[class] = map[string][]byte{}
	}
	s.files[class][name] = data
}

var _ staging.Store = (*Store)(nil)
