package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OpenGG/hostswitch/internal/hostswitch/domain"
	"github.com/OpenGG/hostswitch/internal/hostswitch/paths"
	"github.com/OpenGG/hostswitch/internal/hostswitch/storage"
)

// DefaultTemplate is the content of a profile created without a source.
const DefaultTemplate = `# Host Database
# localhost is used to configure the loopback interface
# when the system is booting. Do not change this entry.
127.0.0.1       localhost
255.255.255.255 broadcasthost
::1             localhost
`

// Source selects where a new profile's content comes from.
type Source int

const (
	SourceTemplate Source = iota
	SourceLiveFile
)

// Store is a file-name based catalog of profiles. A profile exists exactly
// when its file exists.
type Store struct {
	storage   *storage.Storage
	dir       string
	hostsPath string
}

// New creates a new profile Store rooted at dir. hostsPath is the live file
// used by SourceLiveFile.
func New(storage *storage.Storage, dir, hostsPath string) *Store {
	return &Store{
		storage:   storage,
		dir:       dir,
		hostsPath: hostsPath,
	}
}

// Path returns the full path of a profile file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+paths.ProfileSuffix)
}

// List returns the names of all stored profiles, sorted lexicographically.
// A missing profiles directory yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := s.storage.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, paths.ProfileSuffix) {
			names = append(names, strings.TrimSuffix(name, paths.ProfileSuffix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Exists checks if a profile exists.
func (s *Store) Exists(name string) (bool, error) {
	return s.storage.Exists(s.Path(name))
}

// Create writes a new profile. It fails with domain.ErrProfileExists without
// touching the existing file when the name is taken.
func (s *Store) Create(name string, source Source) error {
	path := s.Path(name)
	exists, err := s.storage.Exists(path)
	if err != nil {
		return fmt.Errorf("%w: check profile %q: %w", domain.ErrIOFailure, name, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", domain.ErrProfileExists, name)
	}
	if err := s.storage.MkdirAll(s.dir); err != nil {
		return fmt.Errorf("%w: create profiles directory: %w", domain.ErrIOFailure, err)
	}

	switch source {
	case SourceLiveFile:
		if err := s.storage.CopyFile(s.hostsPath, path); err != nil {
			return fmt.Errorf("%w: copy %s: %w", domain.ErrIOFailure, s.hostsPath, err)
		}
	default:
		if err := s.storage.WriteFile(path, []byte(DefaultTemplate)); err != nil {
			return fmt.Errorf("%w: write profile: %w", domain.ErrIOFailure, err)
		}
	}
	return nil
}

// Delete removes a profile file.
func (s *Store) Delete(name string) error {
	path := s.Path(name)
	exists, err := s.storage.Exists(path)
	if err != nil {
		return fmt.Errorf("%w: check profile %q: %w", domain.ErrIOFailure, name, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrProfileNotFound, name)
	}
	if err := s.storage.Remove(path); err != nil {
		return fmt.Errorf("%w: remove profile: %w", domain.ErrIOFailure, err)
	}
	return nil
}

// Read returns the profile's content.
func (s *Store) Read(name string) ([]byte, error) {
	data, err := s.storage.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, name)
		}
		return nil, fmt.Errorf("%w: read profile: %w", domain.ErrIOFailure, err)
	}
	return data, nil
}
