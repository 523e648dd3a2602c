// internal/config/store.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
)

const profileExt = ".json"

// ProfileStore keeps named profiles as JSON files in a directory.
type ProfileStore struct {
	dir string
}

// DefaultProfileDir returns the XDG config location for profiles.
func DefaultProfileDir() string {
	return filepath.Join(xdg.ConfigHome, AppName, "profiles")
}

// NewProfileStore creates a store rooted at dir, or at DefaultProfileDir
// when dir is empty.
func NewProfileStore(dir string) *ProfileStore {
	if dir == "" {
		dir = DefaultProfileDir()
	}
	return &ProfileStore{dir: dir}
}

// Dir returns the directory backing the store.
func (s *ProfileStore) Dir() string {
	return s.dir
}

// Path resolves a profile name. Anything that looks like a path (contains a
// separator or ends in .json) is returned unchanged.
func (s *ProfileStore) Path(name string) string {
	if strings.ContainsRune(name, filepath.Separator) || strings.Contains(name, "/") || strings.HasSuffix(name, profileExt) {
		return name
	}
	return filepath.Join(s.dir, name+profileExt)
}

// Load reads a profile by name or path.
func (s *ProfileStore) Load(name string) (Profile, error) {
	if strings.TrimSpace(name) == "" {
		return Profile{}, &ProfileLoadError{Err: fmt.Errorf("profile name cannot be empty")}
	}
	return LoadProfile(s.Path(name))
}

// Save writes a profile by name or path and returns the path written.
func (s *ProfileStore) Save(name string, p Profile) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("profile name cannot be empty")
	}
	path := s.Path(name)
	if err := SaveProfile(path, p); err != nil {
		return "", err
	}
	return path, nil
}

// List returns the sorted names of profiles in the store directory.
// A missing directory is an empty store.
func (s *ProfileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != profileExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), profileExt))
	}
	sort.Strings(names)
	return names, nil
}
