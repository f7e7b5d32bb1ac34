package cache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/glbview/internal/fs"
)

// Modes are the permissions used for store directories and entry files.
type Modes struct {
	Dir  os.FileMode
	File os.FileMode
}

// DefaultModes is used when the storage directory does not exist yet.
var DefaultModes = Modes{Dir: 0700, File: 0600}

// DeriveModesFromFileInfo widens the default modes to group access when the
// existing storage directory grants it.
func DeriveModesFromFileInfo(fi os.FileInfo, err error) Modes {
	m := DefaultModes
	if err != nil {
		return m
	}

	if fi.Mode()&0040 != 0 { // Group has read access
		m.Dir |= 0070
		m.File |= 0060
	}

	return m
}

// Storage manages the named stores below one directory, one subdirectory
// per store.
type Storage struct {
	path  string
	modes Modes
}

// ErrInvalidName is returned for store names that cannot be used as a
// directory name.
var ErrInvalidName = errors.New("invalid store name")

// New opens the storage rooted at dir, creating it if needed.
func New(dir string) (*Storage, error) {
	modes := DeriveModesFromFileInfo(fs.Stat(dir))

	if err := fs.MkdirAll(dir, modes.Dir); err != nil {
		return nil, errors.Wrap(err, "MkdirAll")
	}

	return &Storage{path: dir, modes: modes}, nil
}

// Path returns the storage root.
func (s *Storage) Path() string {
	return s.path
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// Open returns the store called name, creating it when it does not exist.
func (s *Storage) Open(name string) (*Store, error) {
	if !validName(name) {
		return nil, errors.Wrapf(ErrInvalidName, "%q", name)
	}

	dir := filepath.Join(s.path, name)
	if err := fs.MkdirAll(dir, s.modes.Dir); err != nil {
		return nil, errors.Wrap(err, "MkdirAll")
	}

	return &Store{name: name, path: dir, modes: s.modes}, nil
}

// Has reports whether a store called name exists.
func (s *Storage) Has(name string) bool {
	if !validName(name) {
		return false
	}

	fi, err := fs.Stat(filepath.Join(s.path, name))
	return err == nil && fi.IsDir()
}

// Names returns the names of all stores, sorted.
func (s *Storage) Names() ([]string, error) {
	entries, err := fs.ReadDir(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "ReadDir")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && validName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

// Delete removes the store called name and every entry in it. It reports
// whether the store existed.
func (s *Storage) Delete(name string) (bool, error) {
	if !s.Has(name) {
		return false, nil
	}

	log.Infof("deleting store %v", name)
	if err := fs.RemoveAll(filepath.Join(s.path, name)); err != nil {
		return false, errors.Wrapf(err, "remove store %v", name)
	}

	return true, nil
}
