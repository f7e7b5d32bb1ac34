package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/glbview/internal/fs"
)

// ErrNotFound is returned by Match when no entry exists for a key.
var ErrNotFound = errors.New("entry not found")

// keyAttribute holds the request identity on entry files, so listing keys
// does not need to decompress every entry.
const keyAttribute = "user.glbview.key"

// Store maps request identities to captured snapshots. Each entry is one
// file, written atomically, so concurrent writers for the same key resolve
// to whichever rename happens last.
type Store struct {
	name  string
	path  string
	modes Modes

	forgotten sync.Map
}

// Name returns the store name.
func (c *Store) Name() string {
	return c.name
}

func (c *Store) filename(id ID) string {
	name := id.String()
	return filepath.Join(c.path, name[:2], name)
}

// Put stores s under s.Key, replacing any previous entry.
func (c *Store) Put(s *Snapshot) error {
	buf, err := encodeEntry(s)
	if err != nil {
		return err
	}

	id := IDFor(s.Key)
	filename := c.filename(id)
	if err := fs.MkdirAll(filepath.Dir(filename), c.modes.Dir); err != nil {
		return errors.Wrap(err, "MkdirAll")
	}

	if err := fs.WriteFileAtomic(filename, buf, c.modes.File); err != nil {
		return err
	}

	if err := fs.SetAttribute(filename, keyAttribute, []byte(s.Key)); err != nil {
		log.Debugf("store %v: set key attribute on %v: %v", c.name, id.Str(), err)
	}

	log.Debugf("store %v: saved %v (%d bytes) as %v", c.name, s.Key, len(s.Body), id.Str())
	return nil
}

// Match returns the snapshot stored for key. It returns ErrNotFound when
// there is none and an error wrapping ErrCorrupt when the entry is damaged.
func (c *Store) Match(key string) (*Snapshot, error) {
	buf, err := fs.ReadFile(c.filename(IDFor(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s, err := decodeEntry(buf)
	if err != nil {
		return nil, err
	}
	if s.Key != key {
		return nil, errors.Wrapf(ErrCorrupt, "entry for %v holds %v", key, s.Key)
	}

	return s, nil
}

// Has returns true if an entry for key exists.
func (c *Store) Has(key string) bool {
	_, err := fs.Stat(c.filename(IDFor(key)))
	return err == nil
}

// Delete removes the entry for key. It reports whether an entry was removed;
// a missing entry is not an error.
func (c *Store) Delete(key string) (bool, error) {
	err := fs.Remove(c.filename(IDFor(key)))
	removed := err == nil
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	return removed, errors.WithStack(err)
}

// Forget deletes a damaged entry for key.
func (c *Store) Forget(key string) error {
	id := IDFor(key)
	if _, ok := c.forgotten.Load(id); ok {
		// Delete an entry at most once while the process runs.
		// This prevents repeatedly capturing and forgetting broken entries.
		return fmt.Errorf("circuit breaker prevents repeated deletion of cached entry %v", key)
	}

	removed, err := c.Delete(key)
	if removed {
		c.forgotten.Store(id, struct{}{})
	}
	return err
}

func isFile(fi os.FileInfo) bool {
	return fi.Mode()&(os.ModeType|os.ModeCharDevice) == 0
}

// Keys returns the request identities of all entries, sorted. Entries that
// cannot be read are skipped.
func (c *Store) Keys() ([]string, error) {
	var keys []string
	err := filepath.Walk(c.path, func(name string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.Wrap(err, "Walk")
		}

		if !isFile(fi) {
			return nil
		}

		if _, err := ParseID(filepath.Base(name)); err != nil {
			return nil
		}

		key, err := c.keyOf(name)
		if err != nil {
			log.Warnf("store %v: skipping %v: %v", c.name, filepath.Base(name), err)
			return nil
		}

		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

func (c *Store) keyOf(filename string) (string, error) {
	if v, ok, err := fs.GetAttribute(filename, keyAttribute); err == nil && ok {
		return string(v), nil
	}

	buf, err := fs.ReadFile(filename)
	if err != nil {
		return "", errors.WithStack(err)
	}
	s, err := decodeEntry(buf)
	if err != nil {
		return "", err
	}
	return s.Key, nil
}
