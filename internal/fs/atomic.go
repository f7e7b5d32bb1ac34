package fs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteFileAtomic writes data to filename so that readers observe either the
// previous content or the complete new content, never a partial write. The
// file is written to a temporary name in the same directory and renamed over
// filename.
func WriteFileAtomic(filename string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(filename)

	f, err := CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.WithStack(err)
	}
	tmp := f.Name()

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = Chmod(tmp, mode)
	}
	if err != nil {
		_ = RemoveIfExists(tmp)
		return errors.Wrapf(err, "write %v", tmp)
	}

	if err := Rename(tmp, filename); err != nil {
		_ = RemoveIfExists(tmp)
		return errors.WithStack(err)
	}

	return SyncDir(dir)
}
