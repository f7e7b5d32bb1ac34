package fs

import "os"

// Stat returns a FileInfo structure describing the named file.
// If there is an error, it will be of type *PathError.
func Stat(name string) (os.FileInfo, error) {
	return os.Stat(fixpath(name))
}

// MkdirAll creates a directory named path, along with any necessary parents,
// and returns nil, or else returns an error. The permission bits perm are used
// for all directories that MkdirAll creates. If path is already a directory,
// MkdirAll does nothing and returns nil.
func MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(fixpath(path), perm)
}

// ReadFile reads the named file and returns its contents.
func ReadFile(name string) ([]byte, error) {
	return os.ReadFile(fixpath(name))
}

// ReadDir returns all entries of a directory, sorted by filename.
func ReadDir(dir string) ([]os.DirEntry, error) {
	return os.ReadDir(fixpath(dir))
}

// Remove removes the named file or directory.
// If there is an error, it will be of type *PathError.
func Remove(name string) error {
	return os.Remove(fixpath(name))
}

// RemoveAll removes path and any children it contains.
// It removes everything it can but returns the first error
// it encounters.  If the path does not exist, RemoveAll
// returns nil (no error).
func RemoveAll(path string) error {
	return os.RemoveAll(fixpath(path))
}

// RemoveIfExists removes a file, returning no error if it does not exist.
func RemoveIfExists(filename string) error {
	err := os.Remove(fixpath(filename))
	if err != nil && os.IsNotExist(err) {
		err = nil
	}
	return err
}

// Rename renames (moves) oldpath to newpath. If newpath already exists and
// is not a directory, Rename replaces it.
func Rename(oldpath, newpath string) error {
	return os.Rename(fixpath(oldpath), fixpath(newpath))
}

// CreateTemp creates a new temporary file in the directory dir.
func CreateTemp(dir, pattern string) (*os.File, error) {
	return os.CreateTemp(fixpath(dir), pattern)
}
