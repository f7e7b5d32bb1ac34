package fs

import (
	"errors"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

func fixpath(name string) string {
	return name
}

// Chmod changes the mode of the named file to mode.
func Chmod(name string, mode os.FileMode) error {
	err := os.Chmod(fixpath(name), mode)

	// ignore the error if the FS does not support setting this mode (e.g. CIFS with gvfs on Linux)
	if err != nil && isNotSupported(err) {
		return nil
	}

	return err
}

// isNotSupported returns true if the error is caused by an unsupported file system feature.
func isNotSupported(err error) bool {
	return errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EOPNOTSUPP)
}

func isMacENOTTY(err error) bool {
	return runtime.GOOS == "darwin" && errors.Is(err, unix.ENOTTY)
}

// SyncDir flushes changes to the directory dir.
func SyncDir(dir string) error {
	d, err := os.Open(fixpath(dir))
	if err != nil {
		return err
	}

	err = d.Sync()
	if err != nil &&
		(errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.ENOENT) ||
			errors.Is(err, unix.EINVAL) || isMacENOTTY(err)) {
		err = nil
	}

	cerr := d.Close()
	if err == nil {
		err = cerr
	}

	return err
}
