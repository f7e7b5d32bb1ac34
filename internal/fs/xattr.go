package fs

import (
	"errors"

	"github.com/pkg/xattr"
)

// SetAttribute stores an extended attribute on path. File systems without
// extended attribute support are silently ignored.
func SetAttribute(path, name string, value []byte) error {
	err := xattr.LSet(fixpath(path), name, value)
	if err != nil && isUnsupportedAttrError(err) {
		return nil
	}
	return err
}

// GetAttribute returns the extended attribute name of path. ok is false when
// the attribute is missing or the file system does not support attributes.
func GetAttribute(path, name string) (value []byte, ok bool, err error) {
	value, err = xattr.LGet(fixpath(path), name)
	if err != nil {
		var xerr *xattr.Error
		if errors.As(err, &xerr) && (errors.Is(xerr.Err, xattr.ENOATTR) || isNotSupported(xerr.Err)) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func isUnsupportedAttrError(err error) bool {
	var xerr *xattr.Error
	if errors.As(err, &xerr) {
		return isNotSupported(xerr.Err)
	}
	return false
}
