package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "entry")

	require.NoError(t, WriteFileAtomic(name, []byte("first"), 0600))
	require.NoError(t, WriteFileAtomic(name, []byte("second"), 0600))

	data, err := ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	fi, err := Stat(name)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())

	entries, err := ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files left behind")
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "entry"), []byte("x"), 0600)
	assert.Error(t, err)
}

func TestRemoveIfExists(t *testing.T) {
	name := filepath.Join(t.TempDir(), "gone")
	assert.NoError(t, RemoveIfExists(name))

	require.NoError(t, WriteFileAtomic(name, nil, 0600))
	assert.NoError(t, RemoveIfExists(name))
	_, err := Stat(name)
	assert.True(t, os.IsNotExist(err))
}

func TestAttributes(t *testing.T) {
	name := filepath.Join(t.TempDir(), "entry")
	require.NoError(t, WriteFileAtomic(name, []byte("x"), 0600))

	_, ok, err := GetAttribute(name, "user.glbview.test")
	require.NoError(t, err)
	assert.False(t, ok)

	if err := SetAttribute(name, "user.glbview.test", []byte("value")); err != nil {
		t.Skipf("setting extended attributes failed: %v", err)
	}
	value, ok, err := GetAttribute(name, "user.glbview.test")
	require.NoError(t, err)
	if !ok {
		t.Skip("file system does not support extended attributes")
	}
	assert.Equal(t, "value", string(value))
}
