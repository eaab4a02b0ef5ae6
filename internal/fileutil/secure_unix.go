//go:build !windows

package fileutil

import (
	"os"
	"path/filepath"
)

// SecureWriteFile writes data to a file with owner-only permissions (0600).
// On Unix, the standard file mode bits are enforced by the kernel.
func SecureWriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0600)
}

// SecureWriteFileAtomic writes data to a temporary file in the target
// directory and renames it over path, so concurrent readers see either
// the old content or the new content, never a torn write. The trust
// store uses this for context.json: a half-written rule file must not
// be loadable.
func SecureWriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// SecureMkdirAll creates a directory tree with owner-only permissions (0700).
// On Unix, the standard file mode bits are enforced by the kernel.
func SecureMkdirAll(path string) error {
	return os.MkdirAll(path, 0700)
}

// SecureOpenFile opens a file for writing with owner-only permissions (0600).
// On Unix, the standard file mode bits are enforced by the kernel.
func SecureOpenFile(path string, flag int) (*os.File, error) {
	return os.OpenFile(path, flag, 0600)
}
