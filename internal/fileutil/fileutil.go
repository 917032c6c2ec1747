// Package fileutil holds the small file helpers shared by the resolver, the
// upload path and subtitle synthesis.
package fileutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFileMode streams src to dst and forces mode on dst, including when dst
// already existed with different permissions.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, mode)
}

// SaveStream writes r to path through a sibling temp file and renames it into
// place, returning the number of bytes written. A failed write leaves nothing
// at path.
func SaveStream(r io.Reader, path string) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	return written, nil
}

// WriteFileAtomic replaces path with data.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	if _, err := SaveStream(bytes.NewReader(data), path); err != nil {
		return err
	}
	return os.Chmod(path, mode)
}
