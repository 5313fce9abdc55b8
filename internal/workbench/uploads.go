package workbench

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Uploads keeps uploaded files on local disk under <base>/<key>
type Uploads struct {
	basePath string
}

// NewUploads creates the upload directory
func NewUploads(basePath string) (*Uploads, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Uploads{basePath: basePath}, nil
}

// Save copies r to the file for key and returns its path and size
func (u *Uploads) Save(ctx context.Context, key string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	filePath, err := u.keyToPath(key)
	if err != nil {
		return "", 0, err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	n, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return "", 0, fmt.Errorf("failed to write file %s: %w", filePath, err)
	}
	return filePath, n, nil
}

// Delete removes the file for key
func (u *Uploads) Delete(key string) error {
	filePath, err := u.keyToPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

// CleanupExpired removes uploads last modified before now-olderThan
func (u *Uploads) CleanupExpired(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	err := filepath.Walk(u.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove expired file %s: %w", path, err)
		}
		removed++
		return nil
	})
	return removed, err
}

// keyToPath maps a slash-separated key below the base directory
func (u *Uploads) keyToPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid upload key %q", key)
	}
	return filepath.Join(u.basePath, clean), nil
}
