package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FilesystemCache implements QueryCache as one file per key under a root
// directory, with the namespace as a subdirectory. Expiry is recorded inside
// the file and checked on read.
type FilesystemCache struct {
	dir string
}

type fileEntry struct {
	ExpiresAt time.Time `json:"expires_at"`
	Value     []byte    `json:"value"`
}

// NewFilesystemCache creates a file-backed query cache rooted at dir.
func NewFilesystemCache(dir string) (*FilesystemCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FilesystemCache{dir: dir}, nil
}

// Get reads the entry for key, treating missing, unreadable or expired files
// as a miss.
func (c *FilesystemCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache read: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entry, likely a torn write from an older version.
		return nil, false, nil
	}
	if time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(c.path(key))
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set writes the entry atomically via rename so concurrent writers for the
// same key resolve last-writer-wins.
func (c *FilesystemCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := json.Marshal(fileEntry{
		ExpiresAt: time.Now().Add(ttl),
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache rename: %w", err)
	}
	return nil
}

// path maps "namespace:hash" to dir/namespace/hash.
func (c *FilesystemCache) path(key string) string {
	ns, hash, found := strings.Cut(key, ":")
	if !found {
		return filepath.Join(c.dir, key)
	}
	return filepath.Join(c.dir, ns, hash)
}
