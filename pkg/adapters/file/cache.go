// Package file implements ports.ResultCache on the local filesystem, so
// results survive between CLI invocations.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/csdlc/pkg/domain"
)

const ext = ".json"

// Keys become file names.
var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Cache stores one file per key in a directory. Entries expire by
// modification time.
type Cache struct {
	BasePath string
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL expires entries ttl after they are written. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// New creates a Cache rooted at basePath.
// If basePath is empty, it defaults to ".csdlc/cache".
func New(basePath string, opts ...Option) *Cache {
	if basePath == "" {
		basePath = filepath.Join(".csdlc", "cache")
	}
	c := &Cache{BasePath: basePath, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) path(key string) (string, error) {
	if !validKey.MatchString(key) || strings.Trim(key, ".") == "" {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(c.BasePath, key+ext), nil
}

func (c *Cache) expired(info os.FileInfo) bool {
	return c.ttl > 0 && c.now().After(info.ModTime().Add(c.ttl))
}

// Set writes value atomically: a temp file in the same directory is synced
// and renamed over the destination.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	dest, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(c.BasePath, "tmp-*"+ext+".partial")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(value); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows cannot rename over an existing file.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to replace cache entry: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Get reads the entry for key. Expired entries are removed and reported as
// domain.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := c.path(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to stat cache entry: %w", err)
	}
	if c.expired(info) {
		_ = os.Remove(p)
		return nil, domain.ErrCacheMiss
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return data, nil
}

// Delete removes the entry file.
func (c *Cache) Delete(ctx context.Context, key string) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// List returns the keys of live entries.
func (c *Cache) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}

	keys := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ext {
			continue
		}
		info, err := e.Info()
		if err != nil || c.expired(info) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}
	return keys, nil
}
