// Package local implements a checkpoint backend on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
)

const tempPrefix = ".tmp-"

// Config captures the parameters for the local filesystem backend.
type Config struct {
	// BaseDir is the root directory under which objects are stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Backend stores checkpoint objects as files below a base directory.
type Backend struct {
	baseDir string
}

// New creates a filesystem backend, creating BaseDir if needed and verifying
// that it is writable.
func New(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe, err := os.CreateTemp(cfg.BaseDir, tempPrefix+"probe-*")
	if err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	name := probe.Name()
	if err := probe.Close(); err != nil {
		return nil, fmt.Errorf("failed to close probe file: %w", err)
	}
	if err := os.Remove(name); err != nil {
		return nil, fmt.Errorf("failed to clean up probe file: %w", err)
	}

	return &Backend{baseDir: filepath.Clean(cfg.BaseDir)}, nil
}

// Read returns the object contents or checkpoint.ErrNotFound.
func (b *Backend) Read(_ context.Context, name string) ([]byte, error) {
	full, err := b.resolve(name)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is confined to baseDir by resolve.
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Write stores data under name. The bytes go to a temporary file in the same
// directory which is synced and then renamed over the destination, so a crash
// leaves either the old object or the new one.
func (b *Backend) Write(_ context.Context, name string, data []byte) (err error) {
	full, err := b.resolve(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return syncDir(dir)
}

// Exists reports whether an object is stored under name.
func (b *Backend) Exists(_ context.Context, name string) (bool, error) {
	full, err := b.resolve(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat file: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// List returns the object names below the directory named by prefix.
func (b *Backend) List(_ context.Context, prefix string) ([]string, error) {
	root, err := b.resolve(prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, relErr := filepath.Rel(b.baseDir, p)
		if relErr != nil {
			return fmt.Errorf("relative path: %w", relErr)
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", prefix, err)
	}
	sort.Strings(out)
	return out, nil
}

// DeletePrefix removes the directory named by prefix and everything below it.
func (b *Backend) DeletePrefix(_ context.Context, prefix string) error {
	root, err := b.resolve(prefix)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("remove %s: %w", prefix, err)
	}
	return nil
}

// resolve maps a slash-separated object name into baseDir, rejecting names
// that would escape it.
func (b *Backend) resolve(name string) (string, error) {
	if strings.TrimSpace(strings.Trim(name, "/")) == "" {
		return "", fmt.Errorf("path is required")
	}
	full := filepath.Clean(filepath.Join(b.baseDir, filepath.FromSlash(name)))
	if !strings.HasPrefix(full, b.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return full, nil
}

func syncDir(dir string) error {
	// #nosec G304 -- dir is derived from a resolved object path.
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir: %w", err)
	}
	defer func() { _ = d.Close() }()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
