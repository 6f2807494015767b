// Package fs provides a filesystem-backed storage provider. Each chunk is a
// regular file under a configured root; the storage path is the file's
// root-relative path with forward slashes.
package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/marmos91/chunkstore/pkg/storage"
)

// Config holds configuration for the filesystem provider.
type Config struct {
	// Root is the directory chunk files live under.
	Root string

	// CreateDir creates the root if it doesn't exist. Default: true when
	// constructed through DefaultConfig.
	CreateDir bool

	// DirMode is the permission mode for created directories. Default: 0755.
	DirMode os.FileMode

	// FileMode is the permission mode for chunk files. Default: 0644.
	FileMode os.FileMode
}

// DefaultConfig returns the default configuration for the given root.
func DefaultConfig(root string) Config {
	return Config{
		Root:      root,
		CreateDir: true,
		DirMode:   0755,
		FileMode:  0644,
	}
}

// Provider is a filesystem-backed storage.Provider.
type Provider struct {
	id       string
	root     string
	dirMode  os.FileMode
	fileMode os.FileMode
}

// New creates a filesystem provider with the given ID and configuration.
func New(id string, cfg Config) (*Provider, error) {
	if cfg.Root == "" {
		return nil, errors.New("filesystem provider: root is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}

	if cfg.CreateDir {
		if err := os.MkdirAll(cfg.Root, cfg.DirMode); err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("filesystem provider: root is not a directory")
	}

	return &Provider{
		id:       id,
		root:     cfg.Root,
		dirMode:  cfg.DirMode,
		fileMode: cfg.FileMode,
	}, nil
}

func (p *Provider) ID() string   { return p.id }
func (p *Provider) Kind() string { return "filesystem" }

// Root returns the configured root directory.
func (p *Provider) Root() string { return p.root }

// chunkPath fans keys into two-character subdirectories to keep directory
// entries bounded for large uploads.
func chunkPath(key string) string {
	prefix := key
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return prefix + "/" + key
}

// fullPath resolves a storage path to an absolute filesystem path.
func (p *Provider) fullPath(storagePath string) string {
	return filepath.Join(p.root, filepath.FromSlash(storagePath))
}

func (p *Provider) WriteChunk(ctx context.Context, key string, r io.Reader, correlationID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	storagePath := chunkPath(key)
	path := p.fullPath(storagePath)

	if err := os.MkdirAll(filepath.Dir(path), p.dirMode); err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	// Write to a temporary file, then rename for atomicity.
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}
	if err := os.Chmod(tmpPath, p.fileMode); err != nil {
		os.Remove(tmpPath)
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	return storagePath, nil
}

func (p *Provider) ReadChunk(ctx context.Context, key, storagePath string, correlationID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.NewError(p.id, "readChunk", key, err)
	}

	f, err := os.Open(p.fullPath(storagePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.NewError(p.id, "readChunk", key, storage.ErrChunkNotFound)
		}
		return nil, storage.NewError(p.id, "readChunk", key, err)
	}
	return f, nil
}

func (p *Provider) ChunkExists(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storage.NewError(p.id, "chunkExists", key, err)
	}

	_, err := os.Stat(p.fullPath(storagePath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, storage.NewError(p.id, "chunkExists", key, err)
	}
	return true, nil
}

func (p *Provider) DeleteChunk(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storage.NewError(p.id, "deleteChunk", key, err)
	}

	err := os.Remove(p.fullPath(storagePath))
	if err != nil && !os.IsNotExist(err) {
		return false, storage.NewError(p.id, "deleteChunk", key, err)
	}
	return true, nil
}
