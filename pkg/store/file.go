package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/afero"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

type fileStore struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewFileStore keeps one JSON file per key under dir, readable by the owner only
func NewFileStore(dir string) (Store, error) {
	return newFileStore(afero.NewOsFs(), dir)
}

func newFileStore(fsys afero.Fs, dir string) (*fileStore, error) {
	if err := fsys.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &fileStore{fs: fsys, dir: dir, now: time.Now}, nil
}

func (f *fileStore) path(key string) (string, error) {
	name := unsafeKeyChars.ReplaceAllString(key, "_")
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("invalid store key: %q", key)
	}
	return filepath.Join(f.dir, name+".json"), nil
}

func (f *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := f.path(key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Store miss", "key", key)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if int64(len(data)) > Defaults.S3MaxObjectSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, path)
	}

	it, err := decodeItem(key, data)
	if err != nil {
		return nil, err
	}
	if expired(f.now(), it.Expiration) {
		slog.Debug("Stored value expired", "key", key)
		if err := f.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to remove expired value", "path", path, "error", err)
		}
		return nil, ErrNotFound
	}
	return it.Value, nil
}

func (f *fileStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSize(key, value, Defaults.MaxItemSize); err != nil {
		return err
	}

	path, err := f.path(key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(newItem(value, f.now(), ttl))
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", key, err)
	}

	// Write to a temporary file first so readers never see a partial value
	tmp, err := afero.TempFile(f.fs, f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = f.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := f.fs.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err := f.fs.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	slog.Debug("Stored value in file", "key", key, "path", path, "ttl", ttl, "size", len(value))
	return nil
}

func (f *fileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := f.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}
