package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps assets on the filesystem under a fixed root directory.
type LocalStore struct {
	basePath string
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create asset root %q: %w", basePath, err)
	}
	return &LocalStore{basePath: basePath}, nil
}

var _ Store = (*LocalStore)(nil)

func (l *LocalStore) Save(_ context.Context, body io.Reader, suggestedName string) (string, error) {
	key := newKey(suggestedName)

	f, err := os.OpenFile(filepath.Join(l.basePath, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("cannot create asset %q: %w", key, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("cannot write asset %q: %w", key, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("cannot close asset %q: %w", key, err)
	}

	return key, nil
}

func (l *LocalStore) Put(_ context.Context, key string, body io.Reader) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(l.basePath, key))
	if err != nil {
		return fmt.Errorf("cannot create asset %q: %w", key, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("cannot write asset %q: %w", key, err)
	}

	return f.Close()
}

func (l *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	// OpenInRoot refuses symlink or dot-dot escapes from the asset directory
	return os.OpenInRoot(l.basePath, key)
}

// Exists takes a key and returns true if the file exists and can be opened
func (l *LocalStore) Exists(_ context.Context, key string) bool {
	key, err := cleanKey(key)
	if err != nil {
		return false
	}

	f, err := os.OpenInRoot(l.basePath, key)
	if err != nil {
		return false
	}

	defer f.Close() // overkill to consider errors if only checking existence
	return true
}

func (l *LocalStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(l.basePath, key)); err != nil {
		// already gone counts as deleted
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("cannot delete asset %q: %w", key, err)
	}

	return nil
}
