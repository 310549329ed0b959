package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// ErrInvalidName is returned for output names that are not a single path element
var ErrInvalidName = errors.New("invalid output name")

// ErrOutputNotFound is returned by Fetch for unknown names
var ErrOutputNotFound = errors.New("output not found")

// OutputStore persists rendered images and returns their public URL
type OutputStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Fetch(ctx context.Context, name string) ([]byte, error)
	Backend() string
}

// LocalStore writes outputs into a directory served under a URL prefix
type LocalStore struct {
	dir    string
	prefix string
}

// NewLocalStore creates the output directory if needed
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &LocalStore{dir: dir, prefix: urlPrefix}, nil
}

// Save writes data to dir/name
func (s *LocalStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path.Join(s.prefix, name), nil
}

// Fetch reads dir/name
func (s *LocalStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrOutputNotFound, name)
	}
	return data, err
}

// Dir returns the directory outputs are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

// Backend returns the backend identifier
func (s *LocalStore) Backend() string {
	return "local"
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || path.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
