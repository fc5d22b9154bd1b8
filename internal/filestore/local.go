package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type localStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return NewLocalStore(config.Dir), nil
}

func NewLocalStore(dir string) Store {
	return &localStore{dir: dir}
}

func (s *localStore) Type() string {
	return "local"
}

// Save writes through a temp file so a failed copy never leaves a
// truncated source behind.
func (s *localStore) Save(ctx context.Context, key string, r ReadSeekCloser, size int64) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: file key %q", appErr.ErrInvalid, key)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+key+".*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, key))
}

func (s *localStore) Open(ctx context.Context, key string) (ReadSeekCloser, error) {
	if !ValidKey(key) {
		return nil, fmt.Errorf("%w: file key %q", appErr.ErrInvalid, key)
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}
