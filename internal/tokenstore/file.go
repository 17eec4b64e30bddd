package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores the slot in a small JSON key/value file. Writes go to a
// temporary file that replaces the original, under an exclusive lock on a
// sidecar ".lock" file so several processes can share the slot.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, errors.New("token file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create token directory: %w", err)
	}
	return &FileBackend{path: path}, nil
}

// Path returns the location of the token file.
func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var token string
	err := f.withLock(func() error {
		values, err := f.read()
		if err != nil {
			return err
		}
		value, ok := values[Key]
		if !ok {
			return ErrNotFound
		}
		token = value
		return nil
	})
	return token, err
}

func (f *FileBackend) Save(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.withLock(func() error {
		values, err := f.read()
		if err != nil {
			return err
		}
		values[Key] = token
		return f.write(values)
	})
}

func (f *FileBackend) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.withLock(func() error {
		values, err := f.read()
		if err != nil {
			return err
		}
		if _, ok := values[Key]; !ok {
			return nil
		}
		delete(values, Key)
		if len(values) == 0 {
			if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			return nil
		}
		return f.write(values)
	})
}

func (f *FileBackend) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return values, nil
}

func (f *FileBackend) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

func (f *FileBackend) withLock(fn func() error) error {
	lock, err := os.OpenFile(f.path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer lock.Close()
	if err := lockFile(lock); err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer unlockFile(lock)
	return fn()
}
