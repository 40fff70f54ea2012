package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// PreferencesFile is the file name FileService uses inside its directory.
const PreferencesFile = "preferences.yaml"

// document is the on-disk layout.
type document struct {
	Values map[string]string `yaml:"values"`
}

// FileService stores values in a YAML document in the user's
// configuration directory. The whole document is rewritten on every Save.
type FileService struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	loaded bool
	logger *zap.Logger
}

// NewFileService stores values at path. A nil logger discards output.
func NewFileService(path string, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{path: path, logger: logger.Named("storage")}
}

// DefaultPath is <user config dir>/<namespace>/preferences.yaml.
func DefaultPath(namespace string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("storage: locate user config dir: %w", err)
	}
	return filepath.Join(dir, namespace, PreferencesFile), nil
}

// NewDefault creates a FileService at DefaultPath(namespace).
func NewDefault(namespace string, logger *zap.Logger) (*FileService, error) {
	path, err := DefaultPath(namespace)
	if err != nil {
		return nil, err
	}
	return NewFileService(path, logger), nil
}

// Path returns the document location.
func (f *FileService) Path() string { return f.path }

func (f *FileService) Load(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoaded(); err != nil {
		return "", false, err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *FileService) Save(_ context.Context, key string, value *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoaded(); err != nil {
		return err
	}
	if value == nil {
		if _, ok := f.values[key]; !ok {
			return nil
		}
		delete(f.values, key)
	} else {
		f.values[key] = *value
	}
	return f.write()
}

// ensureLoaded must hold mu.
func (f *FileService) ensureLoaded() error {
	if f.loaded {
		return nil
	}
	f.values = make(map[string]string)
	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f.logger.Debug("no preferences yet", zap.String("path", f.path))
	case err != nil:
		return fmt.Errorf("storage: read %s: %w", f.path, err)
	default:
		var doc document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("storage: parse %s: %w", f.path, err)
		}
		for k, v := range doc.Values {
			f.values[k] = v
		}
	}
	f.loaded = true
	return nil
}

// write replaces the document through a temp file and rename. Must hold mu.
func (f *FileService) write() error {
	data, err := yaml.Marshal(document{Values: f.values})
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("storage: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".preferences-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: replace %s: %w", f.path, err)
	}
	f.logger.Debug("preferences saved", zap.String("path", f.path), zap.Int("keys", len(f.values)))
	return nil
}
