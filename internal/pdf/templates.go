package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TemplateStore loads PDF templates from a single directory. Names that
// resolve outside the directory are rejected.
type TemplateStore struct {
	dir         string
	maxFileSize int64
}

// NewTemplateStore creates a store rooted at dir
func NewTemplateStore(dir string, maxFileSize int64) (*TemplateStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("template directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template directory: %w", err)
	}
	return &TemplateStore{dir: abs, maxFileSize: maxFileSize}, nil
}

// Dir returns the absolute template directory
func (s *TemplateStore) Dir() string {
	return s.dir
}

// Load reads the named template
func (s *TemplateStore) Load(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, &TemplateError{Name: name, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &TemplateError{Name: name, Err: err}
	}
	if info.IsDir() {
		return nil, &TemplateError{Name: name, Err: fmt.Errorf("path is a directory")}
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return nil, &TemplateError{Name: name, Err: fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), s.maxFileSize)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TemplateError{Name: name, Err: err}
	}
	if len(data) == 0 {
		return nil, &TemplateError{Name: name, Err: ErrEmptyDocument}
	}
	return data, nil
}

// List returns the names of the PDF templates in the directory
func (s *TemplateStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// resolve maps a template name to a path inside the store directory,
// following symlinks on both sides before comparing.
func (s *TemplateStore) resolve(name string) (string, error) {
	name = strings.ReplaceAll(name, "\x00", "")
	if name == "" {
		return "", fmt.Errorf("template name cannot be empty")
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}
	path = filepath.Clean(path)

	realDir := s.dir
	if resolved, err := filepath.EvalSymlinks(s.dir); err == nil {
		realDir = resolved
	}
	realPath := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		realPath = resolved
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if !within(path, s.dir, realDir) || !within(realPath, s.dir, realDir) {
		return "", fmt.Errorf("path is outside template directory: %s", name)
	}
	return path, nil
}

func within(path string, dirs ...string) bool {
	for _, dir := range dirs {
		prefix := dir
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
