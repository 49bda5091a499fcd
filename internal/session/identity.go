package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewUserID returns a fresh player id.
func NewUserID() string {
	return "user-" + uuid.NewString()
}

// ResolveUserID picks the player id: the configured one if set, otherwise the
// id remembered in path, otherwise a new id that is then written to path so
// the next run resumes the same game. An empty path remembers nothing.
func ResolveUserID(configured, path string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if path == "" {
		return NewUserID(), nil
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("reading player id: %w", err)
	}

	id := NewUserID()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating player id directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0644); err != nil {
		return "", fmt.Errorf("writing player id: %w", err)
	}
	return id, nil
}
