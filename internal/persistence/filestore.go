package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/franco-game/internal/models"
)

// DefaultSaveDir is where FileStore keeps snapshots when none is configured.
const DefaultSaveDir = ".saves"

// FileStore keeps one YAML snapshot per user in a directory. It is used when
// no remote endpoint is configured.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultSaveDir
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) path(userID string) string {
	return filepath.Join(s.dir, url.PathEscape(userID)+".yaml")
}

func (s *FileStore) Save(ctx context.Context, userID string, snap models.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}

	// Write then rename so a reader never sees half a file.
	tmp, err := os.CreateTemp(s.dir, ".save-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(userID))
}

func (s *FileStore) Load(ctx context.Context, userID string) (*models.Snapshot, error) {
	data, err := os.ReadFile(s.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var snap models.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if snap.CurrentRoom == "" {
		return nil, fmt.Errorf("%w: missing current_room", ErrMalformed)
	}
	if snap.Inventory == nil {
		snap.Inventory = []string{}
	}
	return &snap, nil
}

func (s *FileStore) Delete(ctx context.Context, userID string) error {
	err := os.Remove(s.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Ping checks that the save directory can be created.
func (s *FileStore) Ping(ctx context.Context) error {
	return os.MkdirAll(s.dir, 0755)
}

// ListUsers returns the users that have a save, sorted.
func (s *FileStore) ListUsers() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	users := []string{}
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".yaml")
		if entry.IsDir() || !ok {
			continue
		}
		if user, err := url.PathUnescape(name); err == nil {
			users = append(users, user)
		}
	}
	sort.Strings(users)
	return users, nil
}
