package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const tmpSuffix = ".tmp"

// FSStore stores artifacts on a billy filesystem rooted at the data directory.
// It is safe for concurrent use; billy filesystems such as memfs are not,
// so every call holds mu.
type FSStore struct {
	mu sync.RWMutex
	fs billy.Filesystem
}

// NewFSStore wraps an existing billy filesystem (memfs in tests)
func NewFSStore(fs billy.Filesystem) *FSStore {
	return &FSStore{fs: fs}
}

// NewOSStore stores artifacts under dir on the local disk
func NewOSStore(dir string) *FSStore {
	return NewFSStore(osfs.New(dir))
}

// Filesystem returns the underlying filesystem
func (s *FSStore) Filesystem() billy.Filesystem {
	return s.fs
}

// Put writes to a temporary sibling and renames it over key
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return fmt.Errorf("fs: mkdirall %q: %w", path.Dir(key), err)
	}

	tmp := key + tmpSuffix
	if err := util.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("fs: write %q: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, key); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("fs: rename %q: %w", key, err)
	}
	return nil
}

// Get reads an artifact
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := util.ReadFile(s.fs, key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("fs: read %q: %w", key, err)
	}
	return data, nil
}

// List walks the tree and returns keys starting with prefix
func (s *FSStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	if err := s.walk("/", prefix, &keys); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FSStore) walk(dir, prefix string, keys *[]string) error {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("fs: readdir %q: %w", dir, err)
	}
	for _, entry := range entries {
		p := path.Join(dir, entry.Name())
		key := strings.TrimPrefix(p, "/")
		if entry.IsDir() {
			// only descend into directories that can hold matching keys
			if strings.HasPrefix(key+"/", prefix) || strings.HasPrefix(prefix, key+"/") {
				if err := s.walk(p, prefix, keys); err != nil {
					return err
				}
			}
			continue
		}
		if strings.HasSuffix(key, tmpSuffix) || !strings.HasPrefix(key, prefix) {
			continue
		}
		*keys = append(*keys, key)
	}
	return nil
}
