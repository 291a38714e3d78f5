package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/spf13/afero"
)

// FileStore keeps one file per document at <root>/<entity>/<id>
type FileStore struct {
	fs   afero.Fs
	root string
	mu   *sync.Mutex
}

var (
	rootLocksMu sync.Mutex
	rootLocks   = map[string]*sync.Mutex{}
)

// rootLock returns the mutex shared by every FileStore on root. Handler
// instances are built per request, so id assignment has to serialize across
// instances rather than within one.
func rootLock(root string) *sync.Mutex {
	rootLocksMu.Lock()
	defer rootLocksMu.Unlock()
	mu, ok := rootLocks[root]
	if !ok {
		mu = &sync.Mutex{}
		rootLocks[root] = mu
	}
	return mu
}

// NewFileStore creates a store rooted at root on fsys. A relative root is
// resolved against the working directory.
func NewFileStore(fsys afero.Fs, root string) *FileStore {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	} else {
		root = filepath.Clean(root)
	}
	return &FileStore{fs: fsys, root: root, mu: rootLock(root)}
}

func (s *FileStore) dir(entity string) string {
	return path.Join(s.root, entity)
}

func (s *FileStore) file(entity string, id int) string {
	return path.Join(s.root, entity, strconv.Itoa(id))
}

// Create stores doc under a fresh id
func (s *FileStore) Create(entity string, doc []byte) (int, error) {
	if !ValidEntity(entity) {
		return 0, ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(entity); err != nil {
		return 0, err
	}
	ids, err := s.list(entity)
	if err != nil {
		return 0, err
	}
	id := 1
	if len(ids) > 0 {
		id = ids[len(ids)-1] + 1
	}

	if err := afero.WriteFile(s.fs, s.file(entity, id), doc, 0o644); err != nil {
		return 0, fmt.Errorf("write %s/%d: %w", entity, id, err)
	}
	return id, nil
}

// Get returns the stored document
func (s *FileStore) Get(entity string, id int) ([]byte, error) {
	if err := checkKey(entity, id); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.file(entity, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put creates or replaces the document at id
func (s *FileStore) Put(entity string, id int, doc []byte) error {
	if err := checkKey(entity, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(entity); err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, s.file(entity, id), doc, 0o644); err != nil {
		return fmt.Errorf("write %s/%d: %w", entity, id, err)
	}
	return nil
}

// Delete removes the document at id
func (s *FileStore) Delete(entity string, id int) error {
	if err := checkKey(entity, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.fs.Remove(s.file(entity, id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// List returns the ids stored for entity in ascending order. An entity with
// no documents yields an empty list.
func (s *FileStore) List(entity string) ([]int, error) {
	if !ValidEntity(entity) {
		return nil, ErrInvalidEntity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(entity)
}

func (s *FileStore) list(entity string) ([]int, error) {
	infos, err := afero.ReadDir(s.fs, s.dir(entity))
	if errors.Is(err, fs.ErrNotExist) {
		return []int{}, nil
	}
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		// files whose names are not ids are ignored
		if id, err := ParseID(info.Name()); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (s *FileStore) ensureDir(entity string) error {
	dir := s.dir(entity)
	info, err := s.fs.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("entity path %s is not a directory", dir)
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create entity directory: %w", err)
	}
	return nil
}
