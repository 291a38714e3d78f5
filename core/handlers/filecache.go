package handlers

import (
	"container/list"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// fileCache keeps recently served file contents, evicting least recently
// used entries beyond maxFiles. An entry is reused only while the file's
// size and modification time are unchanged.
type fileCache struct {
	mu       sync.Mutex
	entries  map[cacheKey]*list.Element
	lru      *list.List
	maxFiles int
	maxSize  int64
}

type cacheKey struct {
	fs   afero.Fs
	path string
}

type cacheEntry struct {
	key     cacheKey
	modTime time.Time
	size    int64
	data    []byte
}

// Files larger than this are read on every request
const maxCachedFileSize = 1 << 20

func newFileCache(maxFiles int) *fileCache {
	return &fileCache{
		entries:  make(map[cacheKey]*list.Element),
		lru:      list.New(),
		maxFiles: maxFiles,
		maxSize:  maxCachedFileSize,
	}
}

var staticCache = newFileCache(1000)

// read returns the contents of name below root on base. Directories report
// os.ErrNotExist so callers can treat them as missing.
func (fc *fileCache) read(base afero.Fs, root, name string) ([]byte, error) {
	fsys := afero.NewBasePathFs(base, root)
	info, err := fsys.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, os.ErrNotExist
	}

	key := cacheKey{fs: base, path: path.Join(root, name)}

	fc.mu.Lock()
	if el, ok := fc.entries[key]; ok {
		e := el.Value.(*cacheEntry)
		if e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
			fc.lru.MoveToFront(el)
			fc.mu.Unlock()
			return e.data, nil
		}
		fc.lru.Remove(el)
		delete(fc.entries, key)
	}
	fc.mu.Unlock()

	data, err := afero.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > fc.maxSize {
		return data, nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	if el, ok := fc.entries[key]; ok {
		fc.lru.Remove(el)
	}
	fc.entries[key] = fc.lru.PushFront(&cacheEntry{
		key:     key,
		modTime: info.ModTime(),
		size:    info.Size(),
		data:    data,
	})

	for fc.lru.Len() > fc.maxFiles {
		oldest := fc.lru.Back()
		fc.lru.Remove(oldest)
		delete(fc.entries, oldest.Value.(*cacheEntry).key)
	}
	return data, nil
}

func (fc *fileCache) len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lru.Len()
}

// contentType maps a file extension to a MIME type
func contentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".xml":
		return "application/xml; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".gz":
		return "application/gzip"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
