// Package blobstore persists opaque binary artifacts, such as
// synthesized voiceover audio, under string keys.
package blobstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// AudioNamespace prefixes the keys under which voiceover audio
// artifacts are committed.
const AudioNamespace = "audio"

// AudioKey builds the blob key for a voiceover filename.
func AudioKey(filename string) string {
	return AudioNamespace + "/" + filename
}

// Store is the blob store contract the voiceover subsystem relies on.
// Commits are idempotent: writing the same key twice overwrites.
type Store interface {
	Commit(key string, data []byte, mimetype string) error
	Get(key string) ([]byte, error)
}

// FileStore persists blobs as files under a root directory, with a
// sidecar index recording each blob's mimetype.
type FileStore struct {
	mu    sync.Mutex
	root  string
	index map[string]string // key -> mimetype
}

// NewFileStore creates a file-backed blob store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}

	fs := &FileStore{
		root:  dir,
		index: make(map[string]string),
	}
	fs.loadIndex()
	return fs, nil
}

// Commit writes the blob under key, overwriting any previous content.
func (fs *FileStore) Commit(key string, data []byte, mimetype string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}

	fs.index[key] = mimetype
	fs.saveIndex()

	log.Debug("blob committed", "key", key, "bytes", len(data), "mimetype", mimetype)
	return nil
}

// Get reads the blob stored under key.
func (fs *FileStore) Get(key string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return data, nil
}

// Mimetype returns the recorded mimetype for key, if any.
func (fs *FileStore) Mimetype(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	mimetype, ok := fs.index[key]
	return mimetype, ok
}

// pathFor maps a blob key to a path under the root, rejecting keys
// that would escape it.
func (fs *FileStore) pathFor(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(fs.root, cleaned), nil
}

func (fs *FileStore) indexPath() string {
	return filepath.Join(fs.root, "blob_index.json")
}

func (fs *FileStore) loadIndex() {
	data, err := os.ReadFile(fs.indexPath())
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &fs.index); err != nil {
		// Corrupted index; mimetypes are advisory, start fresh.
		fs.index = make(map[string]string)
	}
}

func (fs *FileStore) saveIndex() {
	data, err := json.Marshal(fs.index)
	if err != nil {
		return
	}
	if err := os.WriteFile(fs.indexPath(), data, 0o644); err != nil {
		log.Warn("failed to save blob index", "error", err)
	}
}
