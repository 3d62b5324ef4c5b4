package voiceovercache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// RecordStore is the key-value persistence contract the cache runs
// over. Implementations must provide atomic per-key read and write;
// last-writer-wins between concurrent writers is acceptable.
type RecordStore interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Len() int
}

// MemoryStore is an in-memory record store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Get returns the record stored under key.
func (ms *MemoryStore) Get(key string) ([]byte, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	value, ok := ms.records[key]
	if !ok {
		return nil, false
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, true
}

// Put stores value under key, overwriting any previous record.
func (ms *MemoryStore) Put(key string, value []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	copied := make([]byte, len(value))
	copy(copied, value)
	ms.records[key] = copied
	return nil
}

// Len returns the number of stored records.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.records)
}

// DiskStore persists records as zstd-compressed files under a base
// directory, with a JSON index for key lookup.
type DiskStore struct {
	mu       sync.Mutex
	basePath string
	index    map[string]*diskRecord

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

type diskRecord struct {
	Key       string    `json:"key"`
	FileName  string    `json:"file_name"`
	Size      int64     `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDiskStore creates a disk-backed record store at basePath,
// loading any existing index.
func NewDiskStore(basePath string) (*DiskStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create record store directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	ds := &DiskStore{
		basePath: basePath,
		index:    make(map[string]*diskRecord),
		encoder:  encoder,
		decoder:  decoder,
	}
	if err := ds.loadIndex(); err != nil {
		// Missing or corrupted index; start fresh.
		ds.index = make(map[string]*diskRecord)
	}
	return ds, nil
}

// Get reads and decompresses the record stored under key.
func (ds *DiskStore) Get(key string) ([]byte, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	record, ok := ds.index[key]
	if !ok {
		return nil, false
	}

	compressed, err := os.ReadFile(filepath.Join(ds.basePath, record.FileName))
	if err != nil {
		// File missing or unreadable; drop the index entry.
		delete(ds.index, key)
		return nil, false
	}

	value, err := ds.decoder.DecodeAll(compressed, nil)
	if err != nil {
		delete(ds.index, key)
		_ = os.Remove(filepath.Join(ds.basePath, record.FileName))
		return nil, false
	}
	return value, true
}

// Put compresses and writes the record under key, then updates the
// index. The write replaces any previous record at the key.
func (ds *DiskStore) Put(key string, value []byte) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	fileName := recordFileName(key)
	compressed := ds.encoder.EncodeAll(value, nil)

	if err := os.WriteFile(filepath.Join(ds.basePath, fileName), compressed, 0o644); err != nil {
		return fmt.Errorf("failed to write record file: %w", err)
	}

	ds.index[key] = &diskRecord{
		Key:       key,
		FileName:  fileName,
		Size:      int64(len(compressed)),
		Timestamp: time.Now(),
	}
	return ds.saveIndex()
}

// Len returns the number of indexed records.
func (ds *DiskStore) Len() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.index)
}

// Close flushes the index and releases the compressor.
func (ds *DiskStore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	err := ds.saveIndex()
	ds.decoder.Close()
	if closeErr := ds.encoder.Close(); err == nil {
		err = closeErr
	}
	return err
}

// recordFileName derives a filesystem-safe file name from a record
// key. Keys contain colons, so the name is a hash of the key rather
// than the key itself.
func recordFileName(key string) string {
	digest := sha256.Sum256([]byte(key))
	return hex.EncodeToString(digest[:16]) + ".rec"
}

func (ds *DiskStore) indexPath() string {
	return filepath.Join(ds.basePath, "record_index.json")
}

func (ds *DiskStore) loadIndex() error {
	data, err := os.ReadFile(ds.indexPath())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &ds.index)
}

func (ds *DiskStore) saveIndex() error {
	data, err := json.MarshalIndent(ds.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ds.indexPath(), data, 0o644)
}
