package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// IndexFileName is the name of the JSON index inside the cache directory
const IndexFileName = "cache_info.json"

// BucketName is the bbolt bucket holding cache entries
const BucketName = "analysis_cache"

// Entry records where the output of a named analysis lives and which input
// produced it.
type Entry struct {
	Name      string    `json:"-"`
	Hash      string    `json:"hash"`
	OutputRef string    `json:"output_ref"`
	Timestamp time.Time `json:"timestamp"`
}

// Index persists cache entries by name. Implementations assume a single
// writer per cache directory.
type Index interface {
	Get(name string) (Entry, bool, error)
	Put(entry Entry) error
	Delete(name string) error
	List() ([]Entry, error)
	Clear() error
	Close() error
}

// JSONIndex keeps every entry in one JSON file. Each write replaces the file
// through a temp file and rename, so readers see the old or the new index.
type JSONIndex struct {
	dir  string
	path string
}

// NewJSONIndex returns an index stored in dir/cache_info.json
func NewJSONIndex(dir string) *JSONIndex {
	return &JSONIndex{dir: dir, path: filepath.Join(dir, IndexFileName)}
}

// Path returns the index file location
func (j *JSONIndex) Path() string {
	return j.path
}

func (j *JSONIndex) load() (map[string]Entry, error) {
	entries := make(map[string]Entry)
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("failed to read cache index: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cache index %s: %w", j.path, err)
	}
	for name, e := range entries {
		e.Name = name
		entries[name] = e
	}
	return entries, nil
}

func (j *JSONIndex) store(entries map[string]Entry) error {
	if err := os.MkdirAll(j.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache index: %w", err)
	}

	tmp, err := os.CreateTemp(j.dir, ".cache_info-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp index: %w", err)
	}
	if err := os.Rename(tmpPath, j.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace cache index: %w", err)
	}
	return nil
}

func (j *JSONIndex) Get(name string) (Entry, bool, error) {
	entries, err := j.load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := entries[name]
	return e, ok, nil
}

func (j *JSONIndex) Put(entry Entry) error {
	entries, err := j.load()
	if err != nil {
		// an unreadable index is replaced rather than blocking new entries
		entries = make(map[string]Entry)
	}
	entries[entry.Name] = entry
	return j.store(entries)
}

func (j *JSONIndex) Delete(name string) error {
	entries, err := j.load()
	if err != nil {
		return err
	}
	if _, ok := entries[name]; !ok {
		return nil
	}
	delete(entries, name)
	return j.store(entries)
}

func (j *JSONIndex) List() ([]Entry, error) {
	entries, err := j.load()
	if err != nil {
		return nil, err
	}
	return sortedEntries(entries), nil
}

func (j *JSONIndex) Clear() error {
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache index: %w", err)
	}
	return nil
}

func (j *JSONIndex) Close() error { return nil }

// BoltIndex stores entries in a bbolt database
type BoltIndex struct {
	db *bolt.DB
}

// OpenBoltIndex opens (or creates) a bbolt index at path
func OpenBoltIndex(path string) (*BoltIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}
	return &BoltIndex{db: db}, nil
}

func (b *BoltIndex) Get(name string) (Entry, bool, error) {
	var (
		entry Entry
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketName))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		data := bucket.Get([]byte(name))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return Entry{}, false, err
	}
	entry.Name = name
	return entry, found, nil
}

func (b *BoltIndex) Put(entry Entry) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		if err != nil {
			return err
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(entry.Name), data)
	})
}

func (b *BoltIndex) Delete(name string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketName))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(name))
	})
}

func (b *BoltIndex) List() ([]Entry, error) {
	entries := make(map[string]Entry)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketName))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			e.Name = string(k)
			entries[e.Name] = e
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sortedEntries(entries), nil
}

func (b *BoltIndex) Clear() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(BucketName)) != nil {
			if err := tx.DeleteBucket([]byte(BucketName)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket([]byte(BucketName))
		return err
	})
}

func (b *BoltIndex) Close() error {
	return b.db.Close()
}

func sortedEntries(m map[string]Entry) []Entry {
	out := make([]Entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Index backends accepted by OpenIndex
const (
	BackendJSON = "json"
	BackendBolt = "bolt"
)

// OpenIndex opens the index backend for a cache directory
func OpenIndex(dir, backend string) (Index, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONIndex(dir), nil
	case BackendBolt:
		idx, err := OpenBoltIndex(filepath.Join(dir, "cache.db"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
