package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// Layout names.
const (
	SharedNamespace = "shared"
	DebugDir        = "string"
)

// DefaultMemoryEntries is the size of the in-memory tier.
const DefaultMemoryEntries = 1024

var magic = []byte("KPB1")

const headerSize = 4 + 8 // magic + xxhash64 of the payload

// Cache stores per-document component results under
//
//	<root>/<namespace>/<component>/<document_id>
//
// Entries are snappy-compressed JSON behind a checksummed header and are
// published with write-then-rename. A human-readable rendering can be kept
// under <root>/<namespace>/string/. Caches derived with Sub share the
// memory tier.
type Cache struct {
	root      string
	namespace string
	mem       *lru.Cache[string, []byte]
	logger    *slog.Logger
}

// Open creates the cache root if needed. memEntries <= 0 uses
// DefaultMemoryEntries.
func Open(root string, memEntries int, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if memEntries <= 0 {
		memEntries = DefaultMemoryEntries
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	mem, err := lru.New[string, []byte](memEntries)
	if err != nil {
		return nil, fmt.Errorf("create memory tier: %w", err)
	}
	return &Cache{root: root, namespace: SharedNamespace, mem: mem, logger: logger}, nil
}

// Sub returns a view of the cache under another namespace, typically a run
// name.
func (c *Cache) Sub(namespace string) *Cache {
	return &Cache{root: c.root, namespace: namespace, mem: c.mem, logger: c.logger}
}

// Namespace returns the namespace of the view.
func (c *Cache) Namespace() string { return c.namespace }

// Path returns the file of an entry.
func (c *Cache) Path(component, docID string) string {
	return filepath.Join(c.root, c.namespace, component, docID)
}

// DebugPath returns the file of the readable rendering of an entry.
func (c *Cache) DebugPath(component, docID string) string {
	return filepath.Join(c.root, c.namespace, DebugDir, component, docID)
}

// Put stores v as the entry of (component, docID). A non-empty debug string
// is written alongside.
func (c *Cache) Put(component, docID string, v any, debug string) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", component, docID, err)
	}
	path := c.Path(component, docID)
	if err := writeAtomic(path, encode(payload)); err != nil {
		return err
	}
	c.mem.Add(path, payload)

	if debug != "" {
		if err := writeAtomic(c.DebugPath(component, docID), []byte(debug)); err != nil {
			return err
		}
	}
	c.logger.Debug("cache store", "component", component, "doc", docID, "bytes", len(payload))
	return nil
}

// Get loads the entry of (component, docID) into v. A missing entry is a
// CacheError wrapping ErrCacheMiss; a corrupt one also wraps ErrCorruptEntry
// and counts as missing.
func (c *Cache) Get(component, docID string, v any) error {
	path := c.Path(component, docID)
	payload, ok := c.mem.Get(path)
	if !ok {
		raw, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("cache miss", "component", component, "doc", docID)
			return &internalerr.CacheError{Component: component, DocID: docID, Err: internalerr.ErrCacheMiss}
		}
		if err != nil {
			return &internalerr.CacheError{Component: component, DocID: docID, Err: err}
		}
		if payload, err = decode(raw); err != nil {
			return c.corrupt(component, docID, err)
		}
	}
	if err := json.Unmarshal(payload, v); err != nil {
		c.mem.Remove(path)
		return c.corrupt(component, docID, err)
	}
	c.mem.Add(path, payload)
	c.logger.Debug("cache hit", "component", component, "doc", docID)
	return nil
}

func (c *Cache) corrupt(component, docID string, cause error) error {
	c.logger.Warn("corrupt cache entry", "component", component, "doc", docID, "err", cause)
	return &internalerr.CacheError{
		Component: component,
		DocID:     docID,
		Err:       fmt.Errorf("%w: %w: %v", internalerr.ErrCacheMiss, internalerr.ErrCorruptEntry, cause),
	}
}

// Has reports whether an entry exists, without validating it.
func (c *Cache) Has(component, docID string) bool {
	path := c.Path(component, docID)
	if c.mem.Contains(path) {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

// Purge drops the memory tier.
func (c *Cache) Purge() {
	c.mem.Purge()
}

func encode(payload []byte) []byte {
	compressed := snappy.Encode(nil, payload)
	out := make([]byte, headerSize+len(compressed))
	copy(out, magic)
	binary.LittleEndian.PutUint64(out[len(magic):headerSize], xxhash.Sum64(compressed))
	copy(out[headerSize:], compressed)
	return out
}

func decode(raw []byte) ([]byte, error) {
	if len(raw) < headerSize || !bytes.Equal(raw[:len(magic)], magic) {
		return nil, errors.New("bad header")
	}
	compressed := raw[headerSize:]
	if binary.LittleEndian.Uint64(raw[len(magic):headerSize]) != xxhash.Sum64(compressed) {
		return nil, errors.New("checksum mismatch")
	}
	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return payload, nil
}

// writeAtomic publishes data at path through a synced temporary file and a
// rename, so readers never see a partial entry.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write entry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish entry: %w", err)
	}
	return nil
}
