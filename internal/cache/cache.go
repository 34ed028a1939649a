// Package cache keeps translated outputs on disk so unchanged inputs are not
// translated again.
package cache

import (
	"crypto/md5"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gnolang/sqlrender/translate"
)

const fileName = "translate_cache.gob"

type Entry struct {
	Output       string
	CreatedAt    time.Time
	LastAccessed time.Time
}

type Cache struct {
	Dir     string
	entries map[string]Entry
	mutex   sync.RWMutex
	maxAge  time.Duration
}

// New opens the cache stored in dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		Dir:     dir,
		entries: make(map[string]Entry),
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return c, nil
}

func (c *Cache) path() string {
	return filepath.Join(c.Dir, fileName)
}

func (c *Cache) load() error {
	file, err := os.Open(c.path())
	if os.IsNotExist(err) {
		return nil // nothing cached yet
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	return nil
}

// save must be called with the mutex held.
func (c *Cache) save() error {
	file, err := os.Create(c.path())
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

// Key identifies the translation of content under a rule-set fingerprint.
func Key(fingerprint string, content []byte) string {
	h := md5.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write(content)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Fingerprint summarizes everything that affects a translation result.
func Fingerprint(dialect string, maxIterations int, rules []translate.Rule) string {
	h := md5.New()
	h.Write([]byte(dialect))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(maxIterations)))
	for _, r := range rules {
		h.Write([]byte{0})
		h.Write([]byte(r.Pattern))
		h.Write([]byte{0})
		h.Write([]byte(r.Replacement))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (c *Cache) Set(key, output string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	c.entries[key] = Entry{
		Output:       output,
		CreatedAt:    now,
		LastAccessed: now,
	}
	return c.save()
}

func (c *Cache) Get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return "", false
	}
	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		delete(c.entries, key)
		return "", false
	}

	entry.LastAccessed = time.Now()
	c.entries[key] = entry
	return entry.Output, true
}

func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// SetMaxAge expires entries older than duration. Zero keeps entries forever.
func (c *Cache) SetMaxAge(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxAge = duration
}

func (c *Cache) InvalidateAll() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]Entry)
	return c.save()
}
