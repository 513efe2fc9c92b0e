// Package cache stores completed translations in BadgerDB.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"golang.org/x/text/unicode/norm"
)

// DefaultTTL is how long a cached translation stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// keyPrefix namespaces translation entries inside the database.
const keyPrefix = "tr:"

// Usage mirrors the token counts recorded for the original request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Entry is one cached translation.
type Entry struct {
	Language  string    `json:"language"`
	Text      string    `json:"text"`
	Usage     Usage     `json:"usage"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configures a Cache.
type Options struct {
	// Dir is the on-disk location. Required unless InMemory is set.
	Dir string
	// InMemory keeps everything in memory.
	InMemory bool
}

// Cache is a translation cache backed by BadgerDB.
type Cache struct {
	db *badger.DB
}

// New opens the cache.
func New(opts Options) (*Cache, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("cache: dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(slogLogger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the entry stored under key.
func (c *Cache) Get(key string) (*Entry, bool) {
	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("read cache entry", "error", err)
		}
		return nil, false
	}
	return &entry, true
}

// Set stores entry under key for ttl. A zero ttl never expires.
func (c *Cache) Set(key string, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	e := badger.NewEntry([]byte(keyPrefix+key), data)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	}); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// Clear drops every cached translation.
func (c *Cache) Clear() error {
	if err := c.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return fmt.Errorf("drop entries: %w", err)
	}
	return nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GenerateKey derives a stable key from its parts. Text is NFC-normalized
// so visually identical input shares an entry.
func GenerateKey(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(norm.NFC.String(strings.TrimSpace(p))))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// slogLogger routes badger's warnings and errors to slog.
type slogLogger struct{}

func (slogLogger) Errorf(f string, v ...any) {
	slog.Error("badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)))
}
func (slogLogger) Warningf(f string, v ...any) {
	slog.Warn("badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)))
}
func (slogLogger) Infof(string, ...any)  {}
func (slogLogger) Debugf(string, ...any) {}
