// ABOUTME: Charm KV client wrapper used as a synced key-value backend for health records.
// ABOUTME: Provides thread-safe initialization and automatic cloud sync after writes.
package charm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/healthlog/internal/storage"
)

const (
	// DBName is the Charm KV database holding health records.
	DBName    = "healthlog"
	charmHost = "charm.2389.dev"
)

var (
	globalClient *Client
	clientOnce   sync.Once
	clientErr    error
)

// Client implements storage.KVBackend on a Charm KV database.
type Client struct {
	kv       *kv.KV
	autoSync bool
	mu       sync.RWMutex
}

var _ storage.KVBackend = (*Client)(nil)

// InitClient initializes the global Charm client.
// Thread-safe; can be called multiple times.
func InitClient() (*Client, error) {
	clientOnce.Do(func() {
		// Set server before opening KV
		if os.Getenv("CHARM_HOST") == "" {
			if err := os.Setenv("CHARM_HOST", charmHost); err != nil {
				clientErr = err
				return
			}
		}

		db, err := kv.OpenWithDefaultsFallback(DBName)
		if err != nil {
			clientErr = err
			return
		}

		globalClient = &Client{
			kv:       db,
			autoSync: true,
		}

		// Pull remote data on startup (skip in read-only mode)
		if !db.IsReadOnly() {
			_ = db.Sync()
		}
	})

	return globalClient, clientErr
}

// OpenStore returns a Repository backed by the global Charm client.
func OpenStore() (*storage.KVStore, error) {
	c, err := InitClient()
	if err != nil {
		return nil, fmt.Errorf("open charm kv: %w", err)
	}
	return storage.NewKVStore(c), nil
}

// Close closes the KV database connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv != nil {
		return c.kv.Close()
	}
	return nil
}

// IsReadOnly returns true if the database is open in read-only mode.
// This happens when another process (like an MCP server) holds the lock.
func (c *Client) IsReadOnly() bool {
	return c.kv.IsReadOnly()
}

// Sync synchronizes local state with Charm Cloud.
func (c *Client) Sync() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.kv.IsReadOnly() {
		return nil
	}
	return c.kv.Sync()
}

func (c *Client) syncIfEnabled() {
	if c.autoSync && !c.kv.IsReadOnly() {
		_ = c.kv.Sync()
	}
}

// SetAutoSync enables or disables automatic sync after writes.
func (c *Client) SetAutoSync(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoSync = enabled
}

// ID returns the Charm user ID for the current account.
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("create charm client: %w", err)
	}
	return cc.ID()
}

// Get returns the value stored at key.
func (c *Client) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, err := c.kv.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return val, err
}

// Set stores a value with the given key.
func (c *Client) Set(key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return storage.ErrReadOnly
	}

	if err := c.kv.Set(key, value); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// Delete removes a key.
func (c *Client) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return storage.ErrReadOnly
	}

	if err := c.kv.Delete(key); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// Scan visits every key with prefix in key order. Keys are listed first and
// values fetched one by one, so a concurrent sync may interleave.
func (c *Client) Scan(prefix []byte, fn func(key, value []byte) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys, err := c.kv.Keys()
	if err != nil {
		return err
	}

	for _, key := range matchPrefix(keys, prefix) {
		val, err := c.kv.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(key, val); err != nil {
			return err
		}
	}
	return nil
}

// matchPrefix returns the keys starting with prefix, sorted.
func matchPrefix(keys [][]byte, prefix []byte) [][]byte {
	var out [][]byte
	for _, key := range keys {
		if bytes.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i], out[j]) < 0
	})
	return out
}
