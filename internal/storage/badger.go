// ABOUTME: Local Badger key-value backend for KVStore.
// ABOUTME: Scans run inside a single read transaction for point-in-time snapshots.
package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v3"
)

// BadgerBackend stores keys in a local Badger database.
type BadgerBackend struct {
	db *badger.DB
}

var _ KVBackend = (*BadgerBackend)(nil)

// OpenBadger opens or creates a Badger database in dir. Badger's internal
// messages go to logger at debug level; a nil logger silences them.
func OpenBadger(dir string, logger *log.Logger) (*BadgerBackend, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	if logger != nil {
		opts = opts.WithLogger(badgerLogger{logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

// OpenBadgerStore opens a Badger-backed Repository in dir.
func OpenBadgerStore(dir string, logger *log.Logger) (*KVStore, error) {
	b, err := OpenBadger(dir, logger)
	if err != nil {
		return nil, err
	}
	return NewKVStore(b), nil
}

func (b *BadgerBackend) Get(key []byte) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value, err
}

func (b *BadgerBackend) Set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *BadgerBackend) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Scan iterates keys with prefix in order inside one read transaction.
func (b *BadgerBackend) Scan(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

// badgerLogger adapts a charm logger to badger.Logger. Badger is chatty at
// info, so everything below error is demoted to debug.
type badgerLogger struct {
	l *log.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{})   { b.l.Errorf(format, args...) }
func (b badgerLogger) Warningf(format string, args ...interface{}) { b.l.Warnf(format, args...) }
func (b badgerLogger) Infof(format string, args ...interface{})    { b.l.Debugf(format, args...) }
func (b badgerLogger) Debugf(format string, args ...interface{})   { b.l.Debugf(format, args...) }
