package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"

	"github.com/himanishpuri/bandprint/pkg/models"
)

const DefaultBadgerDir = "bandprint.badger"

// Every data point is its own key: hash (8 bytes) | song ID (4) | time (4),
// all big-endian, with an empty value. A bucket is the key prefix of its
// hash, so appends never rewrite existing values and keys within a bucket
// iterate in song ID then time order.
const (
	hashKeyLen  = 8
	entryKeyLen = hashKeyLen + 8
)

// BadgerIndex is a FingerprintStore backed by an embedded Badger database.
type BadgerIndex struct {
	db *badger.DB
}

// OpenBadgerIndex opens (or creates) the index in dir. An empty dir opens
// an in-memory database.
func OpenBadgerIndex(dir string) (*BadgerIndex, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating badger dir: %w", err)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &BadgerIndex{db: db}, nil
}

func (b *BadgerIndex) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func hashPrefix(hash int64) []byte {
	key := make([]byte, hashKeyLen)
	binary.BigEndian.PutUint64(key, uint64(hash))
	return key
}

func entryKey(e Entry) []byte {
	key := make([]byte, entryKeyLen)
	binary.BigEndian.PutUint64(key, uint64(e.Hash))
	binary.BigEndian.PutUint32(key[8:], e.Point.SongID)
	binary.BigEndian.PutUint32(key[12:], uint32(e.Point.Time))
	return key
}

func decodeEntryKey(key []byte) (models.DataPoint, bool) {
	if len(key) != entryKeyLen {
		return models.DataPoint{}, false
	}
	return models.DataPoint{
		SongID: binary.BigEndian.Uint32(key[8:]),
		Time:   int(binary.BigEndian.Uint32(key[12:])),
	}, true
}

func (b *BadgerIndex) Store(ctx context.Context, entries []Entry) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for i, e := range entries {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := wb.Set(entryKey(e), nil); err != nil {
			return fmt.Errorf("badger set: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger flush: %w", err)
	}
	return nil
}

func (b *BadgerIndex) Lookup(ctx context.Context, hash int64) ([]models.DataPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []models.DataPoint
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = hashPrefix(hash)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			if dp, ok := decodeEntryKey(it.Item().Key()); ok {
				out = append(out, dp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger lookup: %w", err)
	}
	return out, nil
}

// DeleteFingerprints scans the whole keyspace; deletions are rare next to
// lookups so there is no reverse index by song.
func (b *BadgerIndex) DeleteFingerprints(ctx context.Context, songID uint32) error {
	var doomed [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if dp, ok := decodeEntryKey(key); ok && dp.SongID == songID {
				doomed = append(doomed, it.Item().KeyCopy(nil))
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return fmt.Errorf("badger scan: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range doomed {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("badger delete: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger flush: %w", err)
	}
	return nil
}

func (b *BadgerIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return ctx.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("badger count: %w", err)
	}
	return n, nil
}
