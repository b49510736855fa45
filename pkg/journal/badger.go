package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/fystack/walletcore/pkg/logger"
)

const keyPrefix = "submission/"

// BadgerStore is a Store backed by BadgerDB. Entries are keyed by a
// zero-padded reverse timestamp so newest-first iteration is a plain forward
// scan.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the journal database. An empty
// encryption key leaves the database unencrypted.
func NewBadgerStore(dbPath string, encryptionKey []byte) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath).
		WithCompression(options.ZSTD).
		WithLogger(newQuietBadgerLogger())
	if len(encryptionKey) > 0 {
		opts = opts.WithEncryptionKey(encryptionKey).WithIndexCacheSize(100 << 20) // 100MB
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	logger.Info("Opened submission journal", "path", dbPath, "encrypted", len(encryptionKey) > 0)
	return &BadgerStore{db: db}, nil
}

func entryKey(at time.Time, signature string) []byte {
	// Reverse-ordered timestamp: later submissions sort first.
	reverse := uint64(1<<63) - uint64(at.UnixNano())
	return []byte(fmt.Sprintf("%s%020d/%s", keyPrefix, reverse, signature))
}

func (s *BadgerStore) Append(entry Entry) error {
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now().UTC()
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(entry.SubmittedAt, entry.Signature), value)
	})
}

func (s *BadgerStore) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(entries) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return fmt.Errorf("unmarshal journal entry: %w", err)
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// quietBadgerLogger forwards badger errors and warnings to the application
// logger and drops the chatty info/debug output.
type quietBadgerLogger struct{}

func newQuietBadgerLogger() badger.Logger {
	return &quietBadgerLogger{}
}

func (ql *quietBadgerLogger) Errorf(format string, args ...interface{}) {
	logger.Error("[BADGER] ERROR", nil, "message", fmt.Sprintf(format, args...))
}

func (ql *quietBadgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warn("[BADGER] WARN", "message", fmt.Sprintf(format, args...))
}

func (ql *quietBadgerLogger) Infof(format string, args ...interface{}) {}

func (ql *quietBadgerLogger) Debugf(format string, args ...interface{}) {}
