package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/logging"
)

var logger = logging.Get("history")

// Key prefixes.
const (
	prefixRecord = "r:" // r:<unix nanos, big endian><id> -> Record JSON
	prefixID     = "i:" // i:<id> -> record key
	prefixMeta   = "m:"
)

// Errors returned by the store.
var (
	// ErrNotFound is returned when no record matches an id.
	ErrNotFound = errors.New("history record not found")

	// ErrAmbiguousID is returned when an id prefix matches several records.
	ErrAmbiguousID = errors.New("history id prefix is ambiguous")

	// ErrEmptyPath is returned by Open for an empty path.
	ErrEmptyPath = errors.New("history path cannot be empty")
)

// Store is the run history backed by Badger DB.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens or creates a store at the given directory.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = badgerLogger{}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a record. A missing ID or Timestamp is filled in, so the
// caller can read both back from rec after Put returns.
func (s *Store) Put(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	key := recordKey(rec.Timestamp, rec.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte(prefixID+rec.ID), key)
	})
	if err != nil {
		return fmt.Errorf("store record %s: %w", rec.ID, err)
	}

	logger.Debug("stored run", "id", rec.ID, "archetype", rec.Archetype)
	return nil
}

// Get retrieves a record by id or by a unique id prefix.
func (s *Store) Get(id string) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		key, err := resolveID(txn, id)
		if err != nil {
			return err
		}

		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// resolveID returns the record key for an exact id or a unique prefix.
func resolveID(txn *badger.Txn, id string) ([]byte, error) {
	if item, err := txn.Get([]byte(prefixID + id)); err == nil {
		return item.ValueCopy(nil)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, err
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var (
		key     []byte
		matches int
	)
	prefix := []byte(prefixID + id)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		matches++
		if matches > 1 {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
		}
		v, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		key = v
	}

	if matches == 0 {
		return nil, badger.ErrKeyNotFound
	}
	return key, nil
}

// List returns records newest first. If limit is 0 or negative, all
// records are returned.
func (s *Store) List(limit int) ([]Record, error) {
	records := []Record{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixRecord)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key <= seek key.
		seek := append([]byte(prefixRecord), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}

			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					logger.Warn("skipping unreadable record", "key", string(it.Item().Key()), "error", err)
					return nil
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return records, err
}

// Cleanup removes records older than retentionDays and returns how many
// were removed. A non-positive retention keeps everything.
func (s *Store) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := recordKey(s.now().AddDate(0, 0, -retentionDays), "")

	type stale struct {
		key []byte
		id  string
	}
	var victims []stale

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= string(cutoff) {
				break
			}
			victims = append(victims, stale{key: key, id: string(key[len(cutoff):])})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(victims) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, v := range victims {
		if err := wb.Delete(v.key); err != nil {
			return 0, err
		}
		if err := wb.Delete([]byte(prefixID + v.id)); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}

	logger.Info("removed old runs", "count", len(victims), "retention_days", retentionDays)
	return len(victims), nil
}

// recordKey orders records by time, then id.
func recordKey(ts time.Time, id string) []byte {
	key := make([]byte, 0, len(prefixRecord)+8+len(id))
	key = append(key, prefixRecord...)
	key = binary.BigEndian.AppendUint64(key, uint64(ts.UnixNano()))
	return append(key, id...)
}

// badgerLogger forwards badger's messages to the history component logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Error(trimf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warn(trimf(format, args...))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debug(trimf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Debug(trimf(format, args...))
}

func trimf(format string, args ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
