package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pebble "github.com/cockroachdb/pebble"
	"github.com/google/uuid"
)

// Status is the outcome recorded for a reduction.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

const (
	successPrefix = "success/"
	failurePrefix = "failure/"
)

// Record is the metadata kept about one reduction. File contents are never stored.
type Record struct {
	ID             string         `json:"id"`
	Status         Status         `json:"status"`
	Kind           string         `json:"kind"`
	Filename       string         `json:"filename"`
	OutputFilename string         `json:"output_filename,omitempty"`
	OriginalSize   int64          `json:"original_size"`
	CompressedSize int64          `json:"compressed_size,omitempty"`
	ElapsedMS      float64        `json:"elapsed_ms,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	Error          string         `json:"error,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Store is a small wrapper around a Pebble DB holding success and failure records.
type Store struct {
	db   *pebble.DB
	path string
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func prefixFor(status Status) (string, error) {
	switch status {
	case StatusSuccess:
		return successPrefix, nil
	case StatusFailed:
		return failurePrefix, nil
	default:
		return "", fmt.Errorf("unknown status %q", status)
	}
}

// put assigns an ID and timestamp when missing and writes rec under its status prefix.
func (s *Store) put(rec *Record) error {
	if s == nil || s.db == nil {
		return errors.New("history store not initialized")
	}
	prefix, err := prefixFor(rec.Status)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		// v7 IDs sort by creation time, so iteration order is chronological
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate record id: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	return s.db.Set([]byte(prefix+rec.ID), data, pebble.Sync)
}

// StoreSuccess records a finished reduction and returns its ID.
func (s *Store) StoreSuccess(rec Record) (string, error) {
	rec.Status = StatusSuccess
	rec.Error = ""
	if err := s.put(&rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// StoreFailure records a failed reduction and returns its ID.
func (s *Store) StoreFailure(rec Record, cause error) (string, error) {
	rec.Status = StatusFailed
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := s.put(&rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Get retrieves a record by ID from either bucket. A missing record returns nil, nil.
func (s *Store) Get(id string) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store not initialized")
	}
	for _, prefix := range []string{successPrefix, failurePrefix} {
		data, closer, err := s.db.Get([]byte(prefix + id))
		if err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get history record: %w", err)
		}
		var rec Record
		err = json.Unmarshal(data, &rec)
		closer.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal history record: %w", err)
		}
		return &rec, nil
	}
	return nil, nil
}

// List returns records with the given status, oldest first. An empty status lists everything.
func (s *Store) List(status Status) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store not initialized")
	}

	var prefixes []string
	if status == "" {
		prefixes = []string{failurePrefix, successPrefix}
	} else {
		p, err := prefixFor(status)
		if err != nil {
			return nil, err
		}
		prefixes = []string{p}
	}

	records := []Record{}
	for _, prefix := range prefixes {
		err := s.scan(prefix, func(_ []byte, rec Record) error {
			records = append(records, rec)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// scan iterates every record under prefix. Invalid records are skipped.
func (s *Store) scan(prefix string, fn func(key []byte, rec Record) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound([]byte(prefix)),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		if err := fn(key, rec); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iteration error: %w", err)
	}
	return nil
}

func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// Delete removes a record by ID from whichever bucket holds it.
func (s *Store) Delete(id string) error {
	if s == nil || s.db == nil {
		return errors.New("history store not initialized")
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, prefix := range []string{successPrefix, failurePrefix} {
		if err := b.Delete([]byte(prefix+id), nil); err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

// CleanupOldRecords removes records older than maxAge and reports how many went.
func (s *Store) CleanupOldRecords(maxAge time.Duration) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("history store not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	var keysToDelete [][]byte
	for _, prefix := range []string{successPrefix, failurePrefix} {
		err := s.scan(prefix, func(key []byte, rec Record) error {
			if rec.Timestamp.Before(cutoff) {
				keysToDelete = append(keysToDelete, key)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	for _, key := range keysToDelete {
		if err := s.db.Delete(key, pebble.Sync); err != nil {
			return 0, fmt.Errorf("failed to delete old history record: %w", err)
		}
	}
	return len(keysToDelete), nil
}

// CheckHealth performs a basic read against the database.
func (s *Store) CheckHealth() error {
	if s == nil || s.db == nil {
		return errors.New("history database not initialized")
	}
	_, closer, err := s.db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}
