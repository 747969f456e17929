// Package storage keeps completed runs in a bbolt database under the user's
// home directory so past reports can be reviewed and re-exported.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"browsebench/internal/report"
	"browsebench/internal/runner"
)

const BucketRuns = "runs"

// HistoryItem is one completed run: the configuration it ran with, the derived
// summary, and the raw results for re-export.
type HistoryItem struct {
	ID        string                    `json:"id"`
	Timestamp time.Time                 `json:"timestamp"`
	Config    runner.Config             `json:"config"`
	Summary   map[string]report.Summary `json:"summary"`
	Results   []runner.Result           `json:"results"`
}

// NewHistoryItem derives a history record from a finished run's results.
func NewHistoryItem(cfg runner.Config, results []runner.Result) HistoryItem {
	return HistoryItem{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Config:    cfg,
		Summary:   report.Summarize(results),
		Results:   results,
	}
}

type Store struct {
	db *bbolt.DB
}

// NewStore opens (creating if needed) the history database at
// ~/.browsebench/history.db.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(home, ".browsebench")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(filepath.Join(dir, "history.db"), 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewStoreAt opens a history database at an explicit path. Used by tests.
func NewStoreAt(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Save(item HistoryItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))

		// Key by timestamp so the cursor walks history in run order.
		key := []byte(fmt.Sprintf("%020d-%s", item.Timestamp.UnixNano(), item.ID))
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// List returns history newest-first.
func (s *Store) List() []HistoryItem {
	var items []HistoryItem

	s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		c := b.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err == nil {
				items = append(items, item)
			}
		}
		return nil
	})

	return items
}

func (s *Store) Get(id string) (*HistoryItem, error) {
	var found *HistoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			if item.ID == id {
				found = &item
				return nil
			}
		}
		return fmt.Errorf("run %s not found", id)
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
