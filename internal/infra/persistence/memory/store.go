// Package memory provides an in-memory snapshot store used for tests and
// ephemeral documents, plus the bucket codec shared by the SQL stores.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"taskcoach/pkg/domain"
)

// Compile-time contract assertion ensuring Store satisfies the domain interface.
var _ domain.SnapshotStore = (*Store)(nil)

// ErrClosed is returned by a closed store.
var ErrClosed = errors.New("snapshot store closed")

// Store keeps the last saved snapshot in memory.
type Store struct {
	mu     sync.Mutex
	data   map[string][]byte
	saves  int
	closed bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Load returns a copy of the last saved snapshot, or an empty one.
func (s *Store) Load(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Snapshot{}, ErrClosed
	}
	var snap domain.Snapshot
	for bucket, payload := range s.data {
		if err := DecodeBucket(&snap, bucket, payload); err != nil {
			return domain.Snapshot{}, err
		}
	}
	return snap, nil
}

// Save replaces the stored snapshot.
func (s *Store) Save(_ context.Context, snapshot domain.Snapshot) error {
	data, err := EncodeBuckets(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.data = data
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Close implements domain.SnapshotStore.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Buckets lists the persisted buckets in a stable order.
var Buckets = []string{"tasks", "categories", "notes", "efforts", "attachments"}

// EncodeBuckets marshals each part of the snapshot into its own bucket.
func EncodeBuckets(snapshot domain.Snapshot) (map[string][]byte, error) {
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		var (
			data []byte
			err  error
		)
		switch bucket {
		case "tasks":
			data, err = json.Marshal(nonNil(snapshot.Tasks))
		case "categories":
			data, err = json.Marshal(nonNil(snapshot.Categories))
		case "notes":
			data, err = json.Marshal(nonNil(snapshot.Notes))
		case "efforts":
			data, err = json.Marshal(nonNil(snapshot.Efforts))
		case "attachments":
			data, err = json.Marshal(nonNil(snapshot.Attachments))
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBucket unmarshals payload into the part of snap named by bucket.
// Unknown buckets are ignored so newer files still load.
func DecodeBucket(snap *domain.Snapshot, bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var target any
	switch bucket {
	case "tasks":
		target = &snap.Tasks
	case "categories":
		target = &snap.Categories
	case "notes":
		target = &snap.Notes
	case "efforts":
		target = &snap.Efforts
	case "attachments":
		target = &snap.Attachments
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
