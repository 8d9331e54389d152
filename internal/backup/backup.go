// Package backup keeps timestamped copies of saved documents in a blob store
// and prunes them down to a fixed number per document.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"taskcoach/internal/blob"
	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

const (
	// DefaultKeep is the number of backups retained per document.
	DefaultKeep   = 10
	defaultPrefix = "backups"
	contentType   = "application/json"
	// keys sort lexically in time order
	stampLayout = "20060102T150405.000000000Z"
)

// ErrNoBackups is returned by Latest for a document without backups.
var ErrNoBackups = errors.New("no backups")

// Entry describes one stored backup.
type Entry struct {
	Key      string
	Document string
	Taken    time.Time
	Size     int64
}

// Manager writes, lists and restores backups.
type Manager struct {
	store  blob.Store
	keep   int
	prefix string
	logger core.Logger
	now    func() time.Time
}

var _ core.Backuper = (*Manager)(nil)

// Option customises a Manager.
type Option func(*Manager)

// WithKeep sets how many backups per document survive pruning. Values below
// one keep every backup.
func WithKeep(n int) Option { return func(m *Manager) { m.keep = n } }

// WithPrefix sets the key prefix backups are stored under.
func WithPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix = strings.Trim(prefix, "/"); prefix != "" {
			m.prefix = prefix
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the source of backup timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager returns a manager writing to store.
func NewManager(store blob.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		keep:   DefaultKeep,
		prefix: defaultPrefix,
		logger: core.NewNoopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) dir(document string) string {
	return path.Join(m.prefix, document) + "/"
}

// Backup stores snapshot as the newest backup of document and prunes the
// oldest ones beyond the retention count.
func (m *Manager) Backup(ctx context.Context, document string, snapshot domain.Snapshot) error {
	if err := validName(document); err != nil {
		return err
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	taken := m.now().UTC()
	key := m.dir(document) + taken.Format(stampLayout) + ".json"
	info, err := m.store.Put(ctx, key, bytes.NewReader(raw), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"document": document},
	})
	if err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	m.logger.Info("backup written", "document", document, "key", info.Key, "bytes", info.Size)
	return m.prune(ctx, document)
}

func (m *Manager) prune(ctx context.Context, document string) error {
	if m.keep < 1 {
		return nil
	}
	entries, err := m.List(ctx, document)
	if err != nil {
		return err
	}
	for len(entries) > m.keep {
		oldest := entries[0]
		entries = entries[1:]
		if _, err := m.store.Delete(ctx, oldest.Key); err != nil {
			return fmt.Errorf("prune backup %s: %w", oldest.Key, err)
		}
		m.logger.Debug("backup pruned", "document", document, "key", oldest.Key)
	}
	return nil
}

// List returns the backups of document, oldest first. Keys that do not carry
// a timestamp are skipped.
func (m *Manager) List(ctx context.Context, document string) ([]Entry, error) {
	if err := validName(document); err != nil {
		return nil, err
	}
	infos, err := m.store.List(ctx, m.dir(document))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		stamp, ok := strings.CutSuffix(path.Base(info.Key), ".json")
		if !ok {
			continue
		}
		taken, err := time.Parse(stampLayout, stamp)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Key: info.Key, Document: document, Taken: taken, Size: info.Size})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return a.Taken.Compare(b.Taken) })
	return entries, nil
}

// Latest returns the newest backup of document.
func (m *Manager) Latest(ctx context.Context, document string) (Entry, error) {
	entries, err := m.List(ctx, document)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("%s: %w", document, ErrNoBackups)
	}
	return entries[len(entries)-1], nil
}

// Load decodes the backup stored at key.
func (m *Manager) Load(ctx context.Context, key string) (domain.Snapshot, error) {
	_, rc, err := m.store.Get(ctx, key)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read backup: %w", err)
	}
	defer func() { _ = rc.Close() }()
	var snap domain.Snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode backup %s: %w", key, err)
	}
	return snap, nil
}

// Restore writes the backup at key into target, replacing what target held.
func (m *Manager) Restore(ctx context.Context, key string, target domain.SnapshotStore) error {
	snap, err := m.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := target.Save(ctx, snap); err != nil {
		return fmt.Errorf("restore backup %s: %w", key, err)
	}
	m.logger.Info("backup restored", "key", key, "objects", snap.Len())
	return nil
}

func validName(document string) error {
	if document == "" || strings.ContainsAny(document, `/\`) || strings.Contains(document, "..") {
		return fmt.Errorf("invalid document name %q", document)
	}
	return nil
}
