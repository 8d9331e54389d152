package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskcoach/internal/event"
	"taskcoach/pkg/domain"
)

// ErrNoStore is returned by Save when the document has no snapshot store.
var ErrNoStore = errors.New("document has no snapshot store")

// Backuper keeps a copy of every saved snapshot.
type Backuper interface {
	Backup(ctx context.Context, document string, snapshot domain.Snapshot) error
}

// Document owns the objects of one task file. All mutations go through Run,
// which applies them to a cloned state and commits or discards the clone as
// a whole; the notifications of a committed run are published once on the
// document's bus.
type Document struct {
	mu       sync.RWMutex
	state    *arena
	settings Settings
	gen      uint64
	savedGen uint64

	name    string
	bus     *event.Bus
	store   domain.SnapshotStore
	backups Backuper
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	now     func() time.Time
}

// Option customises a Document.
type Option func(*Document)

// WithLogger sets the logger; nil keeps the silent default.
func WithLogger(logger Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock sets the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(d *Document) {
		if now != nil {
			d.now = now
		}
	}
}

// WithMetricsRecorder sets the recorder observing each operation.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(d *Document) {
		if recorder != nil {
			d.metrics = recorder
		}
	}
}

// WithTracer sets the tracer wrapping each operation in a span.
func WithTracer(tracer Tracer) Option {
	return func(d *Document) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithSettings replaces the default settings.
func WithSettings(settings Settings) Option {
	return func(d *Document) { d.settings = settings }
}

// WithBus shares an existing bus, for example with other documents of the
// same application.
func WithBus(bus *event.Bus) Option {
	return func(d *Document) {
		if bus != nil {
			d.bus = bus
		}
	}
}

// WithSnapshotStore sets the store Save writes to.
func WithSnapshotStore(store domain.SnapshotStore) Option {
	return func(d *Document) { d.store = store }
}

// WithBackups makes every successful Save also write a backup.
func WithBackups(backups Backuper) Option {
	return func(d *Document) { d.backups = backups }
}

// WithName sets the name the document is backed up under.
func WithName(name string) Option {
	return func(d *Document) {
		if name != "" {
			d.name = name
		}
	}
}

// NewDocument returns an empty document.
func NewDocument(opts ...Option) *Document {
	d := &Document{
		state:    newArena(),
		settings: DefaultSettings(),
		name:     "taskcoach",
		bus:      event.NewBus(),
		logger:   noopLogger{},
		metrics:  noopMetrics{},
		tracer:   noopTracer{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OpenDocument loads the snapshot in store into a new document that saves
// back to the same store.
func OpenDocument(ctx context.Context, store domain.SnapshotStore, opts ...Option) (*Document, error) {
	d := NewDocument(append(opts, WithSnapshotStore(store))...)
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	state, err := arenaFromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	d.state = state
	d.logger.Info("document loaded", "name", d.name, "objects", snap.Len())
	return d, nil
}

// Bus returns the bus committed notifications are published on.
func (d *Document) Bus() *event.Bus { return d.bus }

// Name returns the document name.
func (d *Document) Name() string { return d.name }

// Logger returns the document logger so collaborators log consistently.
func (d *Document) Logger() Logger { return d.logger }

// Metrics returns the metrics recorder of the document.
func (d *Document) Metrics() MetricsRecorder { return d.metrics }

// Now returns the current time of the document clock, normalized.
func (d *Document) Now() time.Time { return domain.NormalizeTime(d.now()) }

// Settings returns the current settings.
func (d *Document) Settings() Settings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.settings
}

// SetSettings replaces the settings used by later operations.
func (d *Document) SetSettings(settings Settings) {
	d.mu.Lock()
	d.settings = settings
	d.mu.Unlock()
}

// Run applies fn to a copy of the document state. When fn fails, or ctx is
// done before it returns, the copy is discarded and nothing is published.
// Otherwise the copy becomes the document state and the collected event is
// published once, after the lock is released, so handlers may start new
// runs. Run must not be called from inside fn.
func (d *Document) Run(ctx context.Context, operation string, fn func(*Transaction) error) (ev *domain.Event, err error) {
	ctx, span := d.tracer.Start(ctx, operation)
	started := time.Now()
	defer func() {
		d.metrics.Observe(ctx, operation, err == nil, time.Since(started))
		span.End(err)
	}()

	d.mu.Lock()
	tx := newTransaction(d.state.clone(), d.Now(), d.settings)
	err = fn(tx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		d.mu.Unlock()
		d.logger.Error("operation failed", "operation", operation, "error", err)
		return nil, err
	}
	d.state = tx.arena
	ev = tx.ev
	if !ev.Empty() {
		d.gen++
	}
	d.mu.Unlock()

	d.logger.Debug("operation committed", "operation", operation, "types", len(ev.Types()))
	d.bus.Publish(ev)
	return ev, nil
}

// View calls fn with a read-only view of the current state. Entities
// obtained from the view are copies.
func (d *Document) View(fn func(View) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return fn(&stateView{arena: d.state, now: d.Now(), settings: d.settings, copies: true})
}

// Dirty reports whether the document changed since it was loaded or saved.
func (d *Document) Dirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.gen != d.savedGen
}

// Snapshot exports the live objects of the document.
func (d *Document) Snapshot() domain.Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

func (d *Document) snapshotLocked() domain.Snapshot {
	v := &stateView{arena: d.state}
	return d.state.snapshot(v.IsDeleted)
}

// Save writes the live objects to the snapshot store and, when configured,
// to the backups. A failed backup is logged and does not fail the save.
func (d *Document) Save(ctx context.Context) (err error) {
	if d.store == nil {
		return ErrNoStore
	}
	ctx, span := d.tracer.Start(ctx, "save")
	started := time.Now()
	defer func() {
		d.metrics.Observe(ctx, "save", err == nil, time.Since(started))
		span.End(err)
	}()

	d.mu.RLock()
	snap := d.snapshotLocked()
	gen := d.gen
	d.mu.RUnlock()

	if err := d.store.Save(ctx, snap); err != nil {
		d.logger.Error("save failed", "name", d.name, "error", err)
		return fmt.Errorf("save document: %w", err)
	}
	d.mu.Lock()
	d.savedGen = gen
	d.mu.Unlock()
	d.logger.Info("document saved", "name", d.name, "objects", snap.Len())

	if d.backups != nil {
		if err := d.backups.Backup(ctx, d.name, snap); err != nil {
			d.logger.Warn("backup failed", "name", d.name, "error", err)
		}
	}
	return nil
}

// Close releases the snapshot store.
func (d *Document) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
