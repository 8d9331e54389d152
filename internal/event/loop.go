package event

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopClosed is returned by Post after Close.
var ErrLoopClosed = errors.New("event loop closed")

// Loop serializes work onto one goroutine. Timers, file watchers and input
// readers Post closures here instead of touching the document directly, so
// commands and event delivery never interleave.
type Loop struct {
	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoop returns a loop whose queue holds up to buffer pending closures
// before Post blocks.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{queue: make(chan func(), buffer), done: make(chan struct{})}
}

// Post queues fn for execution on the loop goroutine.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Run executes posted closures in order until ctx is cancelled or the loop
// is closed. Closures still queued at Close are executed before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-l.done:
			l.RunPending()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunPending executes the closures queued right now without waiting for more
// and returns how many ran.
func (l *Loop) RunPending() int {
	n := 0
	for {
		select {
		case fn := <-l.queue:
			fn()
			n++
		default:
			return n
		}
	}
}

// Close stops accepting new work.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}
