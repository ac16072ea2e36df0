// Package widget holds what the widget controllers share: the optimistic
// mutation helper, an injectable clock, and change notification.
package widget

import (
	"context"
	"sync"
	"time"
)

// Mutation is an optimistic change. Apply runs immediately; Remote is then
// awaited and either Revert (on error) or Reconcile (on success) runs.
// Any step may be nil.
type Mutation[T any] struct {
	Apply     func()
	Remote    func(ctx context.Context) (T, error)
	Revert    func()
	Reconcile func(T)
}

// Optimistic runs m and returns the remote error.
func Optimistic[T any](ctx context.Context, m Mutation[T]) error {
	if m.Apply != nil {
		m.Apply()
	}
	if m.Remote == nil {
		return nil
	}
	res, err := m.Remote(ctx)
	if err != nil {
		if m.Revert != nil {
			m.Revert()
		}
		return err
	}
	if m.Reconcile != nil {
		m.Reconcile(res)
	}
	return nil
}

// Clock is the time source of a controller.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once after d. The returned function cancels it.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
	// Tick delivers ticks every d until stop is called.
	Tick(d time.Duration) (ticks <-chan time.Time, stop func())
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

func (SystemClock) Tick(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Notifier coalesces change signals for a single listener.
type Notifier struct {
	once sync.Once
	ch   chan struct{}
}

func (n *Notifier) init() {
	n.once.Do(func() { n.ch = make(chan struct{}, 1) })
}

// Notify signals a change without blocking.
func (n *Notifier) Notify() {
	n.init()
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Changes returns the channel signalled after each change.
func (n *Notifier) Changes() <-chan struct{} {
	n.init()
	return n.ch
}
