package qobject

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cerrors "cogentcore.org/core/base/errors"
)

// ErrLoopClosed is returned by Run and Process once the loop is closed.
var ErrLoopClosed = errors.New("qobject: loop closed")

const collectInterval = 5 * time.Second

// Loop is the event loop that objects live on. Events and functions may be
// queued from any goroutine with Post and Invoke; they are executed, in
// order, only during calls to Process (or Run and RunLockable, which call
// Process). Object data is never touched by the loop outside of those calls,
// so applications control concurrency by controlling calls to Process.
//
// Loop also keeps a registry of objects by identifier. Register and Object
// must only be used from the goroutine that processes the loop.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	processSignal chan struct{}
	objects       map[string]QObject
	lastCollect   time.Time
}

// NewLoop creates an empty loop. It does nothing until Process or Run is
// called.
func NewLoop() *Loop {
	return &Loop{
		processSignal: make(chan struct{}, 1),
		objects:       make(map[string]QObject),
		lastCollect:   time.Now(),
	}
}

func (l *Loop) enqueue(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	defer l.mu.Unlock()
	l.pending = append(l.pending, fn)

	select {
	case l.processSignal <- struct{}{}:
	default:
	}
	return true
}

// Post queues ev to be sent to obj during the next Process. It returns false
// if the loop is closed.
func (l *Loop) Post(obj QObject, ev *Event) bool {
	return l.enqueue(func() {
		if !obj.IsDestroyed() {
			obj.SendEvent(ev)
		}
	})
}

// Invoke queues fn to be executed during the next Process.
func (l *Loop) Invoke(fn func()) bool {
	return l.enqueue(fn)
}

// Process executes everything queued so far, including anything queued
// while processing, but does not block to wait for more. It returns
// ErrLoopClosed once the loop is closed.
func (l *Loop) Process() error {
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return ErrLoopClosed
		}
		queue := l.pending
		l.pending = nil
		l.mu.Unlock()

		if len(queue) == 0 {
			break
		}
		for _, fn := range queue {
			l.call(fn)
		}
	}

	// Drop destroyed objects from the registry periodically
	if now := time.Now(); now.Sub(l.lastCollect) >= collectInterval {
		l.collectObjects()
		l.lastCollect = now
	}
	return nil
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			cerrors.Log(fmt.Errorf("qobject: queued function panicked: %v", r))
		}
	}()
	fn()
}

// ProcessSignal receives a value when there is something to Process.
func (l *Loop) ProcessSignal() <-chan struct{} {
	return l.processSignal
}

// Run processes queued work until ctx is done or the loop is closed.
// Run is equivalent to a loop of Process and ProcessSignal.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := l.Process(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.processSignal:
		}
	}
}

// Close stops the loop. Queued work that has not been processed is
// discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.pending = nil
	close(l.processSignal)
}

// Register initializes obj if necessary and adds it to the registry under
// its identifier.
func (l *Loop) Register(obj QObject) error {
	if err := Init(obj); err != nil {
		return err
	}
	id := obj.Identifier()
	if existing, exists := l.objects[id]; exists && existing != obj {
		return fmt.Errorf("qobject: registered different object with duplicate identifier %s", id)
	}
	l.objects[id] = obj
	return nil
}

// RegisterWithID is Register with a chosen identifier for an uninitialized
// object.
func (l *Loop) RegisterWithID(obj QObject, id string) error {
	if existing, exists := l.objects[id]; exists && existing != obj {
		return errors.New("qobject: object id in use")
	}
	if err := InitWithID(obj, id); err != nil {
		return err
	}
	if obj.Identifier() != id {
		return fmt.Errorf("qobject: object is already initialized as %s", obj.Identifier())
	}
	l.objects[id] = obj
	return nil
}

// Object returns a registered object by its identifier, or nil.
func (l *Loop) Object(id string) QObject {
	if obj, ok := l.objects[id]; ok && !obj.IsDestroyed() {
		return obj
	}
	return nil
}

// Remove objects that have been destroyed from the registry, allowing the GC
// to collect them.
func (l *Loop) collectObjects() {
	for id, obj := range l.objects {
		if obj.IsDestroyed() {
			slog.Debug("qobject: collecting destroyed object", "id", id)
			delete(l.objects, id)
		}
	}
}
