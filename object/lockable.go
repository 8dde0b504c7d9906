package qobject

import (
	"context"
	"sync"
)

type channelLocker struct {
	L chan struct{}
	U chan struct{}
}

func newChannelLocker() *channelLocker {
	return &channelLocker{
		L: make(chan struct{}),
		U: make(chan struct{}),
	}
}

func (cl *channelLocker) Lock() {
	cl.L <- struct{}{}
}

func (cl *channelLocker) Unlock() {
	cl.U <- struct{}{}
}

// RunLockable executes Run in a separate goroutine and returns a sync.Locker,
// which can be used for mutually exclusive execution with Process. That is,
// locking guarantees that Process is not and will not run until unlocked.
//
// Objects, and any bindings between them, can be safely modified while
// holding this lock.
//
// RunLockable also returns a channel, which will receive one error value and
// close when the loop is closed or ctx is done.
func (l *Loop) RunLockable(ctx context.Context) (sync.Locker, <-chan error) {
	lock := newChannelLocker()
	errChannel := make(chan error, 1)

	go func() {
		defer close(errChannel)
		for {
			if err := l.Process(); err != nil {
				errChannel <- err
				return
			}
			select {
			case <-ctx.Done():
				errChannel <- ctx.Err()
				return
			case <-l.processSignal:
			case <-lock.L:
				<-lock.U
			}
		}
	}()

	return lock, errChannel
}
