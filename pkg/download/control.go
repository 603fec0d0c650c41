package download

import (
	"context"
	"sync"
)

// State is the shared run state of one download.
type State int

const (
	Running State = iota
	Paused
	Finished
	Errored
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// controller holds the shared state and notifies waiters on every change by
// closing a broadcast channel and installing a fresh one. Waiters must always
// re-read the state after waking; the wake itself carries no information, so
// a Paused->Running->Paused flap before a waiter is scheduled is still
// observed correctly.
type controller struct {
	mu      sync.Mutex
	state   State
	err     error
	changed chan struct{}
}

func newController(start State) *controller {
	return &controller{state: start, changed: make(chan struct{})}
}

func (c *controller) current() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.err
}

// set transitions to s and wakes all waiters. Terminal states are sticky:
// once Finished or Errored, further transitions are ignored.
func (c *controller) set(s State) {
	c.setErr(s, nil)
}

func (c *controller) setErr(s State, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Finished || c.state == Errored {
		return
	}
	if c.state == s {
		return
	}
	c.state = s
	c.err = err
	close(c.changed)
	c.changed = make(chan struct{})
}

// awaitRunnable blocks while the state is Paused. It returns nil as soon as
// the state is anything else; terminal states do not block, the worker's own
// request teardown handles them. The waiter suspends on the broadcast
// channel rather than spinning.
func (c *controller) awaitRunnable(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.state != Paused {
			c.mu.Unlock()
			return nil
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ch:
			// state changed, re-check
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
