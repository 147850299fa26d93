package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/waypoint/pkg/dom"
	"github.com/entrhq/waypoint/pkg/safety"
)

// Polling defaults. Waits re-check on a fixed interval until success or
// timeout, and exit within one interval of an emergency stop.
const (
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultElementTimeout = 5 * time.Second
	DefaultFrameTimeout   = 10 * time.Second
)

// WaitForElement polls the scope until a node matching the selector passes
// the visibility predicate. It returns safety.ErrStopped if an emergency
// stop triggers mid-wait.
func WaitForElement(ctx context.Context, registry *safety.Registry, sc dom.Scope, selector string, timeout time.Duration) (dom.Node, error) {
	if timeout <= 0 {
		timeout = DefaultElementTimeout
	}
	var found dom.Node
	err := poll(ctx, registry, timeout, func() bool {
		nodes, qerr := sc.Query(selector)
		if qerr != nil {
			return false
		}
		for _, n := range nodes {
			if Visible(n) {
				found = n
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// WaitForFrame polls a boundary until it can be entered. Inaccessible stays
// inaccessible; this waits out the load, not the origin check.
func WaitForFrame(ctx context.Context, registry *safety.Registry, b dom.Boundary, timeout time.Duration) (dom.Scope, error) {
	if timeout <= 0 {
		timeout = DefaultFrameTimeout
	}
	var sc dom.Scope
	err := poll(ctx, registry, timeout, func() bool {
		child, enterErr := b.Enter()
		if enterErr != nil {
			return false
		}
		sc = child
		return true
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// poll re-runs check every DefaultPollInterval until it succeeds, the
// timeout elapses, the context is done, or the registry stops.
func poll(ctx context.Context, registry *safety.Registry, timeout time.Duration, check func() bool) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(DefaultPollInterval)
	defer ticker.Stop()

	for {
		if registry != nil && registry.Stopped() {
			return safety.ErrStopped
		}
		if check() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sleep pauses for d unless the context ends or the registry stops first.
// The fixed-delay waits inside scroll-and-retry and explicit wait actions
// run through here so they stay responsive to an emergency stop.
func sleep(ctx context.Context, registry *safety.Registry, d time.Duration) error {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	ticker := time.NewTicker(DefaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-deadline.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if registry != nil && registry.Stopped() {
				return safety.ErrStopped
			}
		}
	}
}
