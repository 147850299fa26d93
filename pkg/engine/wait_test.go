package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/entrhq/waypoint/pkg/dom"
	"github.com/entrhq/waypoint/pkg/safety"
)

func TestWaitForElementImmediate(t *testing.T) {
	sc := parseScope(t, `<html><body><button id="go">Go</button></body></html>`)
	n, err := WaitForElement(context.Background(), safety.NewRegistry(0), sc, "#go", time.Second)
	if err != nil {
		t.Fatalf("WaitForElement failed: %v", err)
	}
	if n.Text() != "Go" {
		t.Errorf("Unexpected node %q", n.Text())
	}
}

func TestWaitForElementTimeout(t *testing.T) {
	sc := parseScope(t, `<html><body></body></html>`)
	start := time.Now()
	_, err := WaitForElement(context.Background(), safety.NewRegistry(0), sc, "#never", 150*time.Millisecond)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Expected timeout message, got %v", err)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Error("Returned before the timeout elapsed")
	}
}

func TestWaitForElementStops(t *testing.T) {
	sc := parseScope(t, `<html><body></body></html>`)
	registry := safety.NewRegistry(0)

	go func() {
		time.Sleep(50 * time.Millisecond)
		registry.Stop(safety.TriggerProgrammatic)
	}()

	_, err := WaitForElement(context.Background(), registry, sc, "#never", 5*time.Second)
	if !errors.Is(err, safety.ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestWaitForElementContextCancel(t *testing.T) {
	sc := parseScope(t, `<html><body></body></html>`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := WaitForElement(ctx, safety.NewRegistry(0), sc, "#never", 5*time.Second)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context deadline, got %v", err)
	}
}

func TestWaitForFrame(t *testing.T) {
	var ready atomic.Bool
	b := &flakyBoundary{ready: &ready}

	go func() {
		time.Sleep(150 * time.Millisecond)
		ready.Store(true)
	}()

	sc, err := WaitForFrame(context.Background(), safety.NewRegistry(0), b, 5*time.Second)
	if err != nil {
		t.Fatalf("WaitForFrame failed: %v", err)
	}
	if sc.ID() != "root/frame[0]" {
		t.Errorf("Unexpected scope %q", sc.ID())
	}
}

// flakyBoundary refuses entry until ready flips, like a frame that is still
// loading.
type flakyBoundary struct {
	ready *atomic.Bool
}

func (f *flakyBoundary) Kind() dom.BoundaryKind { return dom.BoundaryFrame }
func (f *flakyBoundary) URL() string            { return "https://shop.example.com/slow" }

func (f *flakyBoundary) Enter() (dom.Scope, error) {
	if !f.ready.Load() {
		return nil, errors.New("frame not loaded")
	}
	snap, err := dom.ParseString(`<html><body></body></html>`, dom.WithID("root/frame[0]"))
	if err != nil {
		return nil, err
	}
	return snap, nil
}
