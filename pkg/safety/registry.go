// Package safety implements the emergency-stop registry: a shared halt
// switch that long-running operations register with, and that gates every
// action attempt once triggered.
//
// The registry is an explicitly constructed instance handed to each
// consumer, not a package-level global, so separate hosting contexts (and
// tests) never share stop state.
package safety

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the registry's current mode.
type State string

const (
	// Running means actions are permitted.
	Running State = "running"

	// Stopped means every action attempt is refused until Reset.
	Stopped State = "stopped"
)

// Trigger identifies what caused an emergency stop.
type Trigger string

const (
	// TriggerKeyboard is the document-level keyboard combination.
	TriggerKeyboard Trigger = "keyboard"

	// TriggerProgrammatic is an explicit Stop call.
	TriggerProgrammatic Trigger = "programmatic"

	// TriggerTimeout is reserved for caller-wired watchdogs. The registry
	// never arms a timeout itself and never re-arms after a stop; reset is
	// manual only.
	TriggerTimeout Trigger = "timeout"
)

// StopFunc halts one in-flight operation. It may block while the operation
// winds down; failures are collected, never propagated to other processes.
type StopFunc func() error

// Process is one registered stoppable operation.
type Process struct {
	ID   string
	Name string
	stop StopFunc
}

// Event records one emergency stop.
type Event struct {
	ID               string
	Timestamp        time.Time
	Trigger          Trigger
	ProcessesStopped int
}

// Listener observes registry state transitions.
type Listener func(state State, ev *Event)

// Registry is the process-wide stop switch. All methods are safe for
// concurrent use.
type Registry struct {
	mu        sync.Mutex
	state     State
	processes map[string]*Process
	listeners []Listener
	history   *history
}

// NewRegistry returns a running registry with a bounded stop-event history.
// historySize <= 0 uses DefaultHistorySize.
func NewRegistry(historySize int) *Registry {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Registry{
		state:     Running,
		processes: make(map[string]*Process),
		history:   newHistory(historySize),
	}
}

// State returns the current mode.
func (r *Registry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stopped reports whether an emergency stop is active. Actions and polling
// loops check this before every attempt and on every tick.
func (r *Registry) Stopped() bool {
	return r.State() == Stopped
}

// Register adds a stoppable process and returns its handle. Registering
// while Stopped invokes the process's stop exactly once, immediately, so a
// late registrant cannot run outside an active stop.
func (r *Registry) Register(name string, stop StopFunc) *Process {
	p := &Process{
		ID:   uuid.New().String(),
		Name: name,
		stop: stop,
	}

	r.mu.Lock()
	stopped := r.state == Stopped
	if !stopped {
		r.processes[p.ID] = p
	}
	r.mu.Unlock()

	if stopped && stop != nil {
		_ = stop()
	}
	return p
}

// Unregister removes a process. Safe to call for unknown or already-removed
// processes.
func (r *Registry) Unregister(p *Process) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.processes, p.ID)
}

// ProcessCount returns the number of currently registered processes.
func (r *Registry) ProcessCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.processes)
}

// Stop transitions Running→Stopped: flips the flag, invokes every
// registered process's stop with all-settled semantics (one failure never
// blocks the rest), records an event, and notifies listeners. Calling Stop
// while already stopped records nothing and returns the previous event.
func (r *Registry) Stop(trigger Trigger) *Event {
	r.mu.Lock()
	if r.state == Stopped {
		last := r.history.last()
		r.mu.Unlock()
		return last
	}
	r.state = Stopped
	procs := make([]*Process, 0, len(r.processes))
	for _, p := range r.processes {
		procs = append(procs, p)
	}
	r.processes = make(map[string]*Process)
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	// Stop everything concurrently and wait for all of them; a rejecting
	// stop still counts toward the event total.
	var wg sync.WaitGroup
	for _, p := range procs {
		if p.stop == nil {
			continue
		}
		wg.Add(1)
		go func(p *Process) {
			defer wg.Done()
			defer func() {
				// A panicking stop callback must not take down the
				// registry or the sibling stops.
				_ = recover()
			}()
			_ = p.stop()
		}(p)
	}
	wg.Wait()

	ev := &Event{
		ID:               uuid.New().String(),
		Timestamp:        time.Now(),
		Trigger:          trigger,
		ProcessesStopped: len(procs),
	}

	r.mu.Lock()
	r.history.append(ev)
	r.mu.Unlock()

	for _, l := range listeners {
		l(Stopped, ev)
	}
	return ev
}

// Reset transitions Stopped→Running and notifies listeners. Previously
// registered processes are not replayed; they stopped and stay stopped.
// Resetting a running registry is a no-op.
func (r *Registry) Reset() {
	r.mu.Lock()
	if r.state == Running {
		r.mu.Unlock()
		return
	}
	r.state = Running
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l(Running, nil)
	}
}

// Subscribe adds a state-transition listener and returns an unsubscribe
// function.
func (r *Registry) Subscribe(l Listener) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
	idx := len(r.listeners) - 1
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if idx < len(r.listeners) {
			r.listeners[idx] = func(State, *Event) {}
		}
	}
}

// History returns the recorded stop events, oldest first.
func (r *Registry) History() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.all()
}

// Guard runs fn as a registered stoppable process for its duration. The
// process is unregistered on return. If the registry is already stopped the
// fn is not run and ErrStopped is returned.
func (r *Registry) Guard(name string, stop StopFunc, fn func() error) error {
	if r.Stopped() {
		return ErrStopped
	}
	p := r.Register(name, stop)
	defer r.Unregister(p)
	return fn()
}

// ErrStopped is returned when an operation is refused because an emergency
// stop is active.
var ErrStopped = errors.New("stopped")
