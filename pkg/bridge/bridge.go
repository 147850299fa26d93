// Package bridge is the message-style inbound surface of the engine: a
// coordinating context sends a JSON action message, the dispatcher resolves
// and executes it against the live tree, and the reply channel stays open
// until the asynchronous result is ready.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/entrhq/waypoint/pkg/dom"
	"github.com/entrhq/waypoint/pkg/engine"
	"github.com/entrhq/waypoint/pkg/logging"
	"github.com/entrhq/waypoint/pkg/safety"
)

// MessageType distinguishes action messages from safety controls.
type MessageType string

const (
	// TypeAction executes one descriptor.
	TypeAction MessageType = "action"

	// TypeStop triggers a programmatic emergency stop.
	TypeStop MessageType = "stop"

	// TypeResume clears an active emergency stop.
	TypeResume MessageType = "resume"
)

// Message is one inbound request.
type Message struct {
	ID     string             `json:"id,omitempty"`
	Type   MessageType        `json:"type"`
	Action *engine.Descriptor `json:"action,omitempty"`
}

// Reply pairs a result with the message it answers.
type Reply struct {
	ID     string        `json:"id,omitempty"`
	Result engine.Result `json:"result"`
}

// ScopeProvider returns the current root scope. The dispatcher asks per
// message; the tree may have been replaced since the last call.
type ScopeProvider func(ctx context.Context) (dom.Scope, error)

// Dispatcher routes inbound messages to the engine and the safety
// registry.
type Dispatcher struct {
	engine *engine.Engine
	scopes ScopeProvider
	logger *logging.Logger

	// flight deduplicates concurrent identical read-only calls (scope
	// summaries, whole-scope scrapes). Effectful actions always run.
	flight singleflight.Group
}

// NewDispatcher builds a dispatcher over an engine and a root-scope
// provider.
func NewDispatcher(eng *engine.Engine, scopes ScopeProvider, logger *logging.Logger) (*Dispatcher, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if scopes == nil {
		return nil, fmt.Errorf("scope provider is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{engine: eng, scopes: scopes, logger: logger}, nil
}

// Dispatch handles one message asynchronously and returns the channel the
// reply will arrive on. The channel is buffered and always receives
// exactly one reply; the callee keeps it open until the result resolves.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) <-chan Reply {
	out := make(chan Reply, 1)
	go func() {
		out <- Reply{ID: msg.ID, Result: d.handle(ctx, msg)}
		close(out)
	}()
	return out
}

// HandleJSON decodes a raw message, dispatches it, waits for the result,
// and encodes the reply. Decode failures are the only errors returned;
// action outcomes travel inside the reply.
func (d *Dispatcher) HandleJSON(ctx context.Context, raw []byte) ([]byte, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	reply := <-d.Dispatch(ctx, msg)
	encoded, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reply: %w", err)
	}
	return encoded, nil
}

func (d *Dispatcher) handle(ctx context.Context, msg Message) engine.Result {
	switch msg.Type {
	case TypeStop:
		ev := d.engine.Registry().Stop(safety.TriggerProgrammatic)
		count := 0
		if ev != nil {
			count = ev.ProcessesStopped
		}
		d.logger.Infof("emergency stop via bridge, %d processes stopped", count)
		return engine.Result{Success: true}
	case TypeResume:
		d.engine.Registry().Reset()
		d.logger.Infof("emergency stop cleared via bridge")
		return engine.Result{Success: true}
	case TypeAction:
		if msg.Action == nil {
			return engine.Result{Success: false, Error: "action message has no descriptor"}
		}
		return d.execute(ctx, *msg.Action)
	default:
		return engine.Result{Success: false, Error: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
}

func (d *Dispatcher) execute(ctx context.Context, desc engine.Descriptor) engine.Result {
	run := func() engine.Result {
		root, err := d.scopes(ctx)
		if err != nil {
			return engine.Result{Success: false, Error: fmt.Sprintf("no scope available: %v", err)}
		}
		res, err := d.engine.Execute(ctx, root, desc)
		if err != nil {
			// Descriptor validation failure; surfaced in the reply since
			// nothing crosses the bridge as a Go error.
			return engine.Result{Success: false, Error: err.Error()}
		}
		return res
	}

	if readOnly(desc) {
		v, _, _ := d.flight.Do(flightKey(desc), func() (interface{}, error) {
			return run(), nil
		})
		return v.(engine.Result)
	}
	return run()
}

// readOnly reports whether concurrent identical calls can share a result.
func readOnly(d engine.Descriptor) bool {
	switch d.Action {
	case engine.ActionSummarize:
		return true
	case engine.ActionScrape:
		return d.Selector == "" && d.Text == ""
	}
	return false
}

func flightKey(d engine.Descriptor) string {
	return string(d.Action) + "\x00" + d.Selector + "\x00" + d.Text
}
