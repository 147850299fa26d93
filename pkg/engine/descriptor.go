// Package engine resolves natural-language-derived target descriptors to
// nodes in an untrusted, changing document tree and executes actions on
// them. Resolution runs a fixed-order strategy chain per scope, broadened
// breadth-first across shadow and frame boundaries; execution re-validates
// the node, renders a bounded visual acknowledgment, and reports a
// structured result. Every attempt is gated by the safety registry's
// emergency-stop flag.
package engine

import (
	"fmt"
)

// ActionKind is the operation the caller wants performed.
type ActionKind string

const (
	// ActionScrape reads the visible text of the target (or the whole
	// scope when no target is given).
	ActionScrape ActionKind = "scrape"

	// ActionClick resolves the target and dispatches a click.
	ActionClick ActionKind = "click"

	// ActionType resolves a text-entry target and writes a value into it.
	ActionType ActionKind = "type"

	// ActionScroll scrolls the root scope by a fixed increment.
	ActionScroll ActionKind = "scroll"

	// ActionWait pauses for a fixed or caller-specified delay.
	ActionWait ActionKind = "wait"

	// ActionHighlight resolves the target and renders a transient outline.
	ActionHighlight ActionKind = "highlight"

	// ActionSummarize produces a size-bounded structural digest of the
	// root scope.
	ActionSummarize ActionKind = "summarize"

	// ActionFinish is a terminal no-op signaling the caller's step
	// sequence is complete.
	ActionFinish ActionKind = "finish"
)

// Direction is a logical scroll direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Descriptor is the intent the caller wants resolved: an action plus
// whatever identifying fragments the upstream layer derived from the user's
// request.
type Descriptor struct {
	Action ActionKind `json:"action"`

	// Selector is an optional structural locator, used as the
	// lowest-confidence fallback.
	Selector string `json:"selector,omitempty"`

	// Text is an optional human-readable label matched against visible
	// text, accessible labels, and value attributes.
	Text string `json:"text,omitempty"`

	// Value is the payload to write for type actions.
	Value string `json:"value,omitempty"`

	// Direction selects up or down for scroll actions.
	Direction Direction `json:"direction,omitempty"`

	// WaitMillis overrides the default delay for wait actions.
	WaitMillis int `json:"wait_millis,omitempty"`
}

// Validate rejects malformed descriptors before any resolution is
// attempted. A click, type, or highlight without selector and text is a
// caller error, not a resolution failure.
func (d Descriptor) Validate() error {
	switch d.Action {
	case ActionClick, ActionType, ActionHighlight:
		if d.Selector == "" && d.Text == "" {
			return fmt.Errorf("%s action requires a selector or text", d.Action)
		}
	case ActionScroll:
		if d.Direction != "" && d.Direction != DirectionUp && d.Direction != DirectionDown {
			return fmt.Errorf("invalid scroll direction %q", d.Direction)
		}
	case ActionScrape, ActionWait, ActionSummarize, ActionFinish:
		// No required fields.
	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}
	return nil
}

// needsTarget reports whether the action resolves a node at all.
func (d Descriptor) needsTarget() bool {
	switch d.Action {
	case ActionClick, ActionType, ActionHighlight:
		return true
	case ActionScrape:
		return d.Selector != "" || d.Text != ""
	}
	return false
}

// cacheKey identifies descriptors that resolve identically, for the
// re-entrant scope-path cache.
func (d Descriptor) cacheKey() string {
	return string(d.Action) + "\x00" + d.Selector + "\x00" + d.Text
}

// Result is what an action call returns. Absence of a match is a normal
// outcome encoded in Success=false; nothing is thrown across the call
// boundary.
type Result struct {
	Success    bool    `json:"success"`
	Strategy   string  `json:"strategy,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
	Finished   bool    `json:"finished,omitempty"`

	// Content carries scrape text or the structural summary.
	Content string `json:"content,omitempty"`

	// ScopePath is the ordered list of scope identifiers traversed to
	// reach the resolved node.
	ScopePath []string `json:"scope_path,omitempty"`
}

// failure builds an unsuccessful result from a taxonomy error.
func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}
