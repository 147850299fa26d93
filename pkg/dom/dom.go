// Package dom models a rendered document as a tree of searchable scopes.
//
// A Scope is one region of the tree: the top-level document, a shadow
// sub-tree, or an embedded frame's document. Scopes are discovered lazily
// through Boundaries; a boundary that cannot be entered (a cross-origin
// frame) reports ErrInaccessible rather than failing the caller.
//
// Two implementations exist: the in-memory snapshot backend in this package,
// built on golang.org/x/net/html, and the live playwright-backed provider in
// pkg/live which snapshots frame content into this package and replays
// effects through the browser.
package dom

import "errors"

// ErrInaccessible is returned by Boundary.Enter when the child scope's
// content cannot be read (cross-origin frame, or no loader for the frame).
// Callers treat it as "skip", never as a failure of the overall search.
var ErrInaccessible = errors.New("scope is not accessible")

// BoundaryKind identifies the kind of edge between a scope and a child scope.
type BoundaryKind string

const (
	// BoundaryShadow is the edge into a shadow-encapsulated sub-tree.
	BoundaryShadow BoundaryKind = "shadow"

	// BoundaryFrame is the edge into an embedded frame's document.
	BoundaryFrame BoundaryKind = "frame"
)

// Rect is an element's bounding box in scope coordinates.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Zero reports whether the box has no area.
func (r Rect) Zero() bool {
	return r.W <= 0 || r.H <= 0
}

// Node is one element inside a Scope. Query methods reflect the scope
// snapshot; effect methods (Click, SetValue, Focus) mutate the live tree
// the scope is backed by.
type Node interface {
	// Tag returns the lower-cased element tag name.
	Tag() string

	// Attr returns the value of the named attribute, or "" if absent.
	Attr(name string) string

	// HasAttr reports whether the named attribute is present.
	HasAttr(name string) bool

	// Text returns the element's visible text with whitespace collapsed.
	// Content inside script, style, template, and hidden sub-trees is
	// excluded.
	Text() string

	// Label returns the element's accessible label: aria-label, else the
	// text of an aria-labelledby or label[for] reference, else the title
	// attribute.
	Label() string

	// Value returns the element's current value attribute.
	Value() string

	// Disabled reports whether the element is disabled or aria-disabled.
	Disabled() bool

	// Hidden reports whether the element or any ancestor is hidden by
	// attribute or inline style.
	Hidden() bool

	// Box returns the element's bounding box.
	Box() Rect

	// Click dispatches a click on the element.
	Click() error

	// SetValue focuses the element, writes the value, and dispatches
	// input and change notifications so host page logic observes it.
	SetValue(value string) error

	// Focus focuses the element.
	Focus() error
}

// OverlayKind selects the visual acknowledgment style.
type OverlayKind string

const (
	// OverlayRipple is the expanding-circle click acknowledgment.
	OverlayRipple OverlayKind = "ripple"

	// OverlayOutline is the input-highlight acknowledgment.
	OverlayOutline OverlayKind = "outline"
)

// OverlaySpec describes a transient acknowledgment overlay.
type OverlaySpec struct {
	Kind   OverlayKind
	Target Rect
}

// Scope is one searchable region of the document tree.
type Scope interface {
	// ID returns a stable identifier for this scope within its tree, used
	// to record the path taken to reach a resolved node.
	ID() string

	// Title returns the scope's document title, if any.
	Title() string

	// Origin returns the scheme://host[:port] the scope's document was
	// loaded from. Shadow scopes inherit their host document's origin.
	Origin() string

	// Query returns the nodes matching a CSS selector, in document order.
	Query(selector string) ([]Node, error)

	// Elements returns all elements with one of the given tag names, in
	// document order. With no tags it returns every element.
	Elements(tags ...string) []Node

	// VisibleText returns up to limit characters of the scope's visible
	// text, in document order. limit <= 0 means no cap.
	VisibleText(limit int) string

	// Boundaries returns the edges into this scope's child scopes, in
	// document order.
	Boundaries() []Boundary

	// ScrollBy scrolls the scope viewport by the given offsets.
	ScrollBy(dx, dy float64) error

	// ShowOverlay renders a transient overlay and returns a function that
	// removes it. The overlay is non-interactive and never outlives its
	// remove call.
	ShowOverlay(spec OverlaySpec) (remove func(), err error)
}

// Boundary is the edge between a scope and one child scope.
type Boundary interface {
	// Kind reports whether the edge crosses into a shadow sub-tree or an
	// embedded frame.
	Kind() BoundaryKind

	// URL returns the frame's resolved document URL, or "" for shadow
	// boundaries.
	URL() string

	// Enter resolves the child scope. It returns ErrInaccessible when the
	// child's content cannot be read.
	Enter() (Scope, error)
}
