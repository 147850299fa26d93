package engine

import "github.com/entrhq/waypoint/pkg/dom"

// Visible is the interactability predicate: the node is interactable when
// it is not hidden, occupies a non-zero box, and is not disabled. Both
// resolution and execution apply it; execution re-checks because state may
// have changed since the node was resolved.
func Visible(n dom.Node) bool {
	if n == nil {
		return false
	}
	if n.Hidden() {
		return false
	}
	if n.Box().Zero() {
		return false
	}
	return !n.Disabled()
}

// presentable reports whether the node renders at all, disabled or not.
// The strategy chain uses it to tell "right element, wrong state" apart
// from "not found".
func presentable(n dom.Node) bool {
	return n != nil && !n.Hidden() && !n.Box().Zero()
}
