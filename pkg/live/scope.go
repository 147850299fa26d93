package live

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/waypoint/pkg/dom"
)

// Scope implements dom.Scope over one browser frame. Queries run against a
// snapshot of the frame's content; effects are replayed through Playwright
// so the live page observes them.
type Scope struct {
	frame playwright.Frame
	snap  *dom.Snapshot
}

// newScope snapshots a frame's current content. A frame whose content
// cannot be read (cross-origin) yields dom.ErrInaccessible.
func newScope(frame playwright.Frame, id string) (*Scope, error) {
	content, err := frame.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dom.ErrInaccessible, err)
	}
	snap, err := dom.ParseString(content, dom.WithURL(frame.URL()), dom.WithID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to parse frame content: %w", err)
	}
	return &Scope{frame: frame, snap: snap}, nil
}

func (s *Scope) ID() string     { return s.snap.ID() }
func (s *Scope) Title() string  { return s.snap.Title() }
func (s *Scope) Origin() string { return s.snap.Origin() }

func (s *Scope) VisibleText(limit int) string { return s.snap.VisibleText(limit) }

// Query matches against the snapshot and wraps the results for live
// replay.
func (s *Scope) Query(selector string) ([]dom.Node, error) {
	nodes, err := s.snap.Query(selector)
	if err != nil {
		return nil, err
	}
	return s.wrapAll(nodes), nil
}

// Elements enumerates snapshot elements wrapped for live replay.
func (s *Scope) Elements(tags ...string) []dom.Node {
	return s.wrapAll(s.snap.Elements(tags...))
}

func (s *Scope) wrapAll(nodes []dom.Node) []dom.Node {
	out := make([]dom.Node, len(nodes))
	for i, n := range nodes {
		out[i] = &Node{Node: n, frame: s.frame, selector: s.replaySelector(n)}
	}
	return out
}

// replaySelector builds the Playwright selector used to act on the live
// counterpart of a snapshot node: id when present, else tag plus exact
// text (Playwright pierces open shadow roots for both), else the
// :nth-of-type path within this frame's light tree.
func (s *Scope) replaySelector(n dom.Node) string {
	if id := n.Attr("id"); id != "" && !strings.ContainsAny(id, " \"'\\") {
		return "#" + id
	}
	if text := n.Text(); text != "" && len(text) <= 80 && !strings.ContainsAny(text, "\"\\") {
		return fmt.Sprintf(`%s:has-text("%s")`, n.Tag(), text)
	}
	if path, ok := s.snap.PathTo(n); ok {
		return path
	}
	return n.Tag()
}

// Boundaries exposes the snapshot's child edges. Shadow children stay on
// this frame (replay selectors pierce open shadow roots); frame children
// are re-bound to their live Playwright frame by URL.
func (s *Scope) Boundaries() []dom.Boundary {
	var out []dom.Boundary
	for _, b := range s.snap.Boundaries() {
		out = append(out, &liveBoundary{scope: s, inner: b})
	}
	return out
}

type liveBoundary struct {
	scope *Scope
	inner dom.Boundary
}

func (b *liveBoundary) Kind() dom.BoundaryKind { return b.inner.Kind() }
func (b *liveBoundary) URL() string            { return b.inner.URL() }

func (b *liveBoundary) Enter() (dom.Scope, error) {
	if b.inner.Kind() == dom.BoundaryShadow {
		child, err := b.inner.Enter()
		if err != nil {
			return nil, err
		}
		snap, ok := child.(*dom.Snapshot)
		if !ok {
			return nil, fmt.Errorf("unexpected shadow scope type %T", child)
		}
		return &Scope{frame: b.scope.frame, snap: snap}, nil
	}

	// Find the live frame matching the snapshot's iframe URL. A frame we
	// cannot pair up or read is skipped as inaccessible.
	for _, child := range b.scope.frame.ChildFrames() {
		if child.URL() != b.inner.URL() {
			continue
		}
		return newScope(child, string(b.inner.Kind())+":"+child.URL())
	}
	return nil, dom.ErrInaccessible
}

// ScrollBy scrolls the live frame viewport with smooth easing.
func (s *Scope) ScrollBy(dx, dy float64) error {
	script := fmt.Sprintf("window.scrollBy({left: %.0f, top: %.0f, behavior: 'smooth'})", dx, dy)
	if _, err := s.frame.Evaluate(script); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// ShowOverlay injects a transient, non-interactive overlay into the live
// page and returns its remover.
func (s *Scope) ShowOverlay(spec dom.OverlaySpec) (func(), error) {
	overlayID := "waypoint-" + uuid.New().String()
	style := fmt.Sprintf(
		"position:fixed;pointer-events:none;z-index:2147483647;left:%.0fpx;top:%.0fpx;width:%.0fpx;height:%.0fpx;",
		spec.Target.X, spec.Target.Y, spec.Target.W, spec.Target.H)
	switch spec.Kind {
	case dom.OverlayRipple:
		style += "border-radius:50%;background:rgba(66,133,244,0.4);transition:transform 300ms,opacity 300ms;"
	case dom.OverlayOutline:
		style += "outline:3px solid rgba(66,133,244,0.8);"
	}

	script := fmt.Sprintf(`() => {
		const el = document.createElement('div');
		el.id = %q;
		el.setAttribute('data-waypoint-overlay', %q);
		el.setAttribute('aria-hidden', 'true');
		el.style.cssText = %q;
		document.body.appendChild(el);
	}`, overlayID, string(spec.Kind), style)

	if _, err := s.frame.Evaluate(script); err != nil {
		return nil, fmt.Errorf("failed to render overlay: %w", err)
	}

	remove := func() {
		removeScript := fmt.Sprintf(`() => {
			const el = document.getElementById(%q);
			if (el) el.remove();
		}`, overlayID)
		_, _ = s.frame.Evaluate(removeScript)
	}
	return remove, nil
}

// Node wraps a snapshot node and replays its effects on the live frame.
type Node struct {
	dom.Node
	frame    playwright.Frame
	selector string
}

// Click dispatches a real click through Playwright.
func (n *Node) Click() error {
	if err := n.frame.Click(n.selector); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// SetValue fills the live element; Playwright focuses it and fires input
// and change events itself.
func (n *Node) SetValue(value string) error {
	if err := n.frame.Fill(n.selector, value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Focus focuses the live element.
func (n *Node) Focus() error {
	if err := n.frame.Focus(n.selector); err != nil {
		return fmt.Errorf("focus failed: %w", err)
	}
	return nil
}
