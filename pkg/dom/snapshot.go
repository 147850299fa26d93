package dom

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// FrameLoader fetches the document for a same-origin frame by absolute URL.
// The snapshot backend has no network layer of its own; callers that want
// frame descent over src-loaded frames supply one.
type FrameLoader func(absURL string) (*Snapshot, error)

// Event records an effect dispatched on a snapshot node. Tests and
// host-side observers use the event log to verify what an action did.
type Event struct {
	// Type is the dispatched event name: "click", "focus", "input", "change".
	Type string

	// Target is the tag of the node the event was dispatched on.
	Target string

	// TargetText is the node's visible text at dispatch time.
	TargetText string
}

// Snapshot is the in-memory Scope implementation over a parsed HTML tree.
// Queries are read-only with respect to the parse; effects mutate the tree
// and append to the snapshot's event log.
type Snapshot struct {
	id     string
	base   *url.URL
	root   *html.Node
	doc    *goquery.Document
	loader FrameLoader

	mu       sync.Mutex
	scrollX  float64
	scrollY  float64
	events   []Event
	overlays int
}

// Option configures snapshot parsing.
type Option func(*Snapshot)

// WithURL sets the document URL the snapshot was loaded from. Frame
// accessibility is decided against this URL's origin.
func WithURL(raw string) Option {
	return func(s *Snapshot) {
		if u, err := url.Parse(raw); err == nil {
			s.base = u
		}
	}
}

// WithFrameLoader installs a loader for same-origin src frames.
func WithFrameLoader(l FrameLoader) Option {
	return func(s *Snapshot) { s.loader = l }
}

// WithID overrides the root scope identifier (default "root").
func WithID(id string) Option {
	return func(s *Snapshot) { s.id = id }
}

// Parse builds a Snapshot from serialized HTML.
func Parse(r io.Reader, opts ...Option) (*Snapshot, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return newSnapshot("root", node, opts...), nil
}

// ParseString is Parse over a string.
func ParseString(raw string, opts ...Option) (*Snapshot, error) {
	return Parse(strings.NewReader(raw), opts...)
}

func newSnapshot(id string, root *html.Node, opts ...Option) *Snapshot {
	s := &Snapshot{
		id:   id,
		root: root,
		doc:  goquery.NewDocumentFromNode(root),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the scope identifier.
func (s *Snapshot) ID() string { return s.id }

// Title returns the text of the document's title element.
func (s *Snapshot) Title() string {
	var title string
	walk(s.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = collapseWhitespace(rawText(n))
			return false
		}
		return true
	})
	return title
}

// Origin returns the scheme://host origin of the snapshot's URL, or "" when
// no URL was supplied.
func (s *Snapshot) Origin() string {
	if s.base == nil || s.base.Host == "" {
		return ""
	}
	return s.base.Scheme + "://" + s.base.Host
}

// Query returns nodes matching a CSS selector, in document order. Malformed
// selectors are an error, not an empty match.
func (s *Snapshot) Query(selector string) ([]Node, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	sel := s.doc.FindMatcher(matcher)
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, gq *goquery.Selection) {
		for _, n := range gq.Nodes {
			// Template sub-trees belong to child shadow scopes, same
			// exclusion as Elements.
			if s.insideTemplate(n) {
				continue
			}
			nodes = append(nodes, &element{scope: s, node: n})
		}
	})
	return nodes, nil
}

// insideTemplate reports whether n sits under a template element below this
// scope's root.
func (s *Snapshot) insideTemplate(n *html.Node) bool {
	for p := n.Parent; p != nil && p != s.root; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "template" {
			return true
		}
	}
	return false
}

// Elements returns all elements with one of the given tags, in document
// order, excluding elements inside template sub-trees (those belong to
// child shadow scopes).
func (s *Snapshot) Elements(tags ...string) []Node {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[strings.ToLower(t)] = true
	}
	var nodes []Node
	walk(s.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "template" && n != s.root {
			return false
		}
		if n.Type == html.ElementNode && (len(want) == 0 || want[n.Data]) {
			nodes = append(nodes, &element{scope: s, node: n})
		}
		return true
	})
	return nodes
}

// VisibleText returns up to limit characters of visible text in document
// order. Truncation is silent.
func (s *Snapshot) VisibleText(limit int) string {
	var b strings.Builder
	if s.root.Type == html.ElementNode && s.root.Data == "template" {
		// Shadow scope: the root is the declarative template itself.
		for c := s.root.FirstChild; c != nil; c = c.NextSibling {
			collectVisibleText(c, &b)
		}
	} else {
		collectVisibleText(s.root, &b)
	}
	text := collapseWhitespace(b.String())
	if limit > 0 && len(text) > limit {
		// Limit counts characters, not bytes; never split a rune.
		if r := []rune(text); len(r) > limit {
			return string(r[:limit])
		}
	}
	return text
}

// ScrollBy adjusts the snapshot's scroll position. The static backend has no
// layout engine, so the offset is tracked for observation only.
func (s *Snapshot) ScrollBy(dx, dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollX += dx
	s.scrollY += dy
	if s.scrollX < 0 {
		s.scrollX = 0
	}
	if s.scrollY < 0 {
		s.scrollY = 0
	}
	return nil
}

// ScrollOffset returns the current tracked scroll position.
func (s *Snapshot) ScrollOffset() (x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollX, s.scrollY
}

// ShowOverlay inserts a non-interactive overlay node into the tree and
// returns its remover. The remover is idempotent.
func (s *Snapshot) ShowOverlay(spec OverlaySpec) (func(), error) {
	body := findBody(s.root)
	if body == nil {
		// Shadow and fragment scopes have no body; attach to the root.
		body = s.root
	}
	overlay := &html.Node{
		Type: html.ElementNode,
		Data: "div",
		Attr: []html.Attribute{
			{Key: "data-waypoint-overlay", Val: string(spec.Kind)},
			{Key: "aria-hidden", Val: "true"},
			{Key: "style", Val: fmt.Sprintf(
				"position:fixed;pointer-events:none;left:%.0fpx;top:%.0fpx;width:%.0fpx;height:%.0fpx",
				spec.Target.X, spec.Target.Y, spec.Target.W, spec.Target.H)},
		},
	}

	s.mu.Lock()
	body.AppendChild(overlay)
	s.overlays++
	s.mu.Unlock()

	var once sync.Once
	remove := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if overlay.Parent != nil {
				overlay.Parent.RemoveChild(overlay)
			}
			s.overlays--
		})
	}
	return remove, nil
}

// ActiveOverlays returns the number of overlay nodes currently attached.
func (s *Snapshot) ActiveOverlays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlays
}

// Events returns the effects dispatched on this snapshot so far.
func (s *Snapshot) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Snapshot) recordEvent(typ string, n *html.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{
		Type:       typ,
		Target:     n.Data,
		TargetText: collapseWhitespace(rawText(n)),
	})
}

// walk visits n and its descendants in document order. Returning false from
// fn skips the node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findBody(root *html.Node) *html.Node {
	var body *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return false
		}
		return true
	})
	return body
}
