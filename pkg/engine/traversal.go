package engine

import (
	"errors"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/entrhq/waypoint/pkg/dom"
	"github.com/entrhq/waypoint/pkg/logging"
)

// FloorConfidence is the minimum strategy weight a match must carry before
// traversal accepts it and stops searching further scopes.
const FloorConfidence = 0.3

// Resolution locates one node together with how it was found. ScopePath is
// the ordered list of scope identifiers walked to reach the node, so a
// later action in the same step sequence can re-enter the same frame.
type Resolution struct {
	Node       dom.Node
	Scope      dom.Scope
	Strategy   string
	Confidence float64
	ScopePath  []string
}

// Traverser broadens the single-scope strategy chain into a whole-tree
// search: breadth-first over scopes, first match at or above the confidence
// floor wins. First-match-wins rather than best-over-whole-tree keeps
// latency bounded on pages with many frames.
type Traverser struct {
	floor  float64
	allow  []glob.Glob
	deny   []glob.Glob
	logger *logging.Logger
}

// NewTraverser builds a traverser. Allow and deny are glob patterns tested
// against frame URLs before descent; a frame matching deny, or matching
// nothing in a non-empty allow list, is skipped exactly like a cross-origin
// frame. Empty pattern lists permit every same-origin frame.
func NewTraverser(floor float64, allowPatterns, denyPatterns []string, logger *logging.Logger) (*Traverser, error) {
	if floor <= 0 {
		floor = FloorConfidence
	}
	allow, err := compilePatterns(allowPatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid frame allow pattern: %w", err)
	}
	deny, err := compilePatterns(denyPatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid frame deny pattern: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Traverser{floor: floor, allow: allow, deny: deny, logger: logger}, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Resolve searches for the descriptor starting at root. It returns
// (nil, error) with ErrDisabled when the matched element is unusable, and a
// notFoundError carrying the attempted strategy names when no scope
// yielded a match. Inaccessible scopes are skipped, never errors.
func (t *Traverser) Resolve(d Descriptor, root dom.Scope) (*Resolution, error) {
	return t.resolve(d, root, chainFor(d.Action))
}

// ResolveRetry re-runs only the partial-text strategies, used once after
// scroll-and-retry.
func (t *Traverser) ResolveRetry(d Descriptor, root dom.Scope) (*Resolution, error) {
	return t.resolve(d, root, retryChainFor(d.Action))
}

type scopeEntry struct {
	scope dom.Scope
	path  []string
}

func (t *Traverser) resolve(d Descriptor, root dom.Scope, kinds []strategyKind) (*Resolution, error) {
	queue := []scopeEntry{{scope: root, path: []string{root.ID()}}}
	attempted := newStringSet()

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		match, tried, err := runChain(d, entry.scope, kinds)
		attempted.add(tried...)
		if err != nil {
			// Found the right element in the wrong state; the whole
			// search stops so the caller sees "disabled", not a weaker
			// match from a sibling frame.
			return nil, err
		}
		if match != nil && match.kind.Confidence() >= t.floor {
			t.logger.Debugf("resolved %q via %s in scope %s",
				d.Text, match.kind.Name(), entry.scope.ID())
			return &Resolution{
				Node:       match.node,
				Scope:      entry.scope,
				Strategy:   match.kind.Name(),
				Confidence: match.kind.Confidence(),
				ScopePath:  entry.path,
			}, nil
		}

		for _, b := range entry.scope.Boundaries() {
			if b.Kind() == dom.BoundaryFrame && !t.framePermitted(b.URL()) {
				t.logger.Debugf("skipping frame %s: filtered by pattern", b.URL())
				continue
			}
			child, err := b.Enter()
			if err != nil {
				if errors.Is(err, dom.ErrInaccessible) {
					// Cross-origin or unloadable; contributes zero
					// candidates and no error.
					continue
				}
				t.logger.Warnf("failed to enter %s boundary: %v", b.Kind(), err)
				continue
			}
			childPath := append(append([]string(nil), entry.path...), child.ID())
			queue = append(queue, scopeEntry{scope: child, path: childPath})
		}
	}

	return nil, &notFoundError{attempted: attempted.ordered()}
}

// ResolveAt re-runs the chain directly inside a previously recorded scope
// path, for re-entrant actions in the same frame. It falls back to a full
// traversal when the path no longer resolves.
func (t *Traverser) ResolveAt(d Descriptor, root dom.Scope, path []string) (*Resolution, error) {
	sc := followPath(root, path)
	if sc == nil {
		return t.Resolve(d, root)
	}
	match, _, err := runChain(d, sc, chainFor(d.Action))
	if err != nil {
		return nil, err
	}
	if match == nil || match.kind.Confidence() < t.floor {
		return t.Resolve(d, root)
	}
	return &Resolution{
		Node:       match.node,
		Scope:      sc,
		Strategy:   match.kind.Name(),
		Confidence: match.kind.Confidence(),
		ScopePath:  append([]string(nil), path...),
	}, nil
}

// followPath walks scope identifiers from the root, returning nil when any
// hop no longer exists or is inaccessible.
func followPath(root dom.Scope, path []string) dom.Scope {
	if len(path) == 0 || root.ID() != path[0] {
		return nil
	}
	sc := root
	for _, id := range path[1:] {
		var next dom.Scope
		for _, b := range sc.Boundaries() {
			child, err := b.Enter()
			if err == nil && child.ID() == id {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		sc = next
	}
	return sc
}

func (t *Traverser) framePermitted(url string) bool {
	for _, g := range t.deny {
		if g.Match(url) {
			return false
		}
	}
	if len(t.allow) == 0 {
		return true
	}
	for _, g := range t.allow {
		if g.Match(url) {
			return true
		}
	}
	return false
}

// stringSet preserves first-seen order, for the attempted-strategy
// diagnostics list.
type stringSet struct {
	seen  map[string]bool
	order []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]bool)}
}

func (s *stringSet) add(values ...string) {
	for _, v := range values {
		if !s.seen[v] {
			s.seen[v] = true
			s.order = append(s.order, v)
		}
	}
}

func (s *stringSet) ordered() []string { return s.order }
