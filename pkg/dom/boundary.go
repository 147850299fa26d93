package dom

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// boundary implements Boundary for the snapshot backend.
type boundary struct {
	kind   BoundaryKind
	url    string
	enter  func() (Scope, error)
	cached Scope
}

func (b *boundary) Kind() BoundaryKind { return b.kind }
func (b *boundary) URL() string        { return b.url }

// Enter memoizes the first successful entry. Failures are not cached so a
// polling caller can observe a frame that loads later.
func (b *boundary) Enter() (Scope, error) {
	if b.cached != nil {
		return b.cached, nil
	}
	sc, err := b.enter()
	if err != nil {
		return nil, err
	}
	b.cached = sc
	return sc, nil
}

// Boundaries enumerates the edges into child scopes: one per shadow host
// (an element with a template[shadowrootmode] child, the declarative shadow
// root form) and one per iframe, in document order.
func (s *Snapshot) Boundaries() []Boundary {
	var out []Boundary
	shadowIdx, frameIdx := 0, 0
	walk(s.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n == s.root {
			return true
		}
		switch {
		case n.Data == "template" && hasAttrNode(n, "shadowrootmode"):
			// Don't walk into template content from the parent scope.
			out = append(out, s.shadowBoundary(n, shadowIdx))
			shadowIdx++
			return false
		case n.Data == "iframe":
			out = append(out, s.frameBoundary(n, frameIdx))
			frameIdx++
			return false
		}
		return true
	})
	return out
}

// shadowBoundary builds the edge into one declarative shadow root. Shadow
// roots are always accessible in this design, closed mode included.
func (s *Snapshot) shadowBoundary(tmpl *html.Node, idx int) Boundary {
	id := fmt.Sprintf("%s/shadow[%d]", s.id, idx)
	return &boundary{
		kind: BoundaryShadow,
		enter: func() (Scope, error) {
			child := newSnapshot(id, tmpl)
			child.base = s.base
			child.loader = s.loader
			return child, nil
		},
	}
}

// frameBoundary builds the edge into one iframe. Inline srcdoc frames are
// same-origin by definition; src frames are accessible only when their
// resolved URL shares the parent's origin and a frame loader is available.
func (s *Snapshot) frameBoundary(frame *html.Node, idx int) Boundary {
	id := fmt.Sprintf("%s/frame[%d]", s.id, idx)
	frameURL := s.resolveFrameURL(attrVal(frame, "src"))

	return &boundary{
		kind: BoundaryFrame,
		url:  frameURL,
		enter: func() (Scope, error) {
			if srcdoc := attrVal(frame, "srcdoc"); srcdoc != "" {
				child, err := ParseString(srcdoc, WithID(id))
				if err != nil {
					return nil, fmt.Errorf("failed to parse frame content: %w", err)
				}
				child.base = s.base
				child.loader = s.loader
				return child, nil
			}
			if frameURL == "" {
				return nil, ErrInaccessible
			}
			if !s.sameOrigin(frameURL) {
				return nil, ErrInaccessible
			}
			if s.loader == nil {
				return nil, fmt.Errorf("%w: no frame loader configured", ErrInaccessible)
			}
			child, err := s.loader(frameURL)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInaccessible, err)
			}
			child.id = id
			if child.base == nil {
				if u, perr := url.Parse(frameURL); perr == nil {
					child.base = u
				}
			}
			if child.loader == nil {
				child.loader = s.loader
			}
			return child, nil
		},
	}
}

// resolveFrameURL resolves a frame src against the scope's base URL.
func (s *Snapshot) resolveFrameURL(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if s.base != nil {
		u = s.base.ResolveReference(u)
	}
	return u.String()
}

// sameOrigin reports whether absURL shares the snapshot's origin. With no
// base URL configured the snapshot is origin-less and only srcdoc frames
// are reachable.
func (s *Snapshot) sameOrigin(absURL string) bool {
	if s.base == nil || s.base.Host == "" {
		return false
	}
	u, err := url.Parse(absURL)
	if err != nil {
		return false
	}
	return u.Scheme == s.base.Scheme && u.Host == s.base.Host
}
