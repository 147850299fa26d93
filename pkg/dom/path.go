package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// PathTo returns a CSS :nth-of-type path from the scope root to n, for
// replaying effects on a node outside the snapshot (the live browser
// adapter builds its fallback selectors with it). It reports false when n
// does not belong to this snapshot.
func (s *Snapshot) PathTo(n Node) (string, bool) {
	el, ok := n.(*element)
	if !ok || el.scope != s {
		return "", false
	}

	var segments []string
	for cur := el.node; cur != nil && cur != s.root; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if cur.Data == "html" || cur.Data == "body" {
			segments = append(segments, cur.Data)
			continue
		}
		segments = append(segments, fmt.Sprintf("%s:nth-of-type(%d)", cur.Data, nthOfType(cur)))
	}

	// Reverse into document order.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	if len(segments) == 0 {
		return "", false
	}
	return strings.Join(segments, " > "), true
}

// nthOfType returns the node's 1-based index among same-tag element
// siblings.
func nthOfType(n *html.Node) int {
	idx := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			idx++
		}
	}
	return idx
}
