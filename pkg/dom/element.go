package dom

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Default box for visible elements without explicit geometry. The static
// backend has no layout engine, so elements that declare no width/height in
// their inline style get a nominal interactable box.
const (
	defaultBoxWidth  = 100
	defaultBoxHeight = 24
)

// element implements Node over one *html.Node inside a Snapshot.
type element struct {
	scope *Snapshot
	node  *html.Node
}

func (e *element) Tag() string { return strings.ToLower(e.node.Data) }

func (e *element) Attr(name string) string {
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func (e *element) HasAttr(name string) bool {
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return true
		}
	}
	return false
}

func (e *element) Text() string {
	var b strings.Builder
	collectVisibleText(e.node, &b)
	return collapseWhitespace(b.String())
}

func (e *element) Label() string {
	if v := e.Attr("aria-label"); v != "" {
		return v
	}
	if id := e.Attr("aria-labelledby"); id != "" {
		if ref := e.scope.byID(id); ref != nil {
			return collapseWhitespace(rawText(ref))
		}
	}
	if id := e.Attr("id"); id != "" {
		if lbl := e.scope.labelFor(id); lbl != nil {
			return collapseWhitespace(rawText(lbl))
		}
	}
	return e.Attr("title")
}

func (e *element) Value() string { return e.Attr("value") }

func (e *element) Disabled() bool {
	if e.HasAttr("disabled") {
		return true
	}
	return strings.EqualFold(e.Attr("aria-disabled"), "true")
}

func (e *element) Hidden() bool {
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if nodeHidden(n) {
			return true
		}
	}
	return false
}

func (e *element) Box() Rect {
	if e.Hidden() {
		return Rect{}
	}
	style := parseInlineStyle(e.Attr("style"))
	box := Rect{
		X: stylePx(style, "left", 0),
		Y: stylePx(style, "top", 0),
		W: stylePx(style, "width", defaultBoxWidth),
		H: stylePx(style, "height", defaultBoxHeight),
	}
	return box
}

func (e *element) Click() error {
	if e.node.Parent == nil && e.node.Type == html.ElementNode {
		return fmt.Errorf("cannot dispatch click on detached node")
	}
	e.scope.recordEvent("click", e.node)
	return nil
}

func (e *element) SetValue(value string) error {
	if err := e.Focus(); err != nil {
		return err
	}
	e.setAttr("value", value)
	e.scope.recordEvent("input", e.node)
	e.scope.recordEvent("change", e.node)
	return nil
}

func (e *element) Focus() error {
	if e.node.Parent == nil && e.node.Type == html.ElementNode {
		return fmt.Errorf("cannot focus detached node")
	}
	e.scope.recordEvent("focus", e.node)
	return nil
}

func (e *element) setAttr(name, value string) {
	for i, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// byID returns the element with the given id attribute, or nil.
func (s *Snapshot) byID(id string) *html.Node {
	var found *html.Node
	walk(s.root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && attrVal(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// labelFor returns the label element whose for attribute references id.
func (s *Snapshot) labelFor(id string) *html.Node {
	var found *html.Node
	walk(s.root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && n.Data == "label" && attrVal(n, "for") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

func attrVal(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// nodeHidden reports whether a single element hides itself and its subtree.
func nodeHidden(n *html.Node) bool {
	if hasAttrNode(n, "hidden") {
		return true
	}
	if strings.EqualFold(attrVal(n, "aria-hidden"), "true") {
		return true
	}
	if n.Data == "input" && strings.EqualFold(attrVal(n, "type"), "hidden") {
		return true
	}
	style := parseInlineStyle(attrVal(n, "style"))
	if strings.EqualFold(style["display"], "none") {
		return true
	}
	if strings.EqualFold(style["visibility"], "hidden") {
		return true
	}
	return false
}

func hasAttrNode(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return true
		}
	}
	return false
}

// nonRenderedTags never contribute visible text.
var nonRenderedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"title":    true,
	"meta":     true,
	"link":     true,
	"iframe":   true,
}

// collectVisibleText appends the visible text under n, skipping non-rendered
// and hidden sub-trees.
func collectVisibleText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		if nonRenderedTags[n.Data] || nodeHidden(n) {
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString(" ")
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectVisibleText(c, b)
	}
}

// rawText returns all text under n regardless of visibility, for label and
// title lookups where hidden label text is still announced.
func rawText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style") {
			return false
		}
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteString(" ")
		}
		return true
	})
	return b.String()
}

// collapseWhitespace trims and folds runs of whitespace to single spaces,
// matching how rendered text reads.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// parseInlineStyle splits a style attribute into property/value pairs.
func parseInlineStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

func stylePx(style map[string]string, prop string, fallback float64) float64 {
	raw, ok := style[prop]
	if !ok {
		return fallback
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "px")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
