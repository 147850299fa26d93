package engine

import (
	"fmt"
	"strings"

	"github.com/entrhq/waypoint/pkg/dom"
)

// Summary caps. These bound the payload handed to the downstream intent
// layer; truncation is silent and ordering follows document order.
const (
	MaxSummaryHeadings  = 10
	MaxSummaryButtons   = 15
	MaxSummaryLinks     = 15
	MaxSummaryInputs    = 10
	MaxSummaryLabelLen  = 50
	MaxSummaryTextChars = 2000
)

// Summary is a deterministic, size-capped digest of one scope.
type Summary struct {
	Title    string   `json:"title,omitempty"`
	Headings []string `json:"headings,omitempty"`
	Buttons  []string `json:"buttons,omitempty"`
	Links    []string `json:"links,omitempty"`
	Inputs   []string `json:"inputs,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// Summarize digests a scope: title, up to 10 headings, up to 15 button and
// link labels (50 chars each), up to 10 input descriptors, and the first
// 2000 characters of visible text.
func Summarize(sc dom.Scope) Summary {
	s := Summary{Title: sc.Title()}

	for _, h := range sc.Elements("h1", "h2", "h3", "h4", "h5", "h6") {
		if len(s.Headings) >= MaxSummaryHeadings {
			break
		}
		if text := h.Text(); text != "" {
			s.Headings = append(s.Headings, text)
		}
	}

	for _, b := range buttonCandidates(sc) {
		if len(s.Buttons) >= MaxSummaryButtons {
			break
		}
		if text := nodeText(b); text != "" {
			s.Buttons = append(s.Buttons, clip(text, MaxSummaryLabelLen))
		}
	}

	for _, a := range sc.Elements("a") {
		if len(s.Links) >= MaxSummaryLinks {
			break
		}
		if text := a.Text(); text != "" {
			s.Links = append(s.Links, clip(text, MaxSummaryLabelLen))
		}
	}

	for _, in := range fieldCandidates(sc) {
		if len(s.Inputs) >= MaxSummaryInputs {
			break
		}
		s.Inputs = append(s.Inputs, describeInput(in))
	}

	s.Text = sc.VisibleText(MaxSummaryTextChars)
	return s
}

// describeInput names an input by the most specific identifier available:
// placeholder, else accessible label, else name, else the literal "input".
func describeInput(n dom.Node) string {
	if p := n.Attr("placeholder"); p != "" {
		return clip(p, MaxSummaryLabelLen)
	}
	if l := n.Label(); l != "" {
		return clip(l, MaxSummaryLabelLen)
	}
	if name := n.Attr("name"); name != "" {
		return clip(name, MaxSummaryLabelLen)
	}
	return "input"
}

// String renders the summary as the plain-text digest consumed verbatim by
// the intent layer.
func (s Summary) String() string {
	var b strings.Builder
	if s.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", s.Title)
	}
	writeSection(&b, "Headings", s.Headings)
	writeSection(&b, "Buttons", s.Buttons)
	writeSection(&b, "Links", s.Links)
	writeSection(&b, "Inputs", s.Inputs)
	if s.Text != "" {
		fmt.Fprintf(&b, "Text: %s\n", s.Text)
	}
	return b.String()
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

// clip truncates to max characters, never splitting a rune.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
