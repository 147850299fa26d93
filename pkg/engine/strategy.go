package engine

import (
	"strings"

	"github.com/entrhq/waypoint/pkg/dom"
)

// strategyKind is the closed set of matching strategies. Dispatch is a
// single exhaustive switch rather than a lookup table, so adding a kind
// without wiring its matcher fails at compile time.
type strategyKind int

const (
	strategyExactButton strategyKind = iota
	strategyExactLink
	strategyPartialButton
	strategyPartialLink
	strategyAriaLabel
	strategyValueAttr
	strategyPartialAny
	strategySelector
	strategyPlaceholder
	strategyLabelFor
	strategyInputAria
	strategyFirstField
)

// Name returns the strategy's reporting name.
func (k strategyKind) Name() string {
	switch k {
	case strategyExactButton:
		return "exact_button"
	case strategyExactLink:
		return "exact_link"
	case strategyPartialButton:
		return "partial_button"
	case strategyPartialLink:
		return "partial_link"
	case strategyAriaLabel:
		return "aria_label"
	case strategyValueAttr:
		return "value_attr"
	case strategyPartialAny:
		return "partial_any"
	case strategySelector:
		return "selector"
	case strategyPlaceholder:
		return "placeholder"
	case strategyLabelFor:
		return "label_for"
	case strategyInputAria:
		return "input_aria_label"
	case strategyFirstField:
		return "first_field"
	}
	return "unknown"
}

// Confidence returns the strategy's fixed weight. Confidence is static per
// strategy, used for reporting and the traversal floor, never recomputed
// per match.
func (k strategyKind) Confidence() float64 {
	switch k {
	case strategyExactButton:
		return 1.00
	case strategyExactLink:
		return 0.95
	case strategyPartialButton:
		return 0.70
	case strategyPartialLink:
		return 0.65
	case strategyAriaLabel:
		return 0.60
	case strategyValueAttr:
		return 0.50
	case strategyPartialAny:
		return 0.40
	case strategySelector:
		return 0.30
	case strategyPlaceholder:
		return 0.85
	case strategyLabelFor:
		return 0.80
	case strategyInputAria:
		return 0.60
	case strategyFirstField:
		return 0.30
	}
	return 0
}

// clickChain is the fixed precision-over-recall ordering for click-like
// actions: cheap high-confidence matches first so common cases resolve in
// one strategy attempt.
var clickChain = []strategyKind{
	strategyExactButton,
	strategyExactLink,
	strategyPartialButton,
	strategyPartialLink,
	strategyAriaLabel,
	strategyValueAttr,
	strategyPartialAny,
	strategySelector,
}

// typeChain is the ordering for text-entry targets.
var typeChain = []strategyKind{
	strategyPlaceholder,
	strategyLabelFor,
	strategyInputAria,
	strategySelector,
	strategyFirstField,
}

// retryClickChain and retryTypeChain are the partial-text strategies re-run
// once after scroll-and-retry.
var retryClickChain = []strategyKind{
	strategyPartialButton,
	strategyPartialLink,
	strategyPartialAny,
}

var retryTypeChain = []strategyKind{
	strategyPlaceholder,
	strategyInputAria,
}

// chainFor selects the strategy ordering for an action.
func chainFor(action ActionKind) []strategyKind {
	if action == ActionType {
		return typeChain
	}
	return clickChain
}

func retryChainFor(action ActionKind) []strategyKind {
	if action == ActionType {
		return retryTypeChain
	}
	return retryClickChain
}

// applicable reports whether the descriptor carries what the strategy
// matches on.
func (k strategyKind) applicable(d Descriptor) bool {
	switch k {
	case strategySelector:
		return d.Selector != ""
	case strategyFirstField:
		return true
	default:
		return d.Text != ""
	}
}

// candidates returns the scope nodes the strategy matches, in document
// order. Exhaustive over strategyKind.
func (k strategyKind) candidates(d Descriptor, sc dom.Scope) []dom.Node {
	switch k {
	case strategyExactButton:
		return matchText(buttonCandidates(sc), d.Text, matchExact)
	case strategyExactLink:
		return matchText(sc.Elements("a"), d.Text, matchExact)
	case strategyPartialButton:
		return matchText(buttonCandidates(sc), d.Text, matchPartial)
	case strategyPartialLink:
		return matchText(sc.Elements("a"), d.Text, matchPartial)
	case strategyAriaLabel:
		return matchLabel(sc.Elements(), d.Text)
	case strategyValueAttr:
		return matchValue(sc.Elements(), d.Text)
	case strategyPartialAny:
		return innermost(matchText(sc.Elements(), d.Text, matchPartial))
	case strategySelector:
		nodes, err := sc.Query(d.Selector)
		if err != nil {
			return nil
		}
		return nodes
	case strategyPlaceholder:
		return matchPlaceholder(fieldCandidates(sc), d.Text)
	case strategyLabelFor:
		return matchLabelFor(sc, d.Text)
	case strategyInputAria:
		return matchLabel(fieldCandidates(sc), d.Text)
	case strategyFirstField:
		return fieldCandidates(sc)
	}
	return nil
}

// scopeMatch is a successful single-scope resolution.
type scopeMatch struct {
	node dom.Node
	kind strategyKind
}

// runChain tries the strategies in their declared order within one scope.
// The first strategy yielding a node that passes the visibility predicate
// wins and later strategies are not attempted. A strategy whose best
// candidate renders but is disabled terminates the chain with ErrDisabled:
// the descriptor found the right element in the wrong state, which callers
// must be able to tell apart from not-found.
func runChain(d Descriptor, sc dom.Scope, kinds []strategyKind) (*scopeMatch, []string, error) {
	var attempted []string
	for _, k := range kinds {
		if !k.applicable(d) {
			continue
		}
		attempted = append(attempted, k.Name())

		var disabled dom.Node
		for _, n := range k.candidates(d, sc) {
			if Visible(n) {
				return &scopeMatch{node: n, kind: k}, attempted, nil
			}
			if disabled == nil && presentable(n) && n.Disabled() {
				disabled = n
			}
		}
		if disabled != nil {
			return nil, attempted, ErrDisabled
		}
	}
	return nil, attempted, nil
}

// matchMode distinguishes exact equality from prefix-then-substring text
// matching.
type matchMode int

const (
	matchExact matchMode = iota
	matchPartial
)

// matchText filters nodes whose visible text (value for value-carrying
// inputs) matches the wanted text. Partial matching prefers prefix matches
// over substring matches.
func matchText(nodes []dom.Node, want string, mode matchMode) []dom.Node {
	if mode == matchExact {
		var out []dom.Node
		for _, n := range nodes {
			if nodeText(n) == want {
				out = append(out, n)
			}
		}
		return out
	}

	lower := strings.ToLower(want)
	var prefix, substr []dom.Node
	for _, n := range nodes {
		text := strings.ToLower(nodeText(n))
		if text == "" {
			continue
		}
		switch {
		case strings.HasPrefix(text, lower):
			prefix = append(prefix, n)
		case strings.Contains(text, lower):
			substr = append(substr, n)
		}
	}
	if len(prefix) > 0 {
		return prefix
	}
	return substr
}

// matchLabel filters nodes whose accessible label contains the wanted text,
// case-insensitive.
func matchLabel(nodes []dom.Node, want string) []dom.Node {
	lower := strings.ToLower(want)
	var out []dom.Node
	for _, n := range nodes {
		if label := strings.ToLower(n.Label()); label != "" && strings.Contains(label, lower) {
			out = append(out, n)
		}
	}
	return out
}

// matchValue filters nodes whose value attribute contains the wanted text,
// case-insensitive.
func matchValue(nodes []dom.Node, want string) []dom.Node {
	lower := strings.ToLower(want)
	var out []dom.Node
	for _, n := range nodes {
		if v := strings.ToLower(n.Value()); v != "" && strings.Contains(v, lower) {
			out = append(out, n)
		}
	}
	return out
}

// matchPlaceholder filters fields whose placeholder contains the wanted
// text, case-insensitive.
func matchPlaceholder(nodes []dom.Node, want string) []dom.Node {
	lower := strings.ToLower(want)
	var out []dom.Node
	for _, n := range nodes {
		if p := strings.ToLower(n.Attr("placeholder")); p != "" && strings.Contains(p, lower) {
			out = append(out, n)
		}
	}
	return out
}

// matchLabelFor resolves fields through label elements: a label whose text
// contains the wanted text points at its field via the for attribute.
func matchLabelFor(sc dom.Scope, want string) []dom.Node {
	lower := strings.ToLower(want)
	fields := fieldCandidates(sc)
	byID := make(map[string]dom.Node, len(fields))
	for _, f := range fields {
		if id := f.Attr("id"); id != "" {
			if _, seen := byID[id]; !seen {
				byID[id] = f
			}
		}
	}

	var out []dom.Node
	for _, label := range sc.Elements("label") {
		if !strings.Contains(strings.ToLower(label.Text()), lower) {
			continue
		}
		if target, ok := byID[label.Attr("for")]; ok {
			out = append(out, target)
		}
	}
	return out
}

// buttonCandidates enumerates the restricted click tag set: buttons,
// button-typed inputs, and anything carrying role=button.
func buttonCandidates(sc dom.Scope) []dom.Node {
	var out []dom.Node
	for _, n := range sc.Elements("button") {
		out = append(out, n)
	}
	for _, n := range sc.Elements("input") {
		switch strings.ToLower(n.Attr("type")) {
		case "button", "submit", "reset":
			out = append(out, n)
		}
	}
	for _, n := range sc.Elements() {
		if strings.EqualFold(n.Attr("role"), "button") && n.Tag() != "button" {
			out = append(out, n)
		}
	}
	return out
}

// fieldCandidates enumerates text-entry fields.
func fieldCandidates(sc dom.Scope) []dom.Node {
	var out []dom.Node
	for _, n := range sc.Elements("input") {
		switch strings.ToLower(n.Attr("type")) {
		case "", "text", "email", "password", "search", "tel", "url", "number":
			out = append(out, n)
		}
	}
	out = append(out, sc.Elements("textarea")...)
	return out
}

// nodeText returns the text a user sees on the node: visible text, or the
// value attribute for value-labeled inputs.
func nodeText(n dom.Node) string {
	if text := n.Text(); text != "" {
		return text
	}
	if n.Tag() == "input" {
		return n.Value()
	}
	return ""
}

// innermost drops nodes that contain another match, so a container whose
// text includes a matching descendant never shadows the descendant.
// Containment is approximated through text inclusion: document order puts
// containers before their descendants and a container's collapsed text
// includes its descendants' text.
func innermost(nodes []dom.Node) []dom.Node {
	if len(nodes) <= 1 {
		return nodes
	}
	var out []dom.Node
	for i, n := range nodes {
		contains := false
		for j := i + 1; j < len(nodes); j++ {
			other := nodes[j].Text()
			if other != "" && strings.Contains(n.Text(), other) {
				contains = true
				break
			}
		}
		if !contains {
			out = append(out, n)
		}
	}
	return out
}
