package dom

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, raw string, opts ...Option) *Snapshot {
	t.Helper()
	snap, err := ParseString(raw, opts...)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	return snap
}

func queryOne(t *testing.T, snap *Snapshot, selector string) Node {
	t.Helper()
	nodes, err := snap.Query(selector)
	if err != nil {
		t.Fatalf("Query(%q) failed: %v", selector, err)
	}
	if len(nodes) != 1 {
		t.Fatalf("Query(%q): expected 1 node, got %d", selector, len(nodes))
	}
	return nodes[0]
}

func TestLabelResolution(t *testing.T) {
	snap := mustParse(t, `<html><body>
		<button id="a" aria-label="Close dialog" title="ignored">X</button>
		<span id="caption">Search the catalog</span>
		<input id="b" aria-labelledby="caption">
		<label for="c">Email address</label>
		<input id="c" type="email">
		<button id="d" title="Settings">⚙</button>
		<button id="e">Plain</button>
	</body></html>`)

	tests := []struct {
		name     string
		selector string
		want     string
	}{
		{"aria-label wins over title", "#a", "Close dialog"},
		{"aria-labelledby reference", "#b", "Search the catalog"},
		{"label[for] reference", "#c", "Email address"},
		{"title fallback", "#d", "Settings"},
		{"no label", "#e", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := queryOne(t, snap, tt.selector).Label(); got != tt.want {
				t.Errorf("Expected label %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDisabled(t *testing.T) {
	snap := mustParse(t, `<html><body>
		<button id="a" disabled>Save</button>
		<button id="b" aria-disabled="true">Save</button>
		<button id="c" aria-disabled="false">Save</button>
	</body></html>`)

	if !queryOne(t, snap, "#a").Disabled() {
		t.Error("disabled attribute should report Disabled")
	}
	if !queryOne(t, snap, "#b").Disabled() {
		t.Error("aria-disabled=true should report Disabled")
	}
	if queryOne(t, snap, "#c").Disabled() {
		t.Error("aria-disabled=false should not report Disabled")
	}
}

func TestHidden(t *testing.T) {
	snap := mustParse(t, `<html><body>
		<button id="a" hidden>A</button>
		<button id="b" aria-hidden="true">B</button>
		<button id="c" style="display: none">C</button>
		<button id="d" style="visibility:hidden">D</button>
		<div style="display:none"><button id="e">E</button></div>
		<input id="f" type="hidden" value="token">
		<button id="g">G</button>
	</body></html>`)

	tests := []struct {
		selector string
		hidden   bool
	}{
		{"#a", true},
		{"#b", true},
		{"#c", true},
		{"#d", true},
		{"#e", true}, // hidden by ancestor
		{"#f", true},
		{"#g", false},
	}
	for _, tt := range tests {
		if got := queryOne(t, snap, tt.selector).Hidden(); got != tt.hidden {
			t.Errorf("%s: expected Hidden=%v, got %v", tt.selector, tt.hidden, got)
		}
	}
}

func TestBox(t *testing.T) {
	snap := mustParse(t, `<html><body>
		<button id="a" style="left:10px;top:20px;width:80px;height:30px">A</button>
		<button id="b">B</button>
		<button id="c" hidden>C</button>
	</body></html>`)

	a := queryOne(t, snap, "#a").Box()
	if a.X != 10 || a.Y != 20 || a.W != 80 || a.H != 30 {
		t.Errorf("Unexpected box for #a: %+v", a)
	}

	b := queryOne(t, snap, "#b").Box()
	if b.Zero() {
		t.Errorf("Visible element without geometry should get a nominal box, got %+v", b)
	}
	if b.W != defaultBoxWidth || b.H != defaultBoxHeight {
		t.Errorf("Expected nominal %dx%d box, got %+v", defaultBoxWidth, defaultBoxHeight, b)
	}

	if got := queryOne(t, snap, "#c").Box(); !got.Zero() {
		t.Errorf("Hidden element should have a zero box, got %+v", got)
	}
}

func TestSetValueDispatchesEvents(t *testing.T) {
	snap := mustParse(t, `<html><body><input id="email" type="email"></body></html>`)
	field := queryOne(t, snap, "#email")

	if err := field.SetValue("user@example.com"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if got := field.Value(); got != "user@example.com" {
		t.Errorf("Expected value written, got %q", got)
	}

	events := snap.Events()
	if len(events) != 3 {
		t.Fatalf("Expected focus, input, change events, got %d: %+v", len(events), events)
	}
	for i, want := range []string{"focus", "input", "change"} {
		if events[i].Type != want {
			t.Errorf("Event %d: expected %q, got %q", i, want, events[i].Type)
		}
	}
}

func TestTextSkipsHiddenChildren(t *testing.T) {
	snap := mustParse(t, `<html><body>
		<div id="card">Visible part <span style="display:none">hidden part</span></div>
	</body></html>`)
	got := queryOne(t, snap, "#card").Text()
	if got != "Visible part" {
		t.Errorf("Expected only visible text, got %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello   world  ", "hello world"},
		{"one\n\ttwo", "one two"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := collapseWhitespace(tt.in); got != tt.want {
			t.Errorf("collapseWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPathTo(t *testing.T) {
	snap := mustParse(t, `<html><body>
		<div><p>one</p><p>two</p></div>
		<div><button id="target">Go</button></div>
	</body></html>`)
	target := queryOne(t, snap, "#target")

	path, ok := snap.PathTo(target)
	if !ok {
		t.Fatal("Expected PathTo to succeed for an owned node")
	}
	if !strings.Contains(path, "div:nth-of-type(2)") || !strings.HasSuffix(path, "button:nth-of-type(1)") {
		t.Errorf("Unexpected path %q", path)
	}

	// Round trip: the generated path must select the same node.
	nodes, err := snap.Query(path)
	if err != nil {
		t.Fatalf("Query on generated path failed: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Attr("id") != "target" {
		t.Errorf("Path %q resolved to %d nodes", path, len(nodes))
	}
}

func TestPathToForeignNode(t *testing.T) {
	snap := mustParse(t, `<html><body><button>A</button></body></html>`)
	other := mustParse(t, `<html><body><button>B</button></body></html>`)
	node := queryOne(t, other, "button")
	if _, ok := snap.PathTo(node); ok {
		t.Error("Expected PathTo to refuse a node from another snapshot")
	}
}
