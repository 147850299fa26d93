package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/entrhq/waypoint/pkg/dom"
)

func newTestTraverser(t *testing.T, allow, deny []string) *Traverser {
	t.Helper()
	trav, err := NewTraverser(0, allow, deny, nil)
	if err != nil {
		t.Fatalf("NewTraverser failed: %v", err)
	}
	return trav
}

func TestResolveInRootScope(t *testing.T) {
	trav := newTestTraverser(t, nil, nil)
	sc := parseScope(t, `<html><body><button>Submit</button></body></html>`)

	res, err := trav.Resolve(Descriptor{Action: ActionClick, Text: "Submit"}, sc)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Strategy != "exact_button" || res.Confidence != 1.00 {
		t.Errorf("Unexpected resolution: %s (%.2f)", res.Strategy, res.Confidence)
	}
	if len(res.ScopePath) != 1 || res.ScopePath[0] != "root" {
		t.Errorf("Unexpected scope path %v", res.ScopePath)
	}
}

func TestResolveDescendsIntoShadow(t *testing.T) {
	trav := newTestTraverser(t, nil, nil)
	sc := parseScope(t, `<html><body>
		<div><template shadowrootmode="open"><button>Shadow Action</button></template></div>
	</body></html>`)

	res, err := trav.Resolve(Descriptor{Action: ActionClick, Text: "Shadow Action"}, sc)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Strategy != "exact_button" {
		t.Errorf("Expected exact_button, got %q", res.Strategy)
	}
	want := []string{"root", "root/shadow[0]"}
	if len(res.ScopePath) != 2 || res.ScopePath[0] != want[0] || res.ScopePath[1] != want[1] {
		t.Errorf("Expected scope path %v, got %v", want, res.ScopePath)
	}
}

func TestResolveDescendsIntoSrcdocFrame(t *testing.T) {
	trav := newTestTraverser(t, nil, nil)
	sc := parseScope(t, `<html><body>
		<iframe srcdoc="&lt;html&gt;&lt;body&gt;&lt;button&gt;Frame Action&lt;/button&gt;&lt;/body&gt;&lt;/html&gt;"></iframe>
	</body></html>`)

	res, err := trav.Resolve(Descriptor{Action: ActionClick, Text: "Frame Action"}, sc)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := res.Scope.ID(); got != "root/frame[0]" {
		t.Errorf("Expected resolution in frame scope, got %q", got)
	}
}

func TestResolveRootMatchWinsOverDescendants(t *testing.T) {
	trav := newTestTraverser(t, nil, nil)
	sc := parseScope(t, `<html><body>
		<div><template shadowrootmode="open"><button>Pay</button></template></div>
		<button>Pay</button>
	</body></html>`)

	res, err := trav.Resolve(Descriptor{Action: ActionClick, Text: "Pay"}, sc)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := res.Scope.ID(); got != "root" {
		t.Errorf("Breadth-first search must prefer the root scope, got %q", got)
	}
}

func TestResolveSkipsInaccessibleFrame(t *testing.T) {
	trav := newTestTraverser(t, nil, nil)
	sc := parseScope(t, `<html><body>
		<iframe src="https://third-party.example.org/widget"></iframe>
		<div><template shadowrootmode="open"><button>Reachable</button></template></div>
	</body></html>`, dom.WithURL("https://shop.example.com/"))

	res, err := trav.Resolve(Descriptor{Action: ActionClick, Text: "Reachable"}, sc)
	if err != nil {
		t.Fatalf("Cross-origin frame must be skipped, not fatal: %v", err)
	}
	if got := res.Scope.ID(); got != "root/shadow[0]" {
		t.Errorf("Expected resolution past the inaccessible frame, got %q", got)
	}
}

func TestResolveNotFoundListsAttempted(t *testing.T) {
	trav := newTestTraverser(t, nil, nil)
	sc := parseScope(t, `<html><body><p>empty</p></body></html>`)

	_, err := trav.Resolve(Descriptor{Action: ActionClick, Text: "missing"}, sc)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "attempted strategies:") || !strings.Contains(msg, "exact_button") {
		t.Errorf("Expected attempted-strategy diagnostics, got %q", msg)
	}
}

func TestResolveDisabledAbortsSearch(t *testing.T) {
	trav := newTestTraverser(t, nil, nil)
	// The disabled button is in the root scope; an enabled match exists in
	// the shadow scope, but "right element, wrong state" must win.
	sc := parseScope(t, `<html><body>
		<button disabled>Confirm</button>
		<div><template shadowrootmode="open"><button>Confirm</button></template></div>
	</body></html>`)

	_, err := trav.Resolve(Descriptor{Action: ActionClick, Text: "Confirm"}, sc)
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Expected ErrDisabled, got %v", err)
	}
}

func TestResolveConfidenceFloor(t *testing.T) {
	trav, err := NewTraverser(0.5, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewTraverser failed: %v", err)
	}
	sc := parseScope(t, `<html><body><div id="promo">banner</div></body></html>`)

	// The selector strategy's 0.30 sits below a 0.5 floor.
	if _, err := trav.Resolve(Descriptor{Action: ActionClick, Selector: "#promo"}, sc); !errors.Is(err, ErrNotFound) {
		t.Errorf("Match below the floor must not resolve, got %v", err)
	}
}

func TestFrameDenyPatterns(t *testing.T) {
	loader := func(absURL string) (*dom.Snapshot, error) {
		return dom.ParseString(`<html><body><button>Framed</button></body></html>`)
	}
	sc := parseScope(t, `<html><body>
		<iframe src="/ads/banner"></iframe>
	</body></html>`, dom.WithURL("https://shop.example.com/"), dom.WithFrameLoader(loader))

	denied := newTestTraverser(t, nil, []string{"*/ads/*"})
	if _, err := denied.Resolve(Descriptor{Action: ActionClick, Text: "Framed"}, sc); !errors.Is(err, ErrNotFound) {
		t.Errorf("Denied frame must be skipped, got %v", err)
	}

	open := newTestTraverser(t, nil, nil)
	if _, err := open.Resolve(Descriptor{Action: ActionClick, Text: "Framed"}, sc); err != nil {
		t.Errorf("Unfiltered traverser should descend, got %v", err)
	}
}

func TestFrameAllowPatterns(t *testing.T) {
	loader := func(absURL string) (*dom.Snapshot, error) {
		return dom.ParseString(`<html><body><button>Framed</button></body></html>`)
	}
	sc := parseScope(t, `<html><body>
		<iframe src="/widgets/cart"></iframe>
	</body></html>`, dom.WithURL("https://shop.example.com/"), dom.WithFrameLoader(loader))

	allowed := newTestTraverser(t, []string{"*shop.example.com/widgets/*"}, nil)
	if _, err := allowed.Resolve(Descriptor{Action: ActionClick, Text: "Framed"}, sc); err != nil {
		t.Errorf("Allowed frame should be entered, got %v", err)
	}

	strict := newTestTraverser(t, []string{"*checkout*"}, nil)
	if _, err := strict.Resolve(Descriptor{Action: ActionClick, Text: "Framed"}, sc); !errors.Is(err, ErrNotFound) {
		t.Errorf("Frame outside the allow list must be skipped, got %v", err)
	}
}

func TestNewTraverserInvalidPattern(t *testing.T) {
	if _, err := NewTraverser(0, []string{"[unclosed"}, nil, nil); err == nil {
		t.Error("Expected error for malformed allow pattern")
	}
	if _, err := NewTraverser(0, nil, []string{"[unclosed"}, nil); err == nil {
		t.Error("Expected error for malformed deny pattern")
	}
}

func TestResolveAt(t *testing.T) {
	trav := newTestTraverser(t, nil, nil)
	sc := parseScope(t, `<html><body>
		<div><template shadowrootmode="open"><button>Deep Action</button></template></div>
	</body></html>`)

	first, err := trav.Resolve(Descriptor{Action: ActionClick, Text: "Deep Action"}, sc)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Replaying the recorded path lands in the same scope.
	again, err := trav.ResolveAt(Descriptor{Action: ActionClick, Text: "Deep Action"}, sc, first.ScopePath)
	if err != nil {
		t.Fatalf("ResolveAt failed: %v", err)
	}
	if again.Scope.ID() != first.Scope.ID() {
		t.Errorf("Expected same scope %q, got %q", first.Scope.ID(), again.Scope.ID())
	}

	// A stale path falls back to the full traversal.
	stale, err := trav.ResolveAt(Descriptor{Action: ActionClick, Text: "Deep Action"}, sc, []string{"root", "root/frame[7]"})
	if err != nil {
		t.Fatalf("ResolveAt fallback failed: %v", err)
	}
	if stale.Scope.ID() != "root/shadow[0]" {
		t.Errorf("Fallback should re-resolve, got %q", stale.Scope.ID())
	}
}
