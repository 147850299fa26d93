package safety

import (
	"fmt"
	"strings"
)

// DefaultKeybind is the documented default emergency-stop combination.
const DefaultKeybind = "ctrl+shift+esc"

// KeyEvent is one key press observed at the document level, as delivered by
// the hosting context.
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

// Keybind is a parsed keyboard combination.
type Keybind struct {
	key   string
	ctrl  bool
	shift bool
	alt   bool
	meta  bool
}

// ParseKeybind parses a combination like "ctrl+shift+esc". The final token
// is the key; the rest are modifiers.
func ParseKeybind(spec string) (Keybind, error) {
	var kb Keybind
	parts := strings.Split(strings.ToLower(strings.TrimSpace(spec)), "+")
	if len(parts) == 0 || parts[0] == "" {
		return kb, fmt.Errorf("empty keybind")
	}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if i == len(parts)-1 {
			if part == "" {
				return kb, fmt.Errorf("keybind %q has no key", spec)
			}
			kb.key = part
			continue
		}
		switch part {
		case "ctrl", "control":
			kb.ctrl = true
		case "shift":
			kb.shift = true
		case "alt":
			kb.alt = true
		case "meta", "cmd":
			kb.meta = true
		default:
			return kb, fmt.Errorf("unknown modifier %q in keybind %q", part, spec)
		}
	}
	return kb, nil
}

// Matches reports whether the event is exactly this combination.
func (kb Keybind) Matches(ev KeyEvent) bool {
	if !strings.EqualFold(ev.Key, kb.key) {
		return false
	}
	return ev.Ctrl == kb.ctrl && ev.Shift == kb.shift && ev.Alt == kb.alt && ev.Meta == kb.meta
}

// String returns the canonical spelling of the combination.
func (kb Keybind) String() string {
	var parts []string
	if kb.ctrl {
		parts = append(parts, "ctrl")
	}
	if kb.shift {
		parts = append(parts, "shift")
	}
	if kb.alt {
		parts = append(parts, "alt")
	}
	if kb.meta {
		parts = append(parts, "meta")
	}
	parts = append(parts, kb.key)
	return strings.Join(parts, "+")
}

// KeyHandler routes document-level key events to a registry. The hosting
// context feeds it every key press; a match triggers a keyboard stop.
type KeyHandler struct {
	registry *Registry
	bind     Keybind
}

// NewKeyHandler builds a handler for the given combination spec, falling
// back to DefaultKeybind when spec is empty.
func NewKeyHandler(registry *Registry, spec string) (*KeyHandler, error) {
	if spec == "" {
		spec = DefaultKeybind
	}
	bind, err := ParseKeybind(spec)
	if err != nil {
		return nil, err
	}
	return &KeyHandler{registry: registry, bind: bind}, nil
}

// HandleKey triggers an emergency stop when the event matches the bound
// combination. It reports whether the event was consumed.
func (h *KeyHandler) HandleKey(ev KeyEvent) bool {
	if !h.bind.Matches(ev) {
		return false
	}
	h.registry.Stop(TriggerKeyboard)
	return true
}

// Keybind returns the active combination.
func (h *KeyHandler) Keybind() Keybind {
	return h.bind
}
