package safety

// DefaultHistorySize caps the stop-event history. The history is a fixed
// ring: appending beyond the cap evicts the oldest entries.
const DefaultHistorySize = 200

// history is a fixed-size ring buffer of stop events.
type history struct {
	buf   []*Event
	next  int
	count int
}

func newHistory(size int) *history {
	return &history{buf: make([]*Event, size)}
}

func (h *history) append(ev *Event) {
	h.buf[h.next] = ev
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// last returns the most recently appended event, or nil.
func (h *history) last() *Event {
	if h.count == 0 {
		return nil
	}
	idx := (h.next - 1 + len(h.buf)) % len(h.buf)
	return h.buf[idx]
}

// all returns the retained events, oldest first.
func (h *history) all() []*Event {
	out := make([]*Event, 0, h.count)
	start := h.next - h.count
	if start < 0 {
		start += len(h.buf)
	}
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(start+i)%len(h.buf)])
	}
	return out
}
