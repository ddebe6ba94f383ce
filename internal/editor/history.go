package editor

// history is a bounded stack of inverse events. When full, the oldest entry
// is dropped.
type history struct {
	entries  []Event
	capacity int
}

func newHistory(capacity int) *history {
	return &history{capacity: capacity}
}

func (h *history) push(ev Event) {
	h.entries = append(h.entries, ev)
	if over := len(h.entries) - h.capacity; over > 0 {
		n := copy(h.entries, h.entries[over:])
		clear(h.entries[n:])
		h.entries = h.entries[:n]
	}
}

func (h *history) pop() (Event, bool) {
	if len(h.entries) == 0 {
		return nil, false
	}
	last := len(h.entries) - 1
	ev := h.entries[last]
	h.entries[last] = nil
	h.entries = h.entries[:last]
	return ev, true
}

func (h *history) clear() {
	clear(h.entries)
	h.entries = h.entries[:0]
}

func (h *history) len() int { return len(h.entries) }
