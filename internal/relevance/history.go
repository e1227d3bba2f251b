package relevance

import "sync"

// History tracks which snippet ids a user has already been shown, so the
// selector avoids repeating content turn after turn. It lives as long as
// the user's conversation and resets once most of the pool has been seen.
type History struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewHistory() *History {
	return &History{seen: make(map[string]struct{})}
}

// Seen reports whether the snippet id was already shown.
func (h *History) Seen(id string) bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.seen[id]
	return ok
}

// SeenCount returns how many of the given ids were already shown.
func (h *History) SeenCount(ids []string) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := h.seen[id]; ok {
			n++
		}
	}
	return n
}

// Mark records the snippet ids as shown.
func (h *History) Mark(ids ...string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		h.seen[id] = struct{}{}
	}
}

// Reset forgets everything; called once the eligible pool is exhausted.
func (h *History) Reset() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = make(map[string]struct{})
}
