// Package convmem holds the per-user conversation cache: bounded recent
// turns, time-based eviction, deduplication, and lossy thematic compression
// of older turns. State here is intentionally ephemeral; it is rebuilt
// from client-supplied history after a restart.
package convmem

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an idle conversation survives before the
	// sweep removes it.
	DefaultTTL = 4 * time.Hour
	// DefaultSweepInterval is how often the janitor scans for idle records.
	DefaultSweepInterval = 30 * time.Minute
	// DefaultMaxTurns bounds how many turns a record retains.
	DefaultMaxTurns = 12
	// DefaultRecentWindow is how many trailing turns stay verbatim; older
	// ones are compressed into the thematic summary.
	DefaultRecentWindow = 4

	// newSessionGap and recapGap classify the silence since the last
	// activity. Both tuned empirically in production.
	newSessionGap = 30 * time.Minute
	recapGap      = 10 * time.Minute

	// dedupPrefix/dedupWindow define when two turns are the same message
	// seen twice (client resend overlapping the server cache).
	dedupPrefix = 50
	dedupWindow = 5 * time.Second
)

// Options configures a Store. Zero fields fall back to the defaults above.
type Options struct {
	TTL          time.Duration
	MaxTurns     int
	RecentWindow int
}

type record struct {
	mu           sync.Mutex
	turns        []Turn
	lastActiveAt time.Time
	hints        Hints
}

// Store is the keyed conversation cache. The map is guarded for
// lookup/insert; each record carries its own lock so users never block
// each other and the sweep interleaves safely with merges.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record

	ttl          time.Duration
	maxTurns     int
	recentWindow int
	summarizer   *Summarizer
	nowFunc      func() time.Time
}

// NewStore builds a Store. summarizer may be nil, in which case merges
// return no thematic summary.
func NewStore(opts Options, summarizer *Summarizer) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.RecentWindow <= 0 || opts.RecentWindow > opts.MaxTurns {
		opts.RecentWindow = DefaultRecentWindow
	}
	return &Store{
		records:      make(map[string]*record),
		ttl:          opts.TTL,
		maxTurns:     opts.MaxTurns,
		recentWindow: opts.RecentWindow,
		summarizer:   summarizer,
		nowFunc:      time.Now,
	}
}

// Merge combines the server-held turns with turns the client supplies (the
// client may hold turns the server cache has already expired), dedups, and
// splits the result into the verbatim recent window plus a thematic summary
// of the remainder. Malformed client turns are dropped, never fatal.
func (s *Store) Merge(userID string, clientTurns []Turn) (result MergeResult) {
	rec := s.getOrCreate(userID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	// A malformed record must never take the request down; drop it and
	// start over instead.
	defer func() {
		if r := recover(); r != nil {
			rec.turns = nil
			rec.lastActiveAt = s.nowFunc()
			result = MergeResult{Continuity: Continuity{IsNewSession: true}}
		}
	}()

	now := s.nowFunc()

	hadPrior := len(rec.turns) > 0
	if hadPrior && now.Sub(rec.lastActiveAt) > s.ttl {
		// Expired but not yet swept: treat as a cold start.
		rec.turns = nil
		rec.lastActiveAt = time.Time{}
		hadPrior = false
	}

	combined := make([]Turn, 0, len(rec.turns)+len(clientTurns))
	combined = append(combined, rec.turns...)
	for _, t := range clientTurns {
		if t.valid() {
			combined = append(combined, t)
		}
	}
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].CreatedAt.Before(combined[j].CreatedAt)
	})
	combined = dedupTurns(combined)

	continuity := assessContinuity(now, rec.lastActiveAt)

	split := len(combined) - s.recentWindow
	if split < 0 {
		split = 0
	}
	recent := make([]Turn, len(combined)-split)
	copy(recent, combined[split:])

	// The summary covers the full older remainder, including turns the
	// stored bound below is about to drop.
	var summary string
	if split > 0 && s.summarizer != nil {
		summary = s.summarizer.Summarize(combined[:split])
	}

	if len(combined) > s.maxTurns {
		combined = combined[len(combined)-s.maxTurns:]
	}
	rec.turns = combined
	rec.lastActiveAt = now

	return MergeResult{
		Recent:        recent,
		Summary:       summary,
		Continuity:    continuity,
		HadPriorCache: hadPrior,
	}
}

// Append stores the completed exchange and refreshes activity and hints.
// It must only be called once a reply actually exists: a request whose
// generation was cancelled never mutates the cache.
func (s *Store) Append(userID string, userTurn, assistantTurn Turn, hints Hints) {
	rec := s.getOrCreate(userID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	now := s.nowFunc()
	if userTurn.CreatedAt.IsZero() {
		userTurn.CreatedAt = now
	}
	if assistantTurn.CreatedAt.IsZero() {
		assistantTurn.CreatedAt = now
	}
	for _, t := range []Turn{userTurn, assistantTurn} {
		if t.valid() {
			rec.turns = append(rec.turns, t)
		}
	}
	if len(rec.turns) > s.maxTurns {
		rec.turns = rec.turns[len(rec.turns)-s.maxTurns:]
	}
	rec.lastActiveAt = now
	if hints.Persona != "" {
		rec.hints.Persona = hints.Persona
	}
	if hints.Phase != "" {
		rec.hints.Phase = hints.Phase
	}
}

// Clear removes the user's record entirely.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
}

// Sweep removes every record idle longer than the TTL and returns how many
// were evicted. This is the only reclamation mechanism; there is no
// per-record timer.
func (s *Store) Sweep() int {
	now := s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for userID, rec := range s.records {
		rec.mu.Lock()
		idle := now.Sub(rec.lastActiveAt)
		rec.mu.Unlock()
		if idle > s.ttl {
			delete(s.records, userID)
			evicted++
		}
	}
	return evicted
}

// StartJanitor runs Sweep on a fixed interval until ctx is cancelled.
// onSweep may be nil; it receives the eviction count of each pass.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration, onSweep func(evicted int)) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n := s.Sweep()
				if onSweep != nil {
					onSweep(n)
				}
			}
		}
	}()
}

// ActiveCount returns the number of cached conversations.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Hints returns the last stored persona/phase hints for the user.
func (s *Store) Hints(userID string) (Hints, bool) {
	s.mu.RLock()
	rec, ok := s.records[userID]
	s.mu.RUnlock()
	if !ok {
		return Hints{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.hints, true
}

func (s *Store) getOrCreate(userID string) *record {
	s.mu.RLock()
	rec, ok := s.records[userID]
	s.mu.RUnlock()
	if ok {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok = s.records[userID]; ok {
		return rec
	}
	rec = &record{}
	s.records[userID] = rec
	return rec
}

// dedupTurns drops turns that repeat an earlier one: same role, same text
// prefix, timestamps within the dedup window. Input must be sorted by
// CreatedAt so "keep the earliest" falls out of iteration order.
func dedupTurns(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, candidate := range turns {
		dup := false
		for i := len(out) - 1; i >= 0; i-- {
			prior := out[i]
			if candidate.CreatedAt.Sub(prior.CreatedAt) > dedupWindow {
				break
			}
			if prior.Role == candidate.Role && textPrefix(prior.Text) == textPrefix(candidate.Text) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, candidate)
		}
	}
	return out
}

func textPrefix(text string) string {
	runes := []rune(text)
	if len(runes) > dedupPrefix {
		runes = runes[:dedupPrefix]
	}
	return string(runes)
}

func assessContinuity(now, lastActiveAt time.Time) Continuity {
	if lastActiveAt.IsZero() {
		return Continuity{IsNewSession: true}
	}
	gap := now.Sub(lastActiveAt)
	minutes := int(gap.Minutes())
	switch {
	case gap > newSessionGap:
		return Continuity{IsNewSession: true, GapMinutes: minutes}
	case gap > recapGap:
		return Continuity{GapMinutes: minutes, ShouldRecap: true}
	default:
		return Continuity{GapMinutes: minutes}
	}
}
