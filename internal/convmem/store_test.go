package convmem

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/luneapp/companion/internal/analysis"
)

func newTestStore(opts Options) (*Store, *time.Time) {
	s := NewStore(opts, nil)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }
	return s, &now
}

func turnAt(role, text string, at time.Time) Turn {
	return Turn{Role: role, Text: text, CreatedAt: at}
}

func TestMergeKeepsRecentWindowInOrder(t *testing.T) {
	s, now := newTestStore(Options{})
	base := now.Add(-10 * time.Minute)

	var turns []Turn
	for i := 0; i < 6; i++ {
		turns = append(turns, turnAt(RoleUser, fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	res := s.Merge("u1", turns)
	if len(res.Recent) != DefaultRecentWindow {
		t.Fatalf("recent window = %d, want %d", len(res.Recent), DefaultRecentWindow)
	}
	if res.Recent[0].Text != "message 2" || res.Recent[3].Text != "message 5" {
		t.Fatalf("unexpected recent window: %+v", res.Recent)
	}
	for i := 1; i < len(res.Recent); i++ {
		if res.Recent[i].CreatedAt.Before(res.Recent[i-1].CreatedAt) {
			t.Fatalf("recent turns out of order at %d", i)
		}
	}
}

func TestMergeDedupIsIdempotent(t *testing.T) {
	s, now := newTestStore(Options{})
	at := now.Add(-5 * time.Minute)

	turns := []Turn{
		turnAt(RoleUser, "Salut !", at),
		turnAt(RoleUser, "Salut !", at.Add(2*time.Second)),
		turnAt(RoleAssistant, "Bonjour, comment ça va ?", at.Add(3*time.Second)),
	}

	first := s.Merge("u1", turns)
	second := s.Merge("u1", turns)

	if len(first.Recent) != 2 {
		t.Fatalf("first merge recent = %d, want 2", len(first.Recent))
	}
	if len(second.Recent) != len(first.Recent) {
		t.Fatalf("second merge recent = %d, want %d", len(second.Recent), len(first.Recent))
	}
	if first.Recent[0].CreatedAt != at {
		t.Fatalf("dedup kept the later duplicate: %v", first.Recent[0].CreatedAt)
	}
}

func TestMergeDropsMalformedClientTurns(t *testing.T) {
	s, now := newTestStore(Options{})
	at := now.Add(-time.Minute)

	res := s.Merge("u1", []Turn{
		{Role: "narrator", Text: "invalid role", CreatedAt: at},
		{Role: RoleUser, Text: "", CreatedAt: at},
		{Role: RoleUser, Text: "   ", CreatedAt: at},
		{Role: RoleUser, Text: "valide", CreatedAt: at},
	})
	if len(res.Recent) != 1 || res.Recent[0].Text != "valide" {
		t.Fatalf("unexpected recent: %+v", res.Recent)
	}
}

func TestMergeTrimsToMaxTurns(t *testing.T) {
	s, now := newTestStore(Options{})
	base := now.Add(-time.Hour)

	var turns []Turn
	for i := 0; i < DefaultMaxTurns+3; i++ {
		turns = append(turns, turnAt(RoleUser, fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Minute)))
	}
	s.Merge("u1", turns)

	s.mu.RLock()
	rec := s.records["u1"]
	s.mu.RUnlock()
	if got := len(rec.turns); got != DefaultMaxTurns {
		t.Fatalf("stored turns = %d, want %d", got, DefaultMaxTurns)
	}
	if rec.turns[0].Text != "m3" {
		t.Fatalf("oldest surviving turn = %q, want m3", rec.turns[0].Text)
	}
}

func TestMergeSummarizesTurnsDroppedByTrim(t *testing.T) {
	analyzer, err := analysis.NewAnalyzer(analysis.DefaultVocabularies())
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	s := NewStore(Options{}, NewSummarizer(analyzer))
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }

	// Thirteen turns: the oldest carries the only symptom keyword and is
	// the one the stored bound drops.
	base := now.Add(-time.Hour)
	turns := []Turn{turnAt(RoleUser, "J'ai une migraine terrible", base)}
	for i := 1; i <= DefaultMaxTurns; i++ {
		turns = append(turns, turnAt(RoleUser, fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	res := s.Merge("u1", turns)
	if !strings.Contains(res.Summary, "migraine") {
		t.Fatalf("summary lost the dropped turn's theme: %q", res.Summary)
	}

	s.mu.RLock()
	rec := s.records["u1"]
	s.mu.RUnlock()
	if got := len(rec.turns); got != DefaultMaxTurns {
		t.Fatalf("stored turns = %d, want %d", got, DefaultMaxTurns)
	}
	if rec.turns[0].Text != "message 1" {
		t.Fatalf("oldest surviving turn = %q, want message 1", rec.turns[0].Text)
	}
}

func TestMergeContinuityClassification(t *testing.T) {
	cases := []struct {
		name       string
		gap        time.Duration
		newSession bool
		recap      bool
	}{
		{"short gap", 2 * time.Minute, false, false},
		{"recap gap", 15 * time.Minute, false, true},
		{"new session", 45 * time.Minute, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, now := newTestStore(Options{})
			s.Merge("u1", []Turn{turnAt(RoleUser, "premier", now.Add(-time.Minute))})

			*now = now.Add(tc.gap)
			res := s.Merge("u1", nil)
			if res.Continuity.IsNewSession != tc.newSession {
				t.Fatalf("IsNewSession = %v, want %v", res.Continuity.IsNewSession, tc.newSession)
			}
			if res.Continuity.ShouldRecap != tc.recap {
				t.Fatalf("ShouldRecap = %v, want %v", res.Continuity.ShouldRecap, tc.recap)
			}
		})
	}
}

func TestMergeFirstContactIsNewSession(t *testing.T) {
	s, _ := newTestStore(Options{})
	res := s.Merge("u1", nil)
	if !res.Continuity.IsNewSession {
		t.Fatalf("first merge should be a new session")
	}
	if res.HadPriorCache {
		t.Fatalf("first merge should not report a prior cache")
	}
}

func TestMergeExpiredRecordColdStarts(t *testing.T) {
	s, now := newTestStore(Options{TTL: time.Hour})
	s.Merge("u1", []Turn{turnAt(RoleUser, "ancien message", now.Add(-time.Minute))})

	*now = now.Add(2 * time.Hour)
	res := s.Merge("u1", nil)
	if res.HadPriorCache {
		t.Fatalf("expired record should read as a cold start")
	}
	if !res.Continuity.IsNewSession {
		t.Fatalf("expired record should open a new session")
	}
	if len(res.Recent) != 0 {
		t.Fatalf("expired turns leaked into recent: %+v", res.Recent)
	}
}

func TestAppendTrimsAndRefreshesHints(t *testing.T) {
	s, now := newTestStore(Options{MaxTurns: 4, RecentWindow: 2})

	for i := 0; i < 4; i++ {
		s.Append("u1",
			turnAt(RoleUser, fmt.Sprintf("q%d", i), now.Add(time.Duration(i)*time.Minute)),
			turnAt(RoleAssistant, fmt.Sprintf("r%d", i), now.Add(time.Duration(i)*time.Minute)),
			Hints{Persona: "analyst", Phase: "luteal"},
		)
	}

	s.mu.RLock()
	rec := s.records["u1"]
	s.mu.RUnlock()
	if len(rec.turns) != 4 {
		t.Fatalf("stored turns = %d, want 4", len(rec.turns))
	}
	if rec.turns[0].Text != "q2" {
		t.Fatalf("trim kept %q first, want q2", rec.turns[0].Text)
	}
	if last := rec.turns[len(rec.turns)-1].Text; last != "r3" {
		t.Fatalf("trim kept %q last, want r3", last)
	}

	hints, ok := s.Hints("u1")
	if !ok || hints.Persona != "analyst" || hints.Phase != "luteal" {
		t.Fatalf("hints = %+v ok=%v", hints, ok)
	}
}

func TestAppendSkipsInvalidTurns(t *testing.T) {
	s, now := newTestStore(Options{})
	s.Append("u1",
		Turn{Role: "narrator", Text: "wrong role", CreatedAt: *now},
		turnAt(RoleAssistant, "réponse", *now),
		Hints{},
	)

	s.mu.RLock()
	rec := s.records["u1"]
	s.mu.RUnlock()
	if len(rec.turns) != 1 || rec.turns[0].Role != RoleAssistant {
		t.Fatalf("unexpected stored turns: %+v", rec.turns)
	}
}

func TestSweepEvictsIdleRecords(t *testing.T) {
	s, now := newTestStore(Options{TTL: time.Hour})
	s.Merge("idle", []Turn{turnAt(RoleUser, "vieux", now.Add(-time.Minute))})

	*now = now.Add(30 * time.Minute)
	s.Merge("fresh", []Turn{turnAt(RoleUser, "récent", now.Add(-time.Second))})

	*now = now.Add(45 * time.Minute)
	if evicted := s.Sweep(); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if s.ActiveCount() != 1 {
		t.Fatalf("active = %d, want 1", s.ActiveCount())
	}
	if _, ok := s.Hints("idle"); ok {
		t.Fatalf("idle record survived the sweep")
	}
}

func TestClearRemovesRecord(t *testing.T) {
	s, now := newTestStore(Options{})
	s.Merge("u1", []Turn{turnAt(RoleUser, "bonjour", now.Add(-time.Second))})
	s.Clear("u1")
	if s.ActiveCount() != 0 {
		t.Fatalf("active = %d, want 0", s.ActiveCount())
	}
}

func TestStartJanitorReportsEvictions(t *testing.T) {
	s, now := newTestStore(Options{TTL: time.Millisecond})
	s.Merge("u1", []Turn{turnAt(RoleUser, "bonjour", now.Add(-time.Second))})
	*now = now.Add(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evictedCh := make(chan int, 1)
	s.StartJanitor(ctx, 5*time.Millisecond, func(evicted int) {
		select {
		case evictedCh <- evicted:
		default:
		}
	})

	select {
	case n := <-evictedCh:
		if n != 1 {
			t.Fatalf("evicted = %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("janitor never swept")
	}
}
