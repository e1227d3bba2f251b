// Package relevance picks the few approved content snippets worth weaving
// into the prompt: filtered by phase, persona and preferences, scored
// against the message topics, with anti-repetition across turns.
package relevance

import (
	"sort"
	"strings"
	"sync"

	"github.com/luneapp/companion/internal/analysis"
	"github.com/luneapp/companion/internal/catalog"
	"github.com/luneapp/companion/internal/profile"
)

const (
	// DefaultMaxSnippets bounds how many snippets a single prompt carries.
	DefaultMaxSnippets = 3
	// DefaultMinQuality is the editorial approval threshold (1-5); a
	// snippet without a score passes.
	DefaultMinQuality = 4
	// DefaultMinPreferenceRating is the minimum user rating for a
	// preference tag to count as an interest.
	DefaultMinPreferenceRating = 4
	// DefaultResetRatio: once this share of the eligible pool has been
	// shown, the anti-repetition history starts over.
	DefaultResetRatio = 0.8
)

// Scoring weights.
const (
	topicOverlapWeight = 2
	affinityWeight     = 1
)

// Selected is a snippet that survived selection, with the content variant
// rendered for the active persona.
type Selected struct {
	Snippet catalog.Snippet
	Content string
	Score   int
}

// Options tunes the selector. Zero fields fall back to the defaults.
type Options struct {
	MaxSnippets         int
	MinQuality          int
	MinPreferenceRating int
	ResetRatio          float64
}

// Selector scores and ranks catalog snippets. Ranked candidates are
// memoized per (persona, phase, interests, topic): the inputs are
// low-cardinality, so the cache needs no eviction.
type Selector struct {
	catalog *catalog.Catalog
	opts    Options

	mu   sync.Mutex
	memo map[string][]Selected
}

func NewSelector(cat *catalog.Catalog, opts Options) *Selector {
	if opts.MaxSnippets <= 0 {
		opts.MaxSnippets = DefaultMaxSnippets
	}
	if opts.MinQuality <= 0 {
		opts.MinQuality = DefaultMinQuality
	}
	if opts.MinPreferenceRating <= 0 {
		opts.MinPreferenceRating = DefaultMinPreferenceRating
	}
	if opts.ResetRatio <= 0 || opts.ResetRatio > 1 {
		opts.ResetRatio = DefaultResetRatio
	}
	return &Selector{
		catalog: cat,
		opts:    opts,
		memo:    make(map[string][]Selected),
	}
}

// Select returns at most MaxSnippets snippets for the turn, best first.
// A nil analysis is replaced by a neutral default rather than failing, and
// an empty result is a valid outcome the assembler must cope with.
func (s *Selector) Select(
	persona profile.Persona,
	phase profile.Phase,
	prefs profile.Preferences,
	a *analysis.MessageAnalysis,
	used *History,
) []Selected {
	neutral := analysis.MessageAnalysis{}
	if a == nil {
		a = &neutral
	}

	ranked := s.rankedCandidates(persona, phase, prefs, *a)
	if len(ranked) == 0 {
		return nil
	}

	if used != nil && used.SeenCount(ids(ranked)) >= resetPoint(len(ranked), s.opts.ResetRatio) {
		// Enough of the pool has been shown: start the rotation over
		// instead of serving only the leftovers.
		used.Reset()
	}
	return s.pickFresh(ranked, used)
}

func (s *Selector) pickFresh(ranked []Selected, used *History) []Selected {
	out := make([]Selected, 0, s.opts.MaxSnippets)
	for _, candidate := range ranked {
		if len(out) >= s.opts.MaxSnippets {
			break
		}
		if used != nil && used.Seen(candidate.Snippet.ID) {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

// rankedCandidates filters and scores the phase pool, memoized.
func (s *Selector) rankedCandidates(
	persona profile.Persona,
	phase profile.Phase,
	prefs profile.Preferences,
	a analysis.MessageAnalysis,
) []Selected {
	key := memoKey(persona, phase, prefs, a.PrimaryTopic(), s.opts.MinPreferenceRating)

	s.mu.Lock()
	cached, ok := s.memo[key]
	s.mu.Unlock()
	if ok {
		return cached
	}

	var ranked []Selected
	for _, snippet := range s.catalog.ByPhase(phase) {
		if !snippet.AppliesTo(persona) {
			continue
		}
		if snippet.QualityScore > 0 && snippet.QualityScore < s.opts.MinQuality {
			continue
		}
		if !matchesPreferences(snippet, prefs, s.opts.MinPreferenceRating) {
			continue
		}
		content, renderable := snippet.ContentFor(persona)
		if !renderable {
			continue
		}
		ranked = append(ranked, Selected{
			Snippet: snippet,
			Content: content,
			Score:   score(snippet, a),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Snippet.ID < ranked[j].Snippet.ID
	})

	s.mu.Lock()
	s.memo[key] = ranked
	s.mu.Unlock()
	return ranked
}

// matchesPreferences keeps tagless snippets, and tagged snippets only when
// the user rated at least one of their tags as a real interest.
func matchesPreferences(snippet catalog.Snippet, prefs profile.Preferences, minRating int) bool {
	if len(snippet.PreferenceTags) == 0 {
		return true
	}
	for _, tag := range snippet.PreferenceTags {
		if prefs.RatedAtLeast(tag, minRating) {
			return true
		}
	}
	return false
}

func score(snippet catalog.Snippet, a analysis.MessageAnalysis) int {
	total := 0
	for _, topic := range a.Topics {
		if snippet.HasTag(topic) {
			total += topicOverlapWeight
		}
	}

	// Tone/question-type affinity: advice seekers lean toward actionable
	// routine content, distressed messages toward comfort content.
	for _, qt := range a.QuestionTypes {
		if qt == "conseil" && (snippet.HasTag("bien_etre") || snippet.HasTag("observation")) {
			total += affinityWeight
			break
		}
	}
	if a.EmotionIntensity >= 0.5 && (snippet.HasTag("bien_etre") || snippet.HasTag("douleur")) {
		total += affinityWeight
	}
	return total
}

func memoKey(persona profile.Persona, phase profile.Phase, prefs profile.Preferences, topic string, minRating int) string {
	interests := make([]string, 0, len(prefs))
	for tag, rating := range prefs {
		if rating >= minRating {
			interests = append(interests, tag)
		}
	}
	sort.Strings(interests)
	return string(persona) + "|" + string(phase) + "|" + strings.Join(interests, ",") + "|" + topic
}

func ids(ranked []Selected) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Snippet.ID
	}
	return out
}

func resetPoint(eligible int, ratio float64) int {
	point := int(float64(eligible) * ratio)
	if point < 1 {
		point = 1
	}
	return point
}
