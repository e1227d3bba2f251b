// Package style derives the target response envelope by mirroring the
// user's own messaging style. Compute is pure and deterministic: it is
// recomputed on every turn and must never depend on hidden state.
package style

import (
	"strings"

	"github.com/luneapp/companion/internal/analysis"
	"github.com/luneapp/companion/internal/convmem"
)

// Envelope bounds the generated reply. MinWords <= MaxWords always.
type Envelope struct {
	MinWords       int    `json:"min_words"`
	MaxWords       int    `json:"max_words"`
	Descriptor     string `json:"descriptor"`
	OverrideReason string `json:"override_reason,omitempty"`
}

// Baseline envelopes keyed by the user's average historical message length.
var (
	envelopeConcise  = Envelope{MinWords: 20, MaxWords: 60, Descriptor: "bref et direct"}
	envelopeBalanced = Envelope{MinWords: 50, MaxWords: 120, Descriptor: "équilibré et chaleureux"}
	envelopeDetailed = Envelope{MinWords: 100, MaxWords: 200, Descriptor: "développé et nuancé"}
)

// Override envelopes. Urgency wins over everything; the others apply first
// match against the baseline.
var (
	envelopeUrgency = Envelope{
		MinWords: 60, MaxWords: 100,
		Descriptor:     "validant et rassurant",
		OverrideReason: "urgence détectée",
	}
	envelopeWelcome = Envelope{
		MinWords: 30, MaxWords: 70,
		Descriptor:     "accueillant et léger",
		OverrideReason: "première interaction",
	}
	envelopeExplanation = Envelope{
		MinWords: 120, MaxWords: 220,
		Descriptor:     "pédagogique et structuré",
		OverrideReason: "demande d'explication",
	}
	envelopeSymptom = Envelope{
		MinWords: 80, MaxWords: 160,
		Descriptor:     "complet et concret",
		OverrideReason: "symptôme mentionné",
	}
)

// Length classification thresholds, in words.
const (
	conciseBelow  = 10
	balancedBelow = 30
)

// Calculator computes envelopes from the message and merged history.
type Calculator struct {
	analyzer *analysis.Analyzer
}

func NewCalculator(analyzer *analysis.Analyzer) *Calculator {
	return &Calculator{analyzer: analyzer}
}

// Compute picks the envelope for this turn. history is the merged
// conversation history; only user turns feed the length baseline.
func (c *Calculator) Compute(message string, history []convmem.Turn) Envelope {
	a := c.analyzer.Analyze(message)

	if a.Urgent() {
		return envelopeUrgency
	}

	userTurns := 0
	totalWords := 0
	for _, t := range history {
		if t.Role != convmem.RoleUser {
			continue
		}
		userTurns++
		totalWords += wordCount(t.Text)
	}

	if userTurns == 0 {
		return envelopeWelcome
	}
	if hasQuestionType(a, "explication") {
		return envelopeExplanation
	}
	if hasTopic(a, "douleur") {
		return envelopeSymptom
	}

	switch avg := totalWords / userTurns; {
	case avg < conciseBelow:
		return envelopeConcise
	case avg < balancedBelow:
		return envelopeBalanced
	default:
		return envelopeDetailed
	}
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func hasQuestionType(a analysis.MessageAnalysis, qt string) bool {
	for _, t := range a.QuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

func hasTopic(a analysis.MessageAnalysis, topic string) bool {
	for _, t := range a.Topics {
		if t == topic {
			return true
		}
	}
	return false
}
