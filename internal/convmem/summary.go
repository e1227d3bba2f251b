package convmem

import (
	"fmt"
	"strings"

	"github.com/luneapp/companion/internal/analysis"
)

// Summarizer compresses turns evicted from the verbatim window into a
// single bracketed sentence of keyword themes. The output is derived state:
// regenerated on every merge, never stored.
type Summarizer struct {
	analyzer *analysis.Analyzer
}

func NewSummarizer(analyzer *analysis.Analyzer) *Summarizer {
	return &Summarizer{analyzer: analyzer}
}

// Summarize unions vocabulary matches across the older turns and reports
// them per category, with the elapsed span between the first and last turn.
// Returns "" when nothing matched and the span is zero.
func (s *Summarizer) Summarize(older []Turn) string {
	if s == nil || s.analyzer == nil || len(older) == 0 {
		return ""
	}

	var union analysis.CategoryMatches
	for _, t := range older {
		matches := s.analyzer.ScanCategories(t.Text)
		union.Symptoms = mergeUnique(union.Symptoms, matches.Symptoms)
		union.Emotions = mergeUnique(union.Emotions, matches.Emotions)
		union.Solutions = mergeUnique(union.Solutions, matches.Solutions)
		union.LifeTopics = mergeUnique(union.LifeTopics, matches.LifeTopics)
	}

	minutes := int(older[len(older)-1].CreatedAt.Sub(older[0].CreatedAt).Minutes())
	if union.Empty() && minutes <= 0 {
		return ""
	}

	var parts []string
	if len(union.Symptoms) > 0 {
		parts = append(parts, "symptômes évoqués : "+strings.Join(union.Symptoms, ", "))
	}
	if len(union.Emotions) > 0 {
		parts = append(parts, "émotions : "+strings.Join(union.Emotions, ", "))
	}
	if len(union.Solutions) > 0 {
		parts = append(parts, "pistes abordées : "+strings.Join(union.Solutions, ", "))
	}
	if len(union.LifeTopics) > 0 {
		parts = append(parts, "contexte de vie : "+strings.Join(union.LifeTopics, ", "))
	}

	span := ""
	if minutes > 0 {
		span = fmt.Sprintf(" sur %d min", minutes)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("[Échanges précédents%s]", span)
	}
	return fmt.Sprintf("[Plus tôt dans la conversation%s — %s]", span, strings.Join(parts, " ; "))
}

func mergeUnique(dst, add []string) []string {
	for _, v := range add {
		dup := false
		for _, existing := range dst {
			if existing == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
