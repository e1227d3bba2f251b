package catalog

import (
	"github.com/luneapp/companion/internal/profile"
)

// Snippet is a short pre-approved piece of guidance content. Snippets are
// immutable: the engine only reads them, curation happens out of band.
type Snippet struct {
	ID                   string                      `json:"id"`
	Phase                profile.Phase               `json:"phase"`
	PersonaApplicability []profile.Persona           `json:"persona_applicability,omitempty"`
	PreferenceTags       []string                    `json:"preference_tags,omitempty"`
	QualityScore         int                         `json:"quality_score,omitempty"`
	ContentByPersona     map[profile.Persona]string  `json:"content_by_persona,omitempty"`
	FallbackText         string                      `json:"fallback_text,omitempty"`
}

// AppliesTo reports whether the snippet targets the persona. An empty
// applicability list means the snippet applies to everyone.
func (s Snippet) AppliesTo(p profile.Persona) bool {
	if len(s.PersonaApplicability) == 0 {
		return true
	}
	for _, candidate := range s.PersonaApplicability {
		if candidate == p {
			return true
		}
	}
	return false
}

// ContentFor returns the persona-specific variant when one exists, otherwise
// the fallback text. The second return is false when neither is usable.
func (s Snippet) ContentFor(p profile.Persona) (string, bool) {
	if text, ok := s.ContentByPersona[p]; ok && text != "" {
		return text, true
	}
	if s.FallbackText != "" {
		return s.FallbackText, true
	}
	return "", false
}

// HasTag reports whether the snippet carries the preference tag.
func (s Snippet) HasTag(tag string) bool {
	for _, t := range s.PreferenceTags {
		if t == tag {
			return true
		}
	}
	return false
}
