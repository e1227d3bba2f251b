package engine

import (
	"errors"

	"github.com/luneapp/companion/internal/convmem"
	"github.com/luneapp/companion/internal/profile"
)

var ErrEmptyMessage = errors.New("message is empty")

// ClientContext is the per-turn read-only context the app supplies:
// persona, phase, preferences and any client-held history the server cache
// may have expired.
type ClientContext struct {
	Persona     string         `json:"persona,omitempty"`
	Phase       string         `json:"phase,omitempty"`
	Journey     string         `json:"journey,omitempty"`
	FirstName   string         `json:"first_name,omitempty"`
	Tone        string         `json:"tone,omitempty"`
	Preferences map[string]int `json:"preferences,omitempty"`
	History     []convmem.Turn `json:"history,omitempty"`
}

// Request is one inbound user message plus its context.
type Request struct {
	UserID  string        `json:"user_id"`
	Message string        `json:"message"`
	Context ClientContext `json:"context"`
}

// Response is the enriched reply returned to the app.
type Response struct {
	Text           string   `json:"text"`
	UsedSnippetIDs []string `json:"used_snippet_ids,omitempty"`
	NavigationHint string   `json:"navigation_hint,omitempty"`
	Fallback       bool     `json:"fallback,omitempty"`
}

// PromptPreview is the debug view of an assembled prompt, without calling
// the generation backend.
type PromptPreview struct {
	Instruction    string   `json:"instruction"`
	Tokens         int      `json:"tokens"`
	OverBudget     bool     `json:"over_budget"`
	UsedSnippetIDs []string `json:"used_snippet_ids,omitempty"`
}

func (c ClientContext) toProfile(userID string) profile.UserProfile {
	return profile.UserProfile{
		UserID:      userID,
		FirstName:   c.FirstName,
		Persona:     profile.ParsePersona(c.Persona),
		Phase:       profile.ParsePhase(c.Phase),
		Journey:     profile.ParseJourney(c.Journey),
		Tone:        c.Tone,
		Preferences: c.Preferences,
	}
}
