package profile

import "strings"

// Persona identifies a user archetype driving tone and content selection.
type Persona string

const (
	PersonaExplorer   Persona = "explorer"
	PersonaAnalyst    Persona = "analyst"
	PersonaMinimalist Persona = "minimalist"
	PersonaHolistic   Persona = "holistic"
)

// ParsePersona maps free-form input to a known persona, defaulting to explorer.
func ParsePersona(s string) Persona {
	switch Persona(strings.ToLower(strings.TrimSpace(s))) {
	case PersonaAnalyst:
		return PersonaAnalyst
	case PersonaMinimalist:
		return PersonaMinimalist
	case PersonaHolistic:
		return PersonaHolistic
	default:
		return PersonaExplorer
	}
}

// Phase is the active stage of the user's tracked cycle.
type Phase string

const (
	PhaseMenstrual  Phase = "menstrual"
	PhaseFollicular Phase = "follicular"
	PhaseOvulatory  Phase = "ovulatory"
	PhaseLuteal     Phase = "luteal"
	PhaseGeneral    Phase = "general"
)

// ParsePhase maps free-form input to a known phase, defaulting to general.
func ParsePhase(s string) Phase {
	switch Phase(strings.ToLower(strings.TrimSpace(s))) {
	case PhaseMenstrual:
		return PhaseMenstrual
	case PhaseFollicular:
		return PhaseFollicular
	case PhaseOvulatory:
		return PhaseOvulatory
	case PhaseLuteal:
		return PhaseLuteal
	default:
		return PhaseGeneral
	}
}

// Journey is the user's stated motivational journey, used for closing lines.
type Journey string

const (
	JourneySymptomRelief  Journey = "symptom_relief"
	JourneyCycleAwareness Journey = "cycle_awareness"
	JourneyConception     Journey = "conception"
	JourneyDefault        Journey = "default"
)

func ParseJourney(s string) Journey {
	switch Journey(strings.ToLower(strings.TrimSpace(s))) {
	case JourneySymptomRelief:
		return JourneySymptomRelief
	case JourneyCycleAwareness:
		return JourneyCycleAwareness
	case JourneyConception:
		return JourneyConception
	default:
		return JourneyDefault
	}
}

// Preferences maps a preference tag to the user's 1-5 rating.
type Preferences map[string]int

// RatedAtLeast reports whether the tag carries a rating >= min.
func (p Preferences) RatedAtLeast(tag string, min int) bool {
	if p == nil {
		return false
	}
	return p[tag] >= min
}

// UserProfile is the read-only view of the user the engine personalizes for.
// It is supplied by the caller on every turn; the engine never writes it.
type UserProfile struct {
	UserID      string
	FirstName   string
	Persona     Persona
	Phase       Phase
	Journey     Journey
	Tone        string
	Preferences Preferences
}
