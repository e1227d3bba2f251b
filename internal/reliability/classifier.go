// Package reliability classifies generation backend failures and maps them
// to persona-appropriate canned replies. The pipeline is never re-run with
// partial data: a classified failure ends the turn with a fallback text.
package reliability

import (
	"context"
	"errors"
	"net"

	"github.com/luneapp/companion/internal/generation"
	"github.com/luneapp/companion/internal/profile"
)

// FailureClass buckets upstream generation failures.
type FailureClass string

const (
	ClassRateLimited   FailureClass = "rate_limited"
	ClassQuotaExceeded FailureClass = "quota_exceeded"
	ClassTimeout       FailureClass = "timeout"
	ClassUnavailable   FailureClass = "unavailable"
	ClassUnknown       FailureClass = "unknown"
)

// Classify maps a generation error to its failure class.
func Classify(err error) FailureClass {
	if err == nil {
		return ClassUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}

	var statusErr *generation.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case 429:
			return ClassRateLimited
		case 402, 403:
			return ClassQuotaExceeded
		case 500, 502, 503, 504:
			return ClassUnavailable
		}
	}
	return ClassUnknown
}

// Fallback replies shown when generation fails, by class then persona.
// These are deliberately generic: no prompt context survives a failure.
var fallbackReplies = map[FailureClass]map[profile.Persona]string{
	ClassTimeout: {
		profile.PersonaMinimalist: "Petit souci de connexion. Redis-le-moi ?",
	},
	ClassRateLimited: {
		profile.PersonaMinimalist: "Trop de messages d'un coup, réessaie dans un instant.",
	},
}

var genericFallbacks = map[FailureClass]string{
	ClassRateLimited:   "Je reçois beaucoup de messages en ce moment, peux-tu réessayer dans une petite minute ?",
	ClassQuotaExceeded: "Je dois faire une courte pause, reviens me parler un peu plus tard.",
	ClassTimeout:       "Ma réponse met trop de temps à arriver, peux-tu me renvoyer ton message ?",
	ClassUnavailable:   "J'ai un petit souci technique de mon côté, réessaie dans quelques instants.",
	ClassUnknown:       "Je n'ai pas réussi à te répondre correctement, peux-tu reformuler ?",
}

// FallbackReply returns the canned user-facing text for the failure.
func FallbackReply(class FailureClass, persona profile.Persona) string {
	if byPersona, ok := fallbackReplies[class]; ok {
		if reply, ok := byPersona[persona]; ok {
			return reply
		}
	}
	if reply, ok := genericFallbacks[class]; ok {
		return reply
	}
	return genericFallbacks[ClassUnknown]
}
