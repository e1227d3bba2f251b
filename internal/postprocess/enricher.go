// Package postprocess enriches the generated reply with navigation hints
// and closing lines. Enrichment is purely additive string concatenation:
// the raw reply is never rewritten or truncated, and a missing table key
// falls back to a generic phrase rather than failing.
package postprocess

import (
	"strings"

	"github.com/luneapp/companion/internal/profile"
	"github.com/luneapp/companion/internal/prompt"
)

// Navigation suggestion sentences per persona and target screen.
var navPhrases = map[profile.Persona]map[string]string{
	profile.PersonaExplorer: {
		"insights": "Si tu es curieuse, l'écran Insights te montre ce que ton cycle raconte en ce moment.",
		"tracking": "Tu peux noter ça dans l'écran Suivi, c'est rapide et ça nourrit tes tendances.",
		"calendar": "Jette un œil au Calendrier pour voir où tu en es dans ton cycle.",
		"library":  "La Bibliothèque regorge d'articles courts si tu veux creuser le sujet.",
	},
	profile.PersonaAnalyst: {
		"insights": "L'écran Insights croise tes données récentes, tu y verras la tendance chiffrée.",
		"tracking": "Consigne-le dans le Suivi : plus la série est complète, plus les corrélations sont fiables.",
		"calendar": "Le Calendrier te situe précisément dans ta phase actuelle.",
		"library":  "La Bibliothèque contient les sources détaillées derrière ce point.",
	},
	profile.PersonaMinimalist: {
		"insights": "Un coup d'œil à Insights suffit pour voir la tendance.",
		"tracking": "Note-le dans Suivi, dix secondes suffisent.",
		"calendar": "Le Calendrier te dit où tu en es, en un regard.",
		"library":  "Un article court là-dessus t'attend dans la Bibliothèque.",
	},
	profile.PersonaHolistic: {
		"insights": "L'écran Insights peut t'aider à relier ce ressenti à ton cycle.",
		"tracking": "Prends un instant pour déposer ça dans le Suivi, comme un petit rituel.",
		"calendar": "Le Calendrier t'offre une vue douce de là où ton corps se trouve.",
		"library":  "La Bibliothèque propose de belles lectures pour accompagner ce moment.",
	},
}

var genericNavPhrase = "L'écran %TARGET% de l'application peut t'aider sur ce point."

// Farewell markers that signal the conversation is wrapping up, matched
// case-insensitively as substrings of the raw reply.
var farewellPhrases = []string{
	"bonne nuit", "bonne journée", "bonne soirée", "à demain",
	"à bientôt", "au revoir", "prends soin de toi", "bye",
}

type closingCategory string

const (
	closingCare          closingCategory = "care"
	closingScience       closingCategory = "science"
	closingEncouragement closingCategory = "encouragement"
)

// The user's motivational journey picks the closing register.
var journeyClosingCategory = map[profile.Journey]closingCategory{
	profile.JourneySymptomRelief:  closingCare,
	profile.JourneyCycleAwareness: closingScience,
	profile.JourneyConception:     closingEncouragement,
	profile.JourneyDefault:        closingEncouragement,
}

var closingLines = map[closingCategory]map[profile.Persona]string{
	closingCare: {
		profile.PersonaExplorer:   "Sois douce avec toi-même, ton corps fait de son mieux. 💛",
		profile.PersonaAnalyst:    "Repose-toi bien : la récupération fait partie des données qui comptent.",
		profile.PersonaMinimalist: "Repose-toi. Je suis là si besoin.",
		profile.PersonaHolistic:   "Accorde-toi la douceur que tu offrirais à une amie. 💛",
	},
	closingScience: {
		profile.PersonaExplorer:   "Chaque cycle t'apprend quelque chose de nouveau sur toi.",
		profile.PersonaAnalyst:    "Encore quelques cycles de données et tes tendances parleront d'elles-mêmes.",
		profile.PersonaMinimalist: "Continue à noter, le reste suivra.",
		profile.PersonaHolistic:   "Ton corps tient un journal fidèle, continue de l'écouter.",
	},
	closingEncouragement: {
		profile.PersonaExplorer:   "Tu avances bien, continue comme ça !",
		profile.PersonaAnalyst:    "Ta régularité paie : les progrès sont déjà mesurables.",
		profile.PersonaMinimalist: "Tu es sur la bonne voie.",
		profile.PersonaHolistic:   "Fais confiance à ton rythme, il est le bon.",
	},
}

var genericClosing = "Prends soin de toi, à très vite."

// Enricher appends contextual suggestions and closings to raw replies.
type Enricher struct{}

func NewEnricher() *Enricher { return &Enricher{} }

// Enrich appends at most one navigation sentence and one closing line.
func (e *Enricher) Enrich(
	raw string,
	opportunities []prompt.NavigationOpportunity,
	persona profile.Persona,
	journey profile.Journey,
) string {
	out := raw

	if len(opportunities) > 0 {
		top := opportunities[0]
		if !mentionsTarget(raw, top.Target) {
			out = appendSentence(out, navPhrase(persona, top.Target))
		}
	}

	if endsConversation(raw) {
		out = appendSentence(out, closingLine(persona, journey))
	}

	return out
}

func navPhrase(persona profile.Persona, target string) string {
	if byTarget, ok := navPhrases[persona]; ok {
		if phrase, ok := byTarget[target]; ok {
			return phrase
		}
	}
	return strings.ReplaceAll(genericNavPhrase, "%TARGET%", target)
}

func closingLine(persona profile.Persona, journey profile.Journey) string {
	category, ok := journeyClosingCategory[journey]
	if !ok {
		category = closingEncouragement
	}
	if byPersona, ok := closingLines[category]; ok {
		if line, ok := byPersona[persona]; ok {
			return line
		}
	}
	return genericClosing
}

func mentionsTarget(raw, target string) bool {
	return strings.Contains(strings.ToLower(raw), strings.ToLower(target))
}

func endsConversation(raw string) bool {
	lowered := strings.ToLower(raw)
	for _, phrase := range farewellPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func appendSentence(text, sentence string) string {
	if sentence == "" {
		return text
	}
	trimmed := strings.TrimRight(text, " \n")
	if trimmed == "" {
		return sentence
	}
	return trimmed + "\n\n" + sentence
}
