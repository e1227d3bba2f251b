// Package prompt renders the personalization context into the single
// instruction text consumed by the generation backend. Rendering is
// deterministic (fixed inputs produce byte-identical output) and every
// optional block disappears cleanly when its backing data is empty.
package prompt

import (
	"fmt"
	"strings"

	"github.com/luneapp/companion/internal/convmem"
	"github.com/luneapp/companion/internal/profile"
	"github.com/luneapp/companion/internal/relevance"
	"github.com/luneapp/companion/internal/style"
)

// NavigationOpportunity suggests an app screen worth nudging the user
// toward this turn. At most a few exist per turn; only the top one is
// rendered into the prompt.
type NavigationOpportunity struct {
	Target            string `json:"target"`
	Reason            string `json:"reason"`
	RelatedSnippetRef string `json:"related_snippet_ref,omitempty"`
}

// RenderContext carries everything one prompt needs.
type RenderContext struct {
	Persona    profile.Persona
	Phase      profile.Phase
	FirstName  string
	Style      style.Envelope
	Snippets   []relevance.Selected
	Navigation []NavigationOpportunity

	// Memory block inputs, straight from the merge result.
	Summary    string
	Recent     []convmem.Turn
	Continuity convmem.Continuity
}

type phaseTraits struct {
	tone  string
	focus string
	avoid string
}

// Per-phase behavior for the context block. Data, not branching.
var phaseBehavior = map[profile.Phase]phaseTraits{
	profile.PhaseMenstrual: {
		tone:  "doux et réconfortant",
		focus: "soulagement, repos, écoute du corps",
		avoid: "injonctions à la performance, minimiser la douleur",
	},
	profile.PhaseFollicular: {
		tone:  "dynamique et encourageant",
		focus: "énergie montante, projets, mouvement",
		avoid: "dramatiser, ton médical froid",
	},
	profile.PhaseOvulatory: {
		tone:  "positif et informatif",
		focus: "signes d'ovulation, vitalité, lien social",
		avoid: "sur-interpréter les symptômes isolés",
	},
	profile.PhaseLuteal: {
		tone:  "apaisant et patient",
		focus: "sommeil, gestion du stress, anticipation des règles",
		avoid: "culpabiliser, relativiser l'irritabilité",
	},
	profile.PhaseGeneral: {
		tone:  "bienveillant et naturel",
		focus: "accompagnement global du cycle",
		avoid: "jargon médical, réponses génériques",
	},
}

var personaFraming = map[profile.Persona]string{
	profile.PersonaExplorer:   "avec curiosité et pédagogie, sans jargon",
	profile.PersonaAnalyst:    "avec précision, en citant les mécanismes quand c'est utile",
	profile.PersonaMinimalist: "avec concision, en allant droit à l'essentiel",
	profile.PersonaHolistic:   "avec douceur, en reliant corps et ressenti",
}

// Assembler renders instruction texts.
type Assembler struct {
	assistantName string
}

func NewAssembler(assistantName string) *Assembler {
	if assistantName == "" {
		assistantName = "Luna"
	}
	return &Assembler{assistantName: assistantName}
}

// Render produces the full instruction text, blocks in fixed order: role
// framing, context, memory, snippets, rules, navigation nudge.
func (a *Assembler) Render(ctx RenderContext) string {
	traits, ok := phaseBehavior[ctx.Phase]
	if !ok {
		traits = phaseBehavior[profile.PhaseGeneral]
	}
	framing, ok := personaFraming[ctx.Persona]
	if !ok {
		framing = personaFraming[profile.PersonaExplorer]
	}
	firstName := strings.TrimSpace(ctx.FirstName)
	if firstName == "" {
		firstName = "l'utilisatrice"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Tu es %s, la compagne de l'application Lune. Tu réponds %s.\n", a.assistantName, framing)

	b.WriteString("\n## Contexte\n")
	fmt.Fprintf(&b, "- Profil : %s\n", ctx.Persona)
	fmt.Fprintf(&b, "- Phase du cycle : %s — ton : %s ; focus : %s ; à éviter : %s\n",
		ctx.Phase, traits.tone, traits.focus, traits.avoid)
	fmt.Fprintf(&b, "- Prénom : %s\n", firstName)
	fmt.Fprintf(&b, "- Style attendu : %s\n", ctx.Style.Descriptor)
	if ctx.Continuity.ShouldRecap {
		fmt.Fprintf(&b, "- Reprise : la conversation reprend après %d min de pause, fais un bref rappel du fil\n",
			ctx.Continuity.GapMinutes)
	}

	if ctx.Summary != "" || len(ctx.Recent) > 0 {
		b.WriteString("\n## Mémoire de conversation\n")
		if ctx.Summary != "" {
			b.WriteString(ctx.Summary + "\n")
		}
		for _, t := range ctx.Recent {
			fmt.Fprintf(&b, "- %s : %s\n", t.Role, t.Text)
		}
	}

	if len(ctx.Snippets) > 0 {
		b.WriteString("\n## Contenus approuvés\n")
		for _, s := range ctx.Snippets {
			fmt.Fprintf(&b, "- %s\n", s.Content)
		}
	}

	b.WriteString("\n## Règles de réponse\n")
	fmt.Fprintf(&b, "- Longueur cible : entre %d et %d mots.\n", ctx.Style.MinWords, ctx.Style.MaxWords)
	fmt.Fprintf(&b, "- Style : %s.\n", ctx.Style.Descriptor)
	if len(ctx.Snippets) > 0 {
		b.WriteString("- Intègre naturellement l'un des contenus approuvés, sans le citer mot à mot.\n")
	}
	b.WriteString("- Termine par une question ouverte et bienveillante.\n")

	if len(ctx.Navigation) > 0 {
		top := ctx.Navigation[0]
		fmt.Fprintf(&b, "\nSuggestion de navigation : l'écran \"%s\" serait utile (%s).\n", top.Target, top.Reason)
	}

	return b.String()
}
