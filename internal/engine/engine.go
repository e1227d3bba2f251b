// Package engine orchestrates one turn end to end: merge memory, analyze
// the message, select snippets, compute the style envelope, assemble the
// prompt, call the generation backend, enrich the reply, then persist the
// exchange. The only suspension point is the generation call; everything
// else is in-process and synchronous.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/luneapp/companion/internal/analysis"
	"github.com/luneapp/companion/internal/archive"
	"github.com/luneapp/companion/internal/convmem"
	"github.com/luneapp/companion/internal/generation"
	"github.com/luneapp/companion/internal/observability"
	"github.com/luneapp/companion/internal/postprocess"
	"github.com/luneapp/companion/internal/profile"
	"github.com/luneapp/companion/internal/prompt"
	"github.com/luneapp/companion/internal/relevance"
	"github.com/luneapp/companion/internal/reliability"
	"github.com/luneapp/companion/internal/style"
)

// Options wires the engine's collaborators. Metrics, Stages, Archive and
// Logger are optional.
type Options struct {
	Store     *convmem.Store
	Analyzer  *analysis.Analyzer
	Selector  *relevance.Selector
	Styler    *style.Calculator
	Assembler *prompt.Assembler
	Enricher  *postprocess.Enricher
	Generator generation.Generator

	Archive archive.Store
	Metrics *observability.Metrics
	Stages  *observability.StageWindow
	Logger  *log.Logger

	TokenBudget       int
	GenerationTimeout time.Duration
}

// Engine handles turns. One instance serves all users.
type Engine struct {
	opts Options

	usageMu sync.Mutex
	usage   map[string]*relevance.History
}

func New(opts Options) *Engine {
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = prompt.DefaultTokenBudget
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 20 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Engine{
		opts:  opts,
		usage: make(map[string]*relevance.History),
	}
}

// HandleTurn runs the full pipeline for one inbound message.
func (e *Engine) HandleTurn(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		e.countTurn("rejected")
		return Response{}, ErrEmptyMessage
	}

	turnStart := time.Now()
	user := req.Context.toProfile(req.UserID)

	merged := e.opts.Store.Merge(req.UserID, req.Context.History)
	prep := e.prepare(req, user, merged)

	genCtx, cancel := context.WithTimeout(ctx, e.opts.GenerationTimeout)
	defer cancel()

	genStart := time.Now()
	reply, err := e.opts.Generator.Generate(genCtx, generation.Request{
		UserID:      req.UserID,
		Instruction: prep.instruction,
		UserMessage: req.Message,
	})
	e.observeStage(observability.StageGeneration, genStart)
	if e.opts.Metrics != nil {
		e.opts.Metrics.ObserveGenerationLatency(time.Since(genStart))
	}
	if err != nil {
		// No reply exists: the cache must not record this exchange, and a
		// cancelled caller gets the error rather than a canned text.
		if ctx.Err() != nil {
			e.countTurn("cancelled")
			return Response{}, ctx.Err()
		}
		class := reliability.Classify(err)
		e.opts.Logger.Warn("generation failed", "user_id", req.UserID, "class", class, "err", err)
		if e.opts.Metrics != nil {
			e.opts.Metrics.ProviderErrors.WithLabelValues(string(class)).Inc()
		}
		e.countTurn("fallback")
		return Response{
			Text:     reliability.FallbackReply(class, user.Persona),
			Fallback: true,
		}, nil
	}

	postStart := time.Now()
	final := e.opts.Enricher.Enrich(reply.Text, prep.opportunities, user.Persona, user.Journey)
	e.observeStage(observability.StagePostprocess, postStart)

	now := time.Now().UTC()
	e.opts.Store.Append(req.UserID,
		convmem.Turn{Role: convmem.RoleUser, Text: req.Message, CreatedAt: now},
		convmem.Turn{Role: convmem.RoleAssistant, Text: final, CreatedAt: now},
		convmem.Hints{Persona: string(user.Persona), Phase: string(user.Phase)},
	)

	usedIDs := snippetIDs(prep.selected)
	e.historyFor(req.UserID).Mark(usedIDs...)
	e.archiveExchange(req.UserID, req.Message, final, now)

	if e.opts.Metrics != nil {
		e.opts.Metrics.ActiveConversations.Set(float64(e.opts.Store.ActiveCount()))
		for range prep.selected {
			e.opts.Metrics.SnippetsSelected.WithLabelValues(string(user.Phase)).Inc()
		}
	}
	e.countTurn("ok")
	e.observeStage(observability.StageTurnTotal, turnStart)

	var hint string
	if len(prep.opportunities) > 0 {
		hint = prep.opportunities[0].Target
	}
	return Response{
		Text:           final,
		UsedSnippetIDs: usedIDs,
		NavigationHint: hint,
	}, nil
}

// PreviewPrompt runs the pipeline up to assembly and returns the
// instruction text with its token estimate, for operational tuning.
func (e *Engine) PreviewPrompt(req Request) (PromptPreview, error) {
	if strings.TrimSpace(req.Message) == "" {
		return PromptPreview{}, ErrEmptyMessage
	}
	user := req.Context.toProfile(req.UserID)
	merged := e.opts.Store.Merge(req.UserID, req.Context.History)

	prep := e.prepare(req, user, merged)
	est := prompt.EstimateTokens(prep.instruction, e.opts.TokenBudget)
	return PromptPreview{
		Instruction:    prep.instruction,
		Tokens:         est.Tokens,
		OverBudget:     est.OverBudget,
		UsedSnippetIDs: snippetIDs(prep.selected),
	}, nil
}

// ClearMemory drops the user's conversation cache and snippet rotation.
func (e *Engine) ClearMemory(userID string) {
	e.opts.Store.Clear(userID)
	e.usageMu.Lock()
	delete(e.usage, userID)
	e.usageMu.Unlock()
	if e.opts.Metrics != nil {
		e.opts.Metrics.ActiveConversations.Set(float64(e.opts.Store.ActiveCount()))
	}
}

// prepared carries the outputs of the in-process stages up to assembly.
type prepared struct {
	selected      []relevance.Selected
	opportunities []prompt.NavigationOpportunity
	instruction   string
}

// prepare runs the in-process stages shared by HandleTurn and
// PreviewPrompt: analysis, selection, style, opportunity detection and
// prompt assembly.
func (e *Engine) prepare(req Request, user profile.UserProfile, merged convmem.MergeResult) prepared {
	stageStart := time.Now()
	a := e.opts.Analyzer.Analyze(req.Message)
	e.observeStage(observability.StageAnalysis, stageStart)

	stageStart = time.Now()
	selected := e.opts.Selector.Select(user.Persona, user.Phase, user.Preferences, &a, e.historyFor(req.UserID))
	e.observeStage(observability.StageSelection, stageStart)

	stageStart = time.Now()
	envelope := e.opts.Styler.Compute(req.Message, merged.Recent)
	e.observeStage(observability.StageStyle, stageStart)

	opportunities := detectOpportunities(a, selected)

	stageStart = time.Now()
	instruction := e.opts.Assembler.Render(prompt.RenderContext{
		Persona:    user.Persona,
		Phase:      user.Phase,
		FirstName:  user.FirstName,
		Style:      envelope,
		Snippets:   selected,
		Navigation: opportunities,
		Summary:    merged.Summary,
		Recent:     merged.Recent,
		Continuity: merged.Continuity,
	})
	e.observeStage(observability.StageAssembly, stageStart)

	if e.opts.Metrics != nil {
		est := prompt.EstimateTokens(instruction, e.opts.TokenBudget)
		e.opts.Metrics.PromptTokens.Observe(float64(est.Tokens))
		if est.OverBudget {
			e.opts.Logger.Warn("prompt over token budget",
				"user_id", req.UserID, "tokens", est.Tokens, "budget", est.Budget)
		}
	}

	return prepared{
		selected:      selected,
		opportunities: opportunities,
		instruction:   instruction,
	}
}

// detectOpportunities derives at most a couple of navigation nudges from
// the analysis. Small data-driven table, no persona logic here.
func detectOpportunities(a analysis.MessageAnalysis, selected []relevance.Selected) []prompt.NavigationOpportunity {
	var out []prompt.NavigationOpportunity

	if a.MentionsInsight {
		out = append(out, prompt.NavigationOpportunity{
			Target: "insights",
			Reason: "la personne s'intéresse à ses tendances",
		})
	}
	for _, topic := range a.Topics {
		switch topic {
		case "douleur", "sommeil", "humeur":
			ref := ""
			if len(selected) > 0 {
				ref = selected[0].Snippet.ID
			}
			out = append(out, prompt.NavigationOpportunity{
				Target:            "tracking",
				Reason:            "noter ce ressenti affinera les prédictions",
				RelatedSnippetRef: ref,
			})
		case "observation":
			out = append(out, prompt.NavigationOpportunity{
				Target: "calendar",
				Reason: "situer le ressenti dans la phase actuelle",
			})
		}
		if len(out) >= 2 {
			break
		}
	}
	return out
}

// archiveExchange writes both turns to the durable log without blocking
// the response path.
func (e *Engine) archiveExchange(userID, userText, assistantText string, at time.Time) {
	if e.opts.Archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, rec := range []archive.Record{
			{UserID: userID, Role: convmem.RoleUser, Content: userText, CreatedAt: at},
			{UserID: userID, Role: convmem.RoleAssistant, Content: assistantText, CreatedAt: at},
		} {
			if err := e.opts.Archive.SaveTurn(ctx, rec); err != nil {
				e.opts.Logger.Warn("archive write failed", "user_id", userID, "err", err)
				return
			}
		}
	}()
}

func (e *Engine) historyFor(userID string) *relevance.History {
	e.usageMu.Lock()
	defer e.usageMu.Unlock()
	h, ok := e.usage[userID]
	if !ok {
		h = relevance.NewHistory()
		e.usage[userID] = h
	}
	return h
}

func (e *Engine) countTurn(outcome string) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	}
}

func (e *Engine) observeStage(stage string, start time.Time) {
	if e.opts.Stages != nil {
		e.opts.Stages.Observe(stage, time.Since(start))
	}
}

func snippetIDs(selected []relevance.Selected) []string {
	if len(selected) == 0 {
		return nil
	}
	out := make([]string, len(selected))
	for i, s := range selected {
		out[i] = s.Snippet.ID
	}
	return out
}
