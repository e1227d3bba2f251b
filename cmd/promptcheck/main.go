// promptcheck assembles the prompt for a single message offline and prints
// it with its token estimate. Useful for tuning the catalog and the
// persona/phase framing without running the service.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/luneapp/companion/internal/analysis"
	"github.com/luneapp/companion/internal/catalog"
	"github.com/luneapp/companion/internal/profile"
	"github.com/luneapp/companion/internal/prompt"
	"github.com/luneapp/companion/internal/relevance"
	"github.com/luneapp/companion/internal/style"
)

type options struct {
	message       string
	persona       string
	phase         string
	firstName     string
	assistantName string
	catalogPath   string
	budget        int
	showSnippets  bool
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "promptcheck: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "promptcheck: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	flag.StringVar(&cfg.message, "message", "", "user message to assemble a prompt for (required)")
	flag.StringVar(&cfg.persona, "persona", "explorer", "persona: explorer|analyst|minimalist|holistic")
	flag.StringVar(&cfg.phase, "phase", "general", "cycle phase: menstrual|follicular|ovulatory|luteal|general")
	flag.StringVar(&cfg.firstName, "name", "", "optional first name for personalization")
	flag.StringVar(&cfg.assistantName, "assistant", "Luna", "assistant name used in the role framing")
	flag.StringVar(&cfg.catalogPath, "catalog", "", "optional catalog JSON path (default: embedded)")
	flag.IntVar(&cfg.budget, "budget", prompt.DefaultTokenBudget, "token budget for the estimate")
	flag.BoolVar(&cfg.showSnippets, "show-snippets", false, "print the selected snippet ids")
	flag.Parse()

	if strings.TrimSpace(cfg.message) == "" {
		return options{}, fmt.Errorf("message is required")
	}
	if cfg.budget <= 0 {
		return options{}, fmt.Errorf("budget must be > 0")
	}
	return cfg, nil
}

func run(cfg options) error {
	cat, err := catalog.Load(cfg.catalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	analyzer, err := analysis.NewAnalyzer(analysis.DefaultVocabularies())
	if err != nil {
		return fmt.Errorf("init analyzer: %w", err)
	}

	persona := profile.ParsePersona(cfg.persona)
	phase := profile.ParsePhase(cfg.phase)

	a := analyzer.Analyze(cfg.message)
	selected := relevance.NewSelector(cat, relevance.Options{}).
		Select(persona, phase, nil, &a, nil)
	envelope := style.NewCalculator(analyzer).Compute(cfg.message, nil)

	instruction := prompt.NewAssembler(cfg.assistantName).Render(prompt.RenderContext{
		Persona:   persona,
		Phase:     phase,
		FirstName: cfg.firstName,
		Style:     envelope,
		Snippets:  selected,
	})
	est := prompt.EstimateTokens(instruction, cfg.budget)

	fmt.Println(instruction)
	fmt.Println("---")
	fmt.Printf("tokens=%d budget=%d over_budget=%v\n", est.Tokens, est.Budget, est.OverBudget)
	if cfg.showSnippets {
		ids := make([]string, 0, len(selected))
		for _, s := range selected {
			ids = append(ids, s.Snippet.ID)
		}
		fmt.Printf("snippets=%s\n", strings.Join(ids, ","))
	}
	return nil
}
