package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/luneapp/companion/internal/profile"
)

//go:embed data/snippets.json
var embeddedSnippets []byte

// Catalog holds the approved content snippets, indexed by cycle phase.
// It is built once at startup and read-only afterwards.
type Catalog struct {
	byPhase map[profile.Phase][]Snippet
	total   int
}

// Load reads snippets from path, or from the embedded default catalog when
// path is empty.
func Load(path string) (*Catalog, error) {
	raw := embeddedSnippets
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		raw = data
	}
	return parse(raw)
}

func parse(raw []byte) (*Catalog, error) {
	var snippets []Snippet
	if err := json.Unmarshal(raw, &snippets); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{byPhase: make(map[profile.Phase][]Snippet)}
	for _, s := range snippets {
		if s.ID == "" {
			continue
		}
		phase := profile.ParsePhase(string(s.Phase))
		s.Phase = phase
		c.byPhase[phase] = append(c.byPhase[phase], s)
		c.total++
	}
	return c, nil
}

// ByPhase returns the snippets approved for the phase. The general pool is
// appended so phase-agnostic content stays reachable from any phase.
func (c *Catalog) ByPhase(phase profile.Phase) []Snippet {
	out := make([]Snippet, 0, len(c.byPhase[phase])+len(c.byPhase[profile.PhaseGeneral]))
	out = append(out, c.byPhase[phase]...)
	if phase != profile.PhaseGeneral {
		out = append(out, c.byPhase[profile.PhaseGeneral]...)
	}
	return out
}

// Size returns the total number of loaded snippets.
func (c *Catalog) Size() int { return c.total }
