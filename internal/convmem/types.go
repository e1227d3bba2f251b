package convmem

import (
	"strings"
	"time"
)

// Turn roles. Turns with any other role are dropped on merge.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single conversational exchange half. Immutable once stored.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (t Turn) valid() bool {
	if strings.TrimSpace(t.Text) == "" {
		return false
	}
	return t.Role == RoleUser || t.Role == RoleAssistant
}

// Hints are the persona/phase observed on the latest turn, kept alongside
// the record so a later merge can recap without the full client context.
type Hints struct {
	Persona string
	Phase   string
}

// Continuity describes how the current message relates to prior activity.
type Continuity struct {
	IsNewSession bool `json:"is_new_session"`
	GapMinutes   int  `json:"gap_minutes"`
	ShouldRecap  bool `json:"should_recap"`
}

// MergeResult is what a merge hands to the rest of the pipeline: the
// verbatim recent window, a lossy summary of everything older, and the
// session continuity assessment.
type MergeResult struct {
	Recent        []Turn
	Summary       string
	Continuity    Continuity
	HadPriorCache bool
}
