package prompt

import "unicode/utf8"

// DefaultTokenBudget is the operational ceiling for one instruction text.
const DefaultTokenBudget = 1500

// charsPerToken is the crude length heuristic: good enough for budget
// alarms, not for billing.
const charsPerToken = 4

// TokenEstimate is the debug companion to Render, used for operational
// tuning of the prompt size.
type TokenEstimate struct {
	Tokens     int  `json:"tokens"`
	Budget     int  `json:"budget"`
	OverBudget bool `json:"over_budget"`
}

// EstimateTokens approximates the token count of an instruction text
// against the given budget (<=0 means DefaultTokenBudget).
func EstimateTokens(text string, budget int) TokenEstimate {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	tokens := utf8.RuneCountInString(text) / charsPerToken
	return TokenEstimate{
		Tokens:     tokens,
		Budget:     budget,
		OverBudget: tokens > budget,
	}
}
