// Package analysis derives transient per-message signals (topics, question
// types, emotional intensity) and scans turns against the configured
// vocabularies. Everything here is pure: same input, same output.
package analysis

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
)

// UrgencyThreshold is the emotion intensity above which a message is
// treated as urgent.
const UrgencyThreshold = 0.6

// MessageAnalysis is recomputed for every inbound message and never stored.
type MessageAnalysis struct {
	Topics           []string
	QuestionTypes    []string
	EmotionIntensity float64
	MentionsInsight  bool
}

// PrimaryTopic returns the first detected topic, or "general" when the
// message revealed none. It keys the selector's memoization cache.
func (m MessageAnalysis) PrimaryTopic() string {
	if len(m.Topics) == 0 {
		return "general"
	}
	return m.Topics[0]
}

// Urgent reports whether the message crossed the urgency threshold.
func (m MessageAnalysis) Urgent() bool {
	return m.EmotionIntensity >= UrgencyThreshold
}

// CategoryMatches holds the vocabulary hits found across a set of turns,
// one slice per summary category.
type CategoryMatches struct {
	Symptoms   []string
	Emotions   []string
	Solutions  []string
	LifeTopics []string
}

// Empty reports whether no category matched at all.
func (c CategoryMatches) Empty() bool {
	return len(c.Symptoms) == 0 && len(c.Emotions) == 0 &&
		len(c.Solutions) == 0 && len(c.LifeTopics) == 0
}

// Analyzer scans message text against the injected vocabularies.
type Analyzer struct {
	symptoms   *matcher
	emotions   *matcher
	solutions  *matcher
	lifeTopics *matcher
	urgency    *matcher
	insight    *matcher
	topics     *matcher

	explication *matcher
	conseil     *matcher
	information *matcher

	topicByKeyword map[string]string
	stop           *stopwords.Stopwords
}

// NewAnalyzer compiles one automaton per vocabulary.
func NewAnalyzer(v Vocabularies) (*Analyzer, error) {
	a := &Analyzer{
		topicByKeyword: make(map[string]string),
		stop:           stopwords.MustGet("fr"),
	}

	var err error
	if a.symptoms, err = newMatcher(v.Symptoms); err != nil {
		return nil, fmt.Errorf("compile symptom vocabulary: %w", err)
	}
	if a.emotions, err = newMatcher(v.Emotions); err != nil {
		return nil, fmt.Errorf("compile emotion vocabulary: %w", err)
	}
	if a.solutions, err = newMatcher(v.Solutions); err != nil {
		return nil, fmt.Errorf("compile solution vocabulary: %w", err)
	}
	if a.lifeTopics, err = newMatcher(v.LifeTopics); err != nil {
		return nil, fmt.Errorf("compile life-topic vocabulary: %w", err)
	}
	if a.urgency, err = newMatcher(v.Urgency); err != nil {
		return nil, fmt.Errorf("compile urgency vocabulary: %w", err)
	}
	if a.insight, err = newMatcher(v.InsightKeywords); err != nil {
		return nil, fmt.Errorf("compile insight vocabulary: %w", err)
	}

	var topicTerms []string
	topicNames := make([]string, 0, len(v.TopicKeywords))
	for topic := range v.TopicKeywords {
		topicNames = append(topicNames, topic)
	}
	// Deterministic keyword->topic resolution when lists share a keyword.
	sort.Strings(topicNames)
	for _, topic := range topicNames {
		for _, kw := range v.TopicKeywords[topic] {
			canon := Canonicalize(kw)
			if canon == "" {
				continue
			}
			if _, taken := a.topicByKeyword[canon]; !taken {
				a.topicByKeyword[canon] = topic
				topicTerms = append(topicTerms, canon)
			}
		}
	}
	if a.topics, err = newMatcher(topicTerms); err != nil {
		return nil, fmt.Errorf("compile topic vocabulary: %w", err)
	}

	if a.explication, err = newMatcher([]string{
		"pourquoi", "comment", "explique", "expliquer", "c est quoi", "ca veut dire quoi",
	}); err != nil {
		return nil, err
	}
	if a.conseil, err = newMatcher([]string{
		"que faire", "conseil", "conseils", "devrais je", "tu me conseilles", "une astuce",
	}); err != nil {
		return nil, err
	}
	if a.information, err = newMatcher([]string{
		"quand", "quel", "quelle", "combien", "est ce que", "a quel moment",
	}); err != nil {
		return nil, err
	}

	return a, nil
}

// Analyze computes the transient analysis for one user message.
func (a *Analyzer) Analyze(message string) MessageAnalysis {
	canon := Canonicalize(message)

	out := MessageAnalysis{
		EmotionIntensity: a.intensity(message, canon),
		MentionsInsight:  len(a.insight.scan(canon)) > 0,
	}

	seen := make(map[string]struct{})
	for _, kw := range a.topics.scan(canon) {
		topic := a.topicByKeyword[kw]
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}
		out.Topics = append(out.Topics, topic)
	}
	for _, tok := range a.salientTokens(canon, seen, 2) {
		out.Topics = append(out.Topics, tok)
	}

	if len(a.explication.scan(canon)) > 0 {
		out.QuestionTypes = append(out.QuestionTypes, "explication")
	}
	if len(a.conseil.scan(canon)) > 0 {
		out.QuestionTypes = append(out.QuestionTypes, "conseil")
	}
	if len(a.information.scan(canon)) > 0 || strings.Contains(message, "?") {
		out.QuestionTypes = append(out.QuestionTypes, "information")
	}

	return out
}

// ScanCategories unions the vocabulary hits for one piece of text, for the
// thematic summary over compressed turns.
func (a *Analyzer) ScanCategories(text string) CategoryMatches {
	canon := Canonicalize(text)
	return CategoryMatches{
		Symptoms:   a.symptoms.scan(canon),
		Emotions:   a.emotions.scan(canon),
		Solutions:  a.solutions.scan(canon),
		LifeTopics: a.lifeTopics.scan(canon),
	}
}

func (a *Analyzer) intensity(raw, canon string) float64 {
	score := 0.4 * float64(min(len(a.urgency.scan(canon)), 2))

	exclamations := strings.Count(raw, "!")
	switch {
	case exclamations >= 3:
		score += 0.3
	case exclamations >= 1:
		score += 0.15
	}

	emoji := 0
	for _, r := range raw {
		if unicode.In(r, unicode.So) {
			emoji++
		}
	}
	score += 0.1 * float64(min(emoji, 2))

	return min(score, 1.0)
}

// salientTokens extracts up to limit non-stopword tokens as secondary
// topics, so a message about an unlisted subject still carries a hint.
func (a *Analyzer) salientTokens(canon string, exclude map[string]struct{}, limit int) []string {
	var out []string
	for _, tok := range strings.Fields(canon) {
		if len(out) >= limit {
			break
		}
		if len(tok) < 4 {
			continue
		}
		if a.stop != nil && a.stop.Contains(tok) {
			continue
		}
		if _, dup := exclude[tok]; dup {
			continue
		}
		if _, known := a.topicByKeyword[tok]; known {
			continue
		}
		exclude[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
