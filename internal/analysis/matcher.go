package analysis

import (
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"
)

// Canonicalize normalizes text for keyword matching: lowercase, common
// French diacritics folded, every non-alphanumeric rune collapsed to a
// single space. Patterns and scanned text must go through the same
// function or multiword entries never line up.
func Canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true
	for _, r := range strings.ToLower(s) {
		r = foldAccent(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if !lastWasSpace {
			out.WriteByte(' ')
			lastWasSpace = true
		}
	}

	return strings.TrimSpace(out.String())
}

func foldAccent(r rune) rune {
	switch r {
	case 'à', 'â', 'ä':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'î', 'ï':
		return 'i'
	case 'ô', 'ö':
		return 'o'
	case 'ù', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	case 'œ':
		return 'o'
	default:
		return r
	}
}

// matcher wraps a single Aho-Corasick automaton over a canonicalized
// vocabulary. One automaton serves a whole keyword list so scanning a turn
// stays O(len(text)) regardless of vocabulary size.
type matcher struct {
	ac       *ahocorasick.Automaton
	patterns []string
}

func newMatcher(terms []string) (*matcher, error) {
	patterns := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		c := Canonicalize(t)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		patterns = append(patterns, c)
	}
	if len(patterns) == 0 {
		return &matcher{}, nil
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	return &matcher{ac: ac, patterns: patterns}, nil
}

// scan returns the distinct vocabulary entries present in canonText as
// whole words, in first-occurrence order. canonText must already be
// canonicalized.
func (m *matcher) scan(canonText string) []string {
	if m == nil || m.ac == nil || canonText == "" {
		return nil
	}

	var found []string
	seen := make(map[string]struct{})
	for _, match := range m.ac.FindAllOverlapping([]byte(canonText)) {
		if !wordBoundary(canonText, match.Start, match.End) {
			continue
		}
		pattern := m.patterns[match.PatternID]
		if _, dup := seen[pattern]; dup {
			continue
		}
		seen[pattern] = struct{}{}
		found = append(found, pattern)
	}
	return found
}

func wordBoundary(text string, start, end int) bool {
	if start > 0 && text[start-1] != ' ' {
		return false
	}
	if end < len(text) && text[end] != ' ' {
		return false
	}
	return true
}
