package archive

import "regexp"

var redactionPatterns = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	// Card numbers go first so long digit runs are not caught as phones.
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[MASQUÉ_CARTE]"},
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[MASQUÉ_EMAIL]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[MASQUÉ_TEL]"},
}

// redactPII masks common high-risk PII before a turn reaches durable
// storage. The in-memory conversation cache keeps the original text.
func redactPII(input string) (string, bool) {
	out := input
	changed := false
	for _, p := range redactionPatterns {
		next := p.pattern.ReplaceAllString(out, p.replacement)
		if next != out {
			changed = true
			out = next
		}
	}
	return out, changed
}
