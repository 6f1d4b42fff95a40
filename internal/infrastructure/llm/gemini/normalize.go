package gemini

import (
	"regexp"
	"strings"
)

var verboseOpenings = []string{
	"okay, let's",
	"alright, let's",
	"sure, let's",
	"let's solve",
	"i'll solve",
	"here's how to",
}

var headingRewrites = []struct{ from, to string }{
	{"**Final Answer:**", "Final Answer:"},
	{"**Final Answer**", "Final Answer:"},
	{"## Final Answer", "Final Answer:"},
	{"## Solution Steps", "Solution Steps:"},
	{"## Verification", "Verification:"},
}

var (
	boldMarkers    = regexp.MustCompile(`\*{2,}`)
	headerMarkers  = regexp.MustCompile(`#{2,}\s*`)
	excessBreaks   = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// Normalize rewrites a raw model response into the plain format the
// rest of the system expects: dollar-sign math delimiters, no markdown
// decoration, no chatty opening sentence. Applying it twice yields the
// same text.
func Normalize(response string) string {
	out := strings.TrimSpace(response)

	out = strings.ReplaceAll(out, `\(`, "$")
	out = strings.ReplaceAll(out, `\)`, "$")
	out = strings.ReplaceAll(out, `\[`, "$$")
	out = strings.ReplaceAll(out, `\]`, "$$")

	for _, rw := range headingRewrites {
		out = strings.ReplaceAll(out, rw.from, rw.to)
	}

	out = boldMarkers.ReplaceAllString(out, "")
	out = headerMarkers.ReplaceAllString(out, "")

	// Openings are stripped only after markup removal: markers wrapping
	// a chatty lead-in would otherwise hide it from the prefix match.
	out = stripVerboseOpenings(strings.TrimSpace(out))

	for excessBreaks.MatchString(out) {
		out = excessBreaks.ReplaceAllString(out, "\n\n")
	}

	return strings.TrimSpace(out)
}

// stripVerboseOpenings drops chatty lead-in sentences until the text no
// longer starts with one. The loop keeps the result stable when the
// model stacks several openers.
func stripVerboseOpenings(text string) string {
	for {
		lower := strings.ToLower(text)
		matched := false
		for _, opening := range verboseOpenings {
			if !strings.HasPrefix(lower, opening) {
				continue
			}
			cut := len(text)
			if idx := strings.Index(text, "."); idx != -1 && idx+1 < cut {
				cut = idx + 1
			}
			if idx := strings.Index(text, "\n"); idx != -1 && idx < cut {
				cut = idx
			}
			text = strings.TrimSpace(text[cut:])
			matched = true
			break
		}
		if !matched {
			return text
		}
	}
}
