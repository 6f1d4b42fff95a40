package mcp

import "strings"

// topicScores maps question keywords to a base confidence. Ordered by
// how reliably web results answer that topic; the first match wins.
var topicScores = []struct {
	keywords []string
	score    float64
}{
	{[]string{"derivative", "integral", "calculus", "limit"}, 0.75},
	{[]string{"probability", "statistics", "variance", "median"}, 0.72},
	{[]string{"algebra", "equation", "solve", "polynomial"}, 0.70},
	{[]string{"geometry", "triangle", "circle", "angle"}, 0.65},
}

const (
	baseScore         = 0.55
	substantialLength = 200
	lengthBonus       = 0.05
	mathContentBonus  = 0.05
)

var mathMarkers = []string{"=", "$", "\\int", "^", "+"}

// scoreAnswer estimates how trustworthy a web search answer is. Search
// results never carry a similarity score, so the estimate comes from
// the question's topic and surface features of the answer, capped so a
// web hit cannot outrank a strong knowledge base match by default.
func scoreAnswer(question, answer string, maxConfidence float64) float64 {
	lowered := strings.ToLower(question)

	score := baseScore
	for _, topic := range topicScores {
		if containsAny(lowered, topic.keywords) {
			score = topic.score
			break
		}
	}

	if len(answer) >= substantialLength {
		score += lengthBonus
	}
	if containsAny(answer, mathMarkers) {
		score += mathContentBonus
	}

	if score > maxConfidence {
		score = maxConfidence
	}
	if score < 0 {
		score = 0
	}
	return score
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
