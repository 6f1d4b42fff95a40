package usecase

import (
	"strings"

	"github.com/mathrag-io/mathrag/internal/core/domain"
)

// mathIndicators are the tokens treated as evidence of mathematical
// content in an answer. Each distinct indicator found is worth 0.05,
// capped at six indicators.
var mathIndicators = []string{
	"=", "+", "-", "*", "/", "^",
	"equation", "solve", "solution", "theorem", "formula",
	"x", "y", "integral", "derivative",
}

const (
	substantiveMin = 50
	substantiveMax = 2000
	minimalLength  = 20
	maxIndicators  = 6
)

// QualityScore rates how substantive a resolved answer looks. Pure and
// total: every input maps into [0,1].
func QualityScore(question, answer string, source domain.Source, confidence float64) float64 {
	score := 0.0

	n := len(answer)
	switch {
	case n >= substantiveMin && n <= substantiveMax:
		score += 0.3
	case n > minimalLength:
		score += 0.1
	}

	if source == domain.SourceKnowledgeBase {
		score += 0.4 * clamp01(confidence)
	} else {
		score += 0.3
	}

	score += 0.05 * float64(countIndicators(answer))

	return clamp01(score)
}

// EfficiencyScore rates how cheaply the answer was produced. Pure and
// total: every input maps into [0,1].
func EfficiencyScore(kbResultCount int, source domain.Source, elapsedMs float64) float64 {
	var score float64
	switch {
	case elapsedMs < 1000:
		score = 0.5
	case elapsedMs < 3000:
		score = 0.3
	default:
		score = 0.1
	}

	if kbResultCount > 0 {
		score += 0.3
	}
	if source == domain.SourceKnowledgeBase {
		score += 0.2
	}

	return clamp01(score)
}

func countIndicators(answer string) int {
	lower := strings.ToLower(answer)
	found := 0
	for _, indicator := range mathIndicators {
		if strings.Contains(lower, indicator) {
			found++
			if found == maxIndicators {
				break
			}
		}
	}
	return found
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
