package mcp

import (
	"math"
	"strings"
	"testing"
)

func TestScoreAnswerTopicBases(t *testing.T) {
	cases := []struct {
		name     string
		question string
		want     float64
	}{
		{"calculus", "Find the derivative of f(x)", 0.75},
		{"statistics", "What is the variance of this sample", 0.72},
		{"algebra", "Factor the polynomial", 0.70},
		{"geometry", "Find the area of the triangle", 0.65},
		{"unclassified", "How many apples does Maria have", 0.55},
	}

	for _, tc := range cases {
		// Short answer with no math markers isolates the topic base.
		got := scoreAnswer(tc.question, "see reference", 1.0)
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestScoreAnswerBonuses(t *testing.T) {
	question := "Find the area of the triangle"
	long := strings.Repeat("The area follows from the base and height. ", 6)

	withLength := scoreAnswer(question, long, 1.0)
	if math.Abs(withLength-0.70) > 1e-9 {
		t.Fatalf("expected length bonus to yield 0.70, got %v", withLength)
	}

	withBoth := scoreAnswer(question, long+" $A = bh/2$", 1.0)
	if math.Abs(withBoth-0.75) > 1e-9 {
		t.Fatalf("expected both bonuses to yield 0.75, got %v", withBoth)
	}
}

func TestScoreAnswerClampedBelowKnowledgeBase(t *testing.T) {
	question := "Compute the integral of x^2"
	answer := strings.Repeat("Apply the power rule for integration. ", 10) + "$x^3/3 + C$"

	got := scoreAnswer(question, answer, defaultMaxConfidence)
	if got != defaultMaxConfidence {
		t.Fatalf("expected clamp at %v, got %v", defaultMaxConfidence, got)
	}
}

func TestScoreAnswerHonorsCustomCap(t *testing.T) {
	got := scoreAnswer("solve the equation", "x = 2", 0.6)
	if got > 0.6 {
		t.Fatalf("expected cap at 0.6, got %v", got)
	}
}

func TestConfigNormalizeDefaults(t *testing.T) {
	cfg := Config{BaseURL: "http://search:8080"}.normalize()
	if cfg.Tool != "web_search" {
		t.Fatalf("expected default tool, got %q", cfg.Tool)
	}
	if cfg.MaxConfidence != defaultMaxConfidence {
		t.Fatalf("expected default cap, got %v", cfg.MaxConfidence)
	}
	if cfg.MaxResults != 5 {
		t.Fatalf("expected default result count, got %d", cfg.MaxResults)
	}
}

func TestTextFromContentsSkipsBlankAndNonText(t *testing.T) {
	if got := textFromContents(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
