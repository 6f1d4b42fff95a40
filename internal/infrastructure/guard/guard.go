// Package guard validates and sanitizes question and answer text at
// the system boundary. Rules live in code with an optional YAML
// override file so operators can extend the prohibited list without a
// rebuild.
package guard

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mathrag-io/mathrag/internal/core/domain"
)

const (
	minQuestionLen = 5
	maxQuestionLen = 2000
	maxAnswerLen   = 10000
)

var defaultProhibited = []string{
	`(?i)\b(hack|exploit|malicious|virus|attack)\b`,
	`(?i)\b(personal|private|confidential|secret)\b`,
	`(?i)\b(password|credit|social.?security)\b`,
}

var mathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d+\b`),
	regexp.MustCompile(`[+\-*/=()]`),
	regexp.MustCompile(`(?i)\b(solve|equation|function|derivative|integral|limit|sum|product)\b`),
	regexp.MustCompile(`(?i)\b(algebra|geometry|calculus|trigonometry|statistics|probability)\b`),
	regexp.MustCompile(`(?i)\b(theorem|proof|formula|solution|answer)\b`),
}

var (
	scriptTags     = regexp.MustCompile(`(?is)<script.*?</script>`)
	jsScheme       = regexp.MustCompile(`(?i)javascript:`)
	filteredMarker = "[FILTERED]"
)

// RuleFile is the YAML shape of an operator-supplied rule override.
type RuleFile struct {
	Prohibited []string `yaml:"prohibited"`
}

type Guard struct {
	prohibited []*regexp.Regexp
	logger     *slog.Logger
}

func New(logger *slog.Logger) *Guard {
	g, err := NewWithRules(nil, logger)
	if err != nil {
		// Built-in patterns are compile-time constants; they cannot fail.
		panic(err)
	}
	return g
}

// NewFromFile loads extra prohibited patterns from a YAML rule file and
// appends them to the built-in set.
func NewFromFile(path string, logger *slog.Logger) (*Guard, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "load guard rules", err)
	}
	var rules RuleFile
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "parse guard rules", err)
	}
	return NewWithRules(rules.Prohibited, logger)
}

func NewWithRules(extraProhibited []string, logger *slog.Logger) (*Guard, error) {
	if logger == nil {
		logger = slog.Default()
	}

	patterns := make([]*regexp.Regexp, 0, len(defaultProhibited)+len(extraProhibited))
	for _, raw := range append(append([]string{}, defaultProhibited...), extraProhibited...) {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, domain.WrapError(domain.ErrConfig, "compile guard rule",
				fmt.Errorf("pattern %q: %w", raw, err))
		}
		patterns = append(patterns, re)
	}
	return &Guard{prohibited: patterns, logger: logger}, nil
}

// ValidateQuestion checks and sanitizes an incoming question. A failed
// check returns domain.ErrValidation; the caller surfaces it as a 400.
func (g *Guard) ValidateQuestion(question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return "", domain.WrapError(domain.ErrValidation, "validate question",
			fmt.Errorf("question cannot be empty"))
	}
	if len(trimmed) > maxQuestionLen {
		return "", domain.WrapError(domain.ErrValidation, "validate question",
			fmt.Errorf("question too long (max %d characters)", maxQuestionLen))
	}
	if len(trimmed) < minQuestionLen {
		return "", domain.WrapError(domain.ErrValidation, "validate question",
			fmt.Errorf("question too short (min %d characters)", minQuestionLen))
	}

	for _, pattern := range g.prohibited {
		if pattern.MatchString(trimmed) {
			g.logger.Warn("prohibited_content_in_question", "pattern", pattern.String())
			return "", domain.WrapError(domain.ErrValidation, "validate question",
				fmt.Errorf("question contains prohibited content"))
		}
	}

	sanitized := stripInjections(trimmed)
	if !g.IsMathRelated(sanitized) {
		g.logger.Info("non_math_question_accepted", "length", len(sanitized))
	}
	return sanitized, nil
}

// SanitizeAnswer never rejects: outbound text is truncated and filtered
// so the caller always has something to return.
func (g *Guard) SanitizeAnswer(answer string) string {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return "No response generated"
	}
	if len(trimmed) > maxAnswerLen {
		g.logger.Warn("answer_truncated", "length", len(trimmed))
		trimmed = trimmed[:maxAnswerLen] + "... [truncated]"
	}

	sanitized := stripInjections(trimmed)
	for _, pattern := range g.prohibited {
		if pattern.MatchString(sanitized) {
			g.logger.Warn("prohibited_content_in_answer", "pattern", pattern.String())
			sanitized = pattern.ReplaceAllString(sanitized, filteredMarker)
		}
	}
	return strings.TrimSpace(sanitized)
}

func (g *Guard) IsMathRelated(text string) bool {
	for _, pattern := range mathPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

func stripInjections(text string) string {
	text = scriptTags.ReplaceAllString(text, "")
	text = jsScheme.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
