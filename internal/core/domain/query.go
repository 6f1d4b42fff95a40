package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies which cascade tier produced an answer.
type Source string

const (
	SourceKnowledgeBase Source = "knowledge_base"
	SourceWebSearch     Source = "web_search"
	SourceLLM           Source = "llm"
)

// Query is the immutable unit of work entering the cascade.
type Query struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewQuery normalizes the question text and stamps identity and arrival time.
func NewQuery(text string) Query {
	return Query{
		ID:         uuid.NewString(),
		Text:       normalizeWhitespace(text),
		ReceivedAt: time.Now().UTC(),
	}
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CandidateAnswer is one proposed answer from a single tier. Candidates are
// never mutated after creation.
type CandidateAnswer struct {
	Source     Source  `json:"source"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Rank       int     `json:"rank,omitempty"`
	Problem    string  `json:"problem,omitempty"`
}

// ResolvedAnswer is the cascade's terminal output, constructed exactly once.
type ResolvedAnswer struct {
	QueryID     string            `json:"query_id"`
	Text        string            `json:"text"`
	Source      Source            `json:"source"`
	Confidence  float64           `json:"confidence"`
	Quality     float64           `json:"quality"`
	Efficiency  float64           `json:"efficiency"`
	Explanation string            `json:"explanation"`
	Supporting  []CandidateAnswer `json:"supporting,omitempty"`
	Elapsed     time.Duration     `json:"elapsed"`
}
