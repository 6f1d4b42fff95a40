package domain

import "time"

// Feedback is a user's rating of one resolved answer. It is accepted and
// persisted but never fed back into the cascade.
type Feedback struct {
	ID         string    `json:"id"`
	ResponseID string    `json:"response_id"`
	Question   string    `json:"question"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// ResolutionLog is the persisted trace of one cascade run, recorded out of
// band for later analysis.
type ResolutionLog struct {
	QueryID    string        `json:"query_id"`
	Question   string        `json:"question"`
	Source     Source        `json:"source"`
	Confidence float64       `json:"confidence"`
	Quality    float64       `json:"quality"`
	Efficiency float64       `json:"efficiency"`
	Elapsed    time.Duration `json:"elapsed"`
	CreatedAt  time.Time     `json:"created_at"`
}
