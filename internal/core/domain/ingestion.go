package domain

import (
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
)

// recordNamespace seeds deterministic ingestion identifiers. Fixed forever:
// changing it would re-key every point in the collection.
var recordNamespace = uuid.MustParse("9bb6fe67-1adf-4cd4-8e1d-04e3f6f1c2da")

// ProblemRecord is one raw dataset item: a solved problem with provenance.
type ProblemRecord struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Source   string `json:"source"`
}

// IngestionRecord is a ProblemRecord prepared for the vector store.
type IngestionRecord struct {
	ID             string
	Problem        string
	Solution       string
	Source         string
	EmbeddingInput string
}

// NewIngestionRecord derives the stable identity and embedding input for a
// dataset item. The identifier is a UUIDv5 over the record content, so
// re-ingesting an unchanged dataset upserts in place instead of duplicating.
func NewIngestionRecord(r ProblemRecord) IngestionRecord {
	sum := sha256.Sum256([]byte(r.Problem + "\x00" + r.Solution + "\x00" + r.Source))
	return IngestionRecord{
		ID:             uuid.NewSHA1(recordNamespace, sum[:]).String(),
		Problem:        r.Problem,
		Solution:       r.Solution,
		Source:         r.Source,
		EmbeddingInput: fmt.Sprintf("Question: %s\nAnswer: %s", r.Problem, r.Solution),
	}
}

// IngestionSummary reports the outcome of one pipeline run.
type IngestionSummary struct {
	Attempted        int    `json:"attempted"`
	Processed        int    `json:"processed"`
	TotalBatches     int    `json:"total_batches"`
	FailedBatches    int    `json:"failed_batches"`
	CollectionStatus string `json:"collection_status,omitempty"`
	PointCount       uint64 `json:"point_count,omitempty"`
}

// CollectionInfo is the vector store's view of the target collection.
type CollectionInfo struct {
	Status     string
	PointCount uint64
}
