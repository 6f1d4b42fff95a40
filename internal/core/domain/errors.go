package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a query rejected before the cascade runs.
	ErrValidation = errors.New("invalid input")
	// ErrRetrieval marks vector-store infrastructure failure. The cascade
	// degrades it to an empty candidate list.
	ErrRetrieval = errors.New("retrieval failure")
	// ErrFallbackUnavailable marks a web-search or LLM capability that is
	// down or rate-limited. The cascade proceeds to the next tier.
	ErrFallbackUnavailable = errors.New("fallback unavailable")
	// ErrIngestionBatch marks one batch failing after retry exhaustion.
	ErrIngestionBatch = errors.New("ingestion batch failure")
	// ErrConfig marks missing required configuration. Fatal at startup.
	ErrConfig = errors.New("configuration error")
	// ErrTemporary marks transient infrastructure failure.
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
