package exam

import (
	"errors"
	"fmt"
)

// ConfigurationError marks a structurally invalid request (no files, zero
// questions). Fatal, never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid generation config: " + e.Reason
}

// ExtractionError marks an unreadable or empty source file. Fatal for the
// whole run; file access failures indicate misconfigured input.
type ExtractionError struct {
	FileName string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %v", e.FileName, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// GenerationError wraps a failed collaborator call. Quota errors are never
// retried; everything else is considered transient.
type GenerationError struct {
	Quota bool
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Quota {
		return fmt.Sprintf("generation quota exceeded: %v", e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsQuotaError reports whether err is a non-retryable quota/limit failure.
func IsQuotaError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge) && ge.Quota
}

// ParseError marks collaborator output that none of the parsing strategies
// could structure. The orchestrator falls back to placeholder questions.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "unparseable exam text: " + e.Reason
}

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
