package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound     = "not_found"
	ErrCodeExamNotFound = "exam_not_found"
	ErrCodeRunNotFound  = "run_not_found"

	// Generation errors
	ErrCodeGenerationFailed = "generation_failed"
	ErrCodeExtractionFailed = "extraction_failed"
	ErrCodeQuotaExhausted   = "quota_exhausted"
	ErrCodeRateLimited      = "rate_limited"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
