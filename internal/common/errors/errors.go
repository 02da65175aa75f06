package errors

import (
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeInvalidMatchInput      ErrorCode = "INVALID_MATCH_INPUT"
	ErrCodeUnsupportedDataSource  ErrorCode = "UNSUPPORTED_DATA_SOURCE"
	ErrCodeCandidateLookupFailed  ErrorCode = "CANDIDATE_LOOKUP_FAILED"
	ErrCodeCandidateLookupTimeout ErrorCode = "CANDIDATE_LOOKUP_TIMEOUT"
	ErrCodeScoringFailed          ErrorCode = "SCORING_FAILED"

	// External match codes never reach the process; they label fallback logs and metrics.
	ErrCodeExternalMatchFailed   ErrorCode = "EXTERNAL_MATCH_FAILED"
	ErrCodeExternalMatchTimeout  ErrorCode = "EXTERNAL_MATCH_TIMEOUT"
	ErrCodeExternalMatchRejected ErrorCode = "EXTERNAL_MATCH_REJECTED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e after merging the given key/values into Metadata.
func (e *StandardError) WithMetadata(kv map[string]interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{}, len(kv))
	}
	for k, v := range kv {
		e.Metadata[k] = v
	}
	return e
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidMatchInputError(details string) *StandardError {
	return newError(ErrCodeInvalidMatchInput, "Match input failed validation", details, false)
}

func NewUnsupportedDataSourceError(source string) *StandardError {
	return newError(ErrCodeUnsupportedDataSource, "Unsupported candidate data source",
		fmt.Sprintf("dataSource: %s", source), false)
}

func NewCandidateLookupFailedError(source string, err error) *StandardError {
	return newError(ErrCodeCandidateLookupFailed, "Supplier candidate lookup failed",
		fmt.Sprintf("dataSource: %s, error: %s", source, err.Error()), true)
}

func NewCandidateLookupTimeoutError(source string) *StandardError {
	return newError(ErrCodeCandidateLookupTimeout, "Supplier candidate lookup timeout",
		fmt.Sprintf("dataSource: %s", source), true)
}

func NewScoringFailedError(err error) *StandardError {
	return newError(ErrCodeScoringFailed, "Supplier scoring failed", err.Error(), false)
}

func NewExternalMatchFailedError(provider string, err error) *StandardError {
	return newError(ErrCodeExternalMatchFailed, fmt.Sprintf("External match provider '%s' failed", provider), err.Error(), false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidMatchInput:      "INVALID_MATCH_INPUT",
	ErrCodeUnsupportedDataSource:  "UNSUPPORTED_DATA_SOURCE",
	ErrCodeCandidateLookupFailed:  "CANDIDATE_LOOKUP_FAILED",
	ErrCodeCandidateLookupTimeout: "CANDIDATE_LOOKUP_TIMEOUT",
	ErrCodeScoringFailed:          "SCORING_FAILED",
}

// GetRetryCount is the number of job retries a failure of this kind is worth.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCandidateLookupFailed, ErrCodeExternalService:
		return 3
	case ErrCodeCandidateLookupTimeout, ErrCodeTimeout:
		return 2
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "UNSUPPORTED"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CANDIDATE"):
		return "DATABASE"
	case strings.Contains(codeStr, "EXTERNAL_MATCH"):
		return "AI"
	case strings.Contains(codeStr, "SCORING"):
		return "MATCHING"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "INTEGRATION"
	default:
		return "OTHER"
	}
}
