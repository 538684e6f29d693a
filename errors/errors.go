package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates a required service is unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrLLMCommunication indicates LLM communication failed
	ErrLLMCommunication = errors.New("llm communication failed")

	// ErrEmbedding indicates the embedding backend failed to produce a vector
	ErrEmbedding = errors.New("embedding failed")

	// ErrEmptySource indicates a FAQ source file exists but has no content
	ErrEmptySource = errors.New("faq source is empty")

	// ErrMalformedSource indicates a FAQ source could not be decoded
	ErrMalformedSource = errors.New("faq source is malformed")

	// ErrMalformedEntry indicates a FAQ entry is missing its question or answer
	ErrMalformedEntry = errors.New("faq entry is malformed")

	// ErrStaleCorpus indicates the embedding corpus does not match the FAQ store
	ErrStaleCorpus = errors.New("embedding corpus does not match faq store")

	// ErrDatabaseOperation indicates a database operation failed
	ErrDatabaseOperation = errors.New("database operation failed")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Mark attaches a sentinel to err while keeping the original message.
func Mark(err, sentinel error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsServiceUnavailable checks if error is a service unavailable error
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// IsLLMCommunication checks if error came from the LLM call boundary
func IsLLMCommunication(err error) bool {
	return errors.Is(err, ErrLLMCommunication)
}
