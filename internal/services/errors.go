package services

import "fmt"

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// CredentialRequiredError is returned when a session has no API key yet.
type CredentialRequiredError struct{}

func (e *CredentialRequiredError) Error() string {
	return "Enter your API key to enable the chatbot"
}

type UnsupportedMediaError struct{ Message string }

func (e *UnsupportedMediaError) Error() string { return e.Message }

// ExtractionError wraps a failure to read text out of an uploaded document.
type ExtractionError struct{ Err error }

func (e *ExtractionError) Error() string { return fmt.Sprintf("failed to process pdf: %v", e.Err) }

func (e *ExtractionError) Unwrap() error { return e.Err }

// CompletionError wraps a failed call to the remote model.
type CompletionError struct {
	Model string
	Err   error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion with %s failed: %v", e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }
