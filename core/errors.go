package core

import "fmt"

// ErrorKind classifies request-level pipeline failures. Recoverable
// numeric degradation never becomes a PipelineError; it is absorbed into
// fallback values by the component that hit it.
type ErrorKind int

const (
	// ErrMissingInput marks a required upstream field that is absent
	// (no transcript, no audio path). The branch terminates early but the
	// orchestrator still reaches a terminal stage.
	ErrMissingInput ErrorKind = iota
	// ErrExternalService marks a collaborator failure (transcription,
	// embedding, index, completion). Hard failure for the request.
	ErrExternalService
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMissingInput:
		return "missing_input"
	case ErrExternalService:
		return "external_service"
	default:
		return "unknown"
	}
}

// PipelineError is the tagged error carried on PipelineState.
type PipelineError struct {
	Kind    ErrorKind
	Stage   string
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// MissingInput builds a missing-input error for a stage.
func MissingInput(stage, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: ErrMissingInput, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// ExternalFailure wraps a collaborator error for a stage.
func ExternalFailure(stage string, cause error, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: ErrExternalService, Stage: stage, Message: fmt.Sprintf(format, args...), Cause: cause}
}
