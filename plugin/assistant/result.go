package assistant

import (
	"errors"

	"github.com/jshargo/google-calendar-agent/plugin/nltime"
	"github.com/jshargo/google-calendar-agent/server/service/calendar"
)

// ErrorKind is the machine-readable category of a failed operation. The
// Message stays the user-facing surface; the kind exists for programmatic
// handling only.
type ErrorKind string

const (
	// ErrorKindResolution means a date/time string could not be resolved.
	ErrorKindResolution ErrorKind = "resolution"
	// ErrorKindReconciliation means timing inputs were jointly inconsistent.
	ErrorKindReconciliation ErrorKind = "reconciliation"
	// ErrorKindNotFound means the referenced event does not exist.
	ErrorKindNotFound ErrorKind = "not_found"
	// ErrorKindProvider means the calendar provider call failed.
	ErrorKindProvider ErrorKind = "provider"
	// ErrorKindValidation means structurally required input was missing.
	ErrorKindValidation ErrorKind = "validation"
)

// OperationResult is the uniform outcome of every handler. Message is a
// plain-language sentence intended for direct display or speech; handlers
// never let an error cross this boundary.
type OperationResult struct {
	Success   bool
	Message   string
	Link      string
	ErrorKind ErrorKind
}

func success(message string) OperationResult {
	return OperationResult{Success: true, Message: message}
}

func successWithLink(message, link string) OperationResult {
	return OperationResult{Success: true, Message: message, Link: link}
}

func failure(kind ErrorKind, message string) OperationResult {
	return OperationResult{Message: message, ErrorKind: kind}
}

// classifyError maps an error from the resolver, reconciler or provider to
// its result kind.
func classifyError(err error) ErrorKind {
	var resolutionErr *nltime.ResolutionError
	var reconcileErr *ReconciliationError

	switch {
	case errors.Is(err, calendar.ErrEventNotFound):
		return ErrorKindNotFound
	// A reconciliation failure caused by an unresolvable expression reports
	// as a resolution failure; check the deeper cause first.
	case errors.As(err, &resolutionErr):
		return ErrorKindResolution
	case errors.As(err, &reconcileErr):
		return ErrorKindReconciliation
	default:
		return ErrorKindProvider
	}
}
