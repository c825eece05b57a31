// Package assistant implements the calendar assistant core: reconciliation
// of partial timing input into complete event time ranges, and the four
// operation handlers (create, list, update, cancel) over an injected
// calendar provider.
package assistant

import (
	"fmt"
	"time"

	"github.com/jshargo/google-calendar-agent/plugin/nltime"
	"github.com/jshargo/google-calendar-agent/server/service/calendar"
)

// DefaultEventDuration applies when neither an end time nor a duration is
// supplied for a new event.
const DefaultEventDuration = 60 * time.Minute

// ReconcileReason categorizes why reconciliation failed.
type ReconcileReason string

const (
	// ReasonUnresolvable means a timing expression could not be resolved.
	ReasonUnresolvable ReconcileReason = "unresolvable"
	// ReasonNonPositiveDuration means an explicit duration was <= 0 minutes.
	ReasonNonPositiveDuration ReconcileReason = "non_positive_duration"
	// ReasonEndBeforeStart means the resolved end does not strictly follow
	// the resolved start.
	ReasonEndBeforeStart ReconcileReason = "end_before_start"
)

// ReconciliationError reports timing inputs that are individually valid but
// jointly inconsistent, or a resolution failure mid-reconciliation. Field
// identifies which input failed; Start/End carry the resolved instants for
// ordering violations so callers can build a specific message.
type ReconciliationError struct {
	Field  string
	Reason ReconcileReason
	Start  time.Time
	End    time.Time
	Err    error
}

func (e *ReconciliationError) Error() string {
	switch e.Reason {
	case ReasonNonPositiveDuration:
		return fmt.Sprintf("%s must be positive", e.Field)
	case ReasonEndBeforeStart:
		return fmt.Sprintf("end time (%s) must be after start time (%s)",
			e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
	default:
		if e.Err != nil {
			return fmt.Sprintf("could not resolve %s: %v", e.Field, e.Err)
		}
		return fmt.Sprintf("could not resolve %s", e.Field)
	}
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// Reconciler derives complete (start, end) pairs from partial timing fields.
type Reconciler struct {
	resolver        *nltime.Resolver
	defaultDuration time.Duration
}

// NewReconciler creates a reconciler on top of the given resolver.
func NewReconciler(resolver *nltime.Resolver) *Reconciler {
	return &Reconciler{
		resolver:        resolver,
		defaultDuration: DefaultEventDuration,
	}
}

// WithDefaultDuration returns a copy of the reconciler applying d when
// neither an end time nor a duration is supplied. Non-positive values keep
// the standard default.
func (r *Reconciler) WithDefaultDuration(d time.Duration) *Reconciler {
	if d <= 0 {
		d = DefaultEventDuration
	}
	return &Reconciler{resolver: r.resolver, defaultDuration: d}
}

// ReconcileNew derives the time range for a new event. Precedence for the
// end instant: explicit end expression, then explicit duration, then the
// default duration. The resulting range is strictly ordered.
func (r *Reconciler) ReconcileNew(startExpr string, endExpr *string, durationMinutes *int) (calendar.TimeRange, error) {
	start, err := r.resolver.Resolve(startExpr, nil)
	if err != nil {
		return calendar.TimeRange{}, &ReconciliationError{
			Field:  "start time",
			Reason: ReasonUnresolvable,
			Err:    err,
		}
	}

	var end time.Time
	switch {
	case endExpr != nil:
		end, err = r.resolver.Resolve(*endExpr, nil)
		if err != nil {
			return calendar.TimeRange{}, &ReconciliationError{
				Field:  "end time",
				Reason: ReasonUnresolvable,
				Err:    err,
			}
		}
	case durationMinutes != nil:
		if *durationMinutes <= 0 {
			return calendar.TimeRange{}, &ReconciliationError{
				Field:  "duration",
				Reason: ReasonNonPositiveDuration,
			}
		}
		end = start.Add(time.Duration(*durationMinutes) * time.Minute)
	default:
		end = start.Add(r.defaultDuration)
	}

	return orderedRange(start, end)
}

// ReconcilePatch derives the new time range for a partially updated event.
// It returns (nil, nil) when none of the three inputs are present, meaning
// the event's timing is untouched.
//
// When only the start moves, the original duration is preserved. When only
// the end or duration changes, the original start stays anchored; moving an
// event's duration must not silently shift its start.
func (r *Reconciler) ReconcilePatch(current calendar.TimeRange, newStartExpr, newEndExpr *string, newDurationMinutes *int) (*calendar.TimeRange, error) {
	if newStartExpr == nil && newEndExpr == nil && newDurationMinutes == nil {
		return nil, nil
	}

	start := current.Start
	if newStartExpr != nil {
		resolved, err := r.resolver.Resolve(*newStartExpr, nil)
		if err != nil {
			return nil, &ReconciliationError{
				Field:  "new start time",
				Reason: ReasonUnresolvable,
				Err:    err,
			}
		}
		start = resolved
	}

	var end time.Time
	switch {
	case newEndExpr != nil:
		resolved, err := r.resolver.Resolve(*newEndExpr, nil)
		if err != nil {
			return nil, &ReconciliationError{
				Field:  "new end time",
				Reason: ReasonUnresolvable,
				Err:    err,
			}
		}
		end = resolved
	case newDurationMinutes != nil:
		if *newDurationMinutes <= 0 {
			return nil, &ReconciliationError{
				Field:  "new duration",
				Reason: ReasonNonPositiveDuration,
			}
		}
		end = start.Add(time.Duration(*newDurationMinutes) * time.Minute)
	default:
		// Only the start moved; keep the original duration.
		end = start.Add(current.Duration())
	}

	rng, err := orderedRange(start, end)
	if err != nil {
		return nil, err
	}
	return &rng, nil
}

func orderedRange(start, end time.Time) (calendar.TimeRange, error) {
	if !end.After(start) {
		return calendar.TimeRange{}, &ReconciliationError{
			Field:  "end time",
			Reason: ReasonEndBeforeStart,
			Start:  start,
			End:    end,
		}
	}
	return calendar.TimeRange{Start: start, End: end}, nil
}
