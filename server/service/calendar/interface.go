// Package calendar defines the calendar provider capability consumed by the
// assistant, plus a local implementation backed by the event store. The
// assistant only ever talks to the Service interface; swapping in a remote
// provider client is a wiring change.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEventNotFound indicates the referenced event identifier does not exist
// at the provider.
var ErrEventNotFound = errors.New("event not found")

// ProviderError wraps any non-not-found provider failure (I/O, quota,
// storage). Reason carries a provider-supplied detail when available.
type ProviderError struct {
	Reason string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("calendar provider error: %s", e.Reason)
	}
	return fmt.Sprintf("calendar provider error: %s: %v", e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TimeRange is an ordered pair of instants. Start is strictly before End;
// ranges violating this are rejected by the producers, never swapped.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// EventDraft is a complete new event, produced fresh for insert operations.
type EventDraft struct {
	Summary     string
	Description string
	Location    string
	Range       TimeRange
	AllDay      bool
	// RecurrenceRule is an optional RFC 5545 RRULE body (without the
	// "RRULE:" prefix). Recurring events are expanded at list time.
	RecurrenceRule *string
}

// EventSummary is a single listing line's worth of event data. Recurring
// events appear once per expanded occurrence.
type EventSummary struct {
	ID        string
	Summary   string
	Start     time.Time
	End       time.Time
	AllDay    bool
	Recurring bool
}

// EventSnapshot is the provider's current view of one event.
type EventSnapshot struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Range       TimeRange
	AllDay      bool
	Link        string
}

// UpdateEvent is a pointer-field patch; nil fields are left unchanged.
type UpdateEvent struct {
	Summary     *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
}

// HasChanges reports whether any field is set.
func (u *UpdateEvent) HasChanges() bool {
	return u.Summary != nil || u.Description != nil || u.Location != nil ||
		u.Start != nil || u.End != nil
}

// ListRequest selects events overlapping a time window. TimeMax nil means
// the window is open-ended. Query is a free-text filter; MaxResults caps the
// number of returned occurrences.
type ListRequest struct {
	TimeMin    time.Time
	TimeMax    *time.Time
	Query      string
	MaxResults int
}

// Service is the calendar provider capability. Implementations own all
// blocking I/O, timeout and retry policy; callers treat every method as a
// single synchronous round-trip.
type Service interface {
	// InsertEvent creates a new event and returns its snapshot with the
	// assigned identifier and link.
	InsertEvent(ctx context.Context, draft *EventDraft) (*EventSnapshot, error)

	// GetEvent returns the current snapshot of an event, or ErrEventNotFound.
	GetEvent(ctx context.Context, id string) (*EventSnapshot, error)

	// ListEvents returns occurrences overlapping the window, ordered by
	// start time ascending, with recurring events expanded to single
	// occurrences.
	ListEvents(ctx context.Context, req *ListRequest) ([]*EventSummary, error)

	// PatchEvent applies a partial update and returns the updated snapshot,
	// or ErrEventNotFound.
	PatchEvent(ctx context.Context, id string, update *UpdateEvent) (*EventSnapshot, error)

	// DeleteEvent removes an event. The notify flag is forwarded to the
	// provider's attendee-notification policy.
	DeleteEvent(ctx context.Context, id string, notify bool) error
}
