package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jshargo/google-calendar-agent/plugin/nltime"
	"github.com/jshargo/google-calendar-agent/server/service/calendar"
)

const (
	// defaultMaxResults is the listing cap when the caller supplies none.
	defaultMaxResults = 10
	// maxResultsCeiling is the hard listing cap; larger requests are
	// clamped, not rejected.
	maxResultsCeiling = 250

	// Field length limits for audit logging.
	maxSummaryLengthForLog     = 50
	maxDescriptionLengthForLog = 100
)

// Assistant orchestrates the four calendar operations over an injected
// provider. It holds no per-request state; a single value is safe for
// concurrent use.
type Assistant struct {
	calendar   calendar.Service
	resolver   *nltime.Resolver
	reconciler *Reconciler
	now        func() time.Time
	timezone   *time.Location
}

// New creates an assistant bound to the given provider and timezone. A nil
// location falls back to time.Local.
func New(svc calendar.Service, timezone *time.Location) *Assistant {
	if timezone == nil {
		timezone = time.Local
	}
	resolver := nltime.NewResolver(timezone)
	return &Assistant{
		calendar:   svc,
		resolver:   resolver,
		reconciler: NewReconciler(resolver),
		now:        time.Now,
		timezone:   timezone,
	}
}

// WithDefaultDuration returns a copy of the assistant whose new events use
// d when the caller supplies neither an end time nor a duration.
func (a *Assistant) WithDefaultDuration(d time.Duration) *Assistant {
	clone := *a
	clone.reconciler = a.reconciler.WithDefaultDuration(d)
	return &clone
}

// CreateEventRequest carries the already-identified fields for a new event.
// StartTime/EndTime are raw date/time expressions, not parsed instants.
type CreateEventRequest struct {
	Summary         string
	StartTime       string
	EndTime         *string
	DurationMinutes *int
	Description     string
	Location        string
}

// ListEventsRequest selects events by window and free-text query. Empty
// TimeMin defaults to now; empty TimeMax leaves the window open-ended.
type ListEventsRequest struct {
	TimeMin    string
	TimeMax    string
	Query      string
	MaxResults int
}

// UpdateEventRequest patches an existing event. The three-state text fields
// distinguish absent, cleared and replaced values; the timing fields are at
// most a coherent subset (see Reconciler.ReconcilePatch).
type UpdateEventRequest struct {
	EventID            string
	NewSummary         Field
	NewDescription     Field
	NewLocation        Field
	NewStartTime       *string
	NewEndTime         *string
	NewDurationMinutes *int
}

// CancelEventRequest removes an event.
type CancelEventRequest struct {
	EventID           string
	SendNotifications bool
}

// CreateEvent validates the draft, reconciles its timing and inserts it.
func (a *Assistant) CreateEvent(ctx context.Context, req *CreateEventRequest) OperationResult {
	if strings.TrimSpace(req.Summary) == "" {
		return failure(ErrorKindValidation, "Event summary is required.")
	}
	if strings.TrimSpace(req.StartTime) == "" {
		return failure(ErrorKindValidation, "Event start time is required.")
	}

	rng, err := a.reconciler.ReconcileNew(req.StartTime, req.EndTime, req.DurationMinutes)
	if err != nil {
		return failure(classifyError(err), newTimingMessage(err, req.StartTime, req.EndTime))
	}

	draft := &calendar.EventDraft{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		Range:       rng,
	}

	created, err := a.calendar.InsertEvent(ctx, draft)
	if err != nil {
		return failure(classifyError(err), providerMessage("creating the event", err))
	}

	slog.Info("event created",
		"event_id", created.ID,
		"summary", sanitizeForLog(created.Summary, maxSummaryLengthForLog),
		"start", rng.Start.Format(time.RFC3339),
		"end", rng.End.Format(time.RFC3339),
	)

	return successWithLink(
		fmt.Sprintf("Event '%s' created successfully! View it here: %s", req.Summary, created.Link),
		created.Link,
	)
}

// ListEvents resolves the window bounds and formats one line per event.
func (a *Assistant) ListEvents(ctx context.Context, req *ListEventsRequest) OperationResult {
	timeMin := a.now().In(a.timezone)
	if req.TimeMin != "" {
		clock := nltime.StartOfDay()
		resolved, err := a.resolver.Resolve(req.TimeMin, &clock)
		if err != nil {
			return failure(ErrorKindResolution,
				fmt.Sprintf("Could not understand the start of the time range: '%s'. Please provide a valid start date/time.", req.TimeMin))
		}
		timeMin = resolved
	}

	var timeMax *time.Time
	if req.TimeMax != "" {
		clock := nltime.EndOfDay()
		resolved, err := a.resolver.Resolve(req.TimeMax, &clock)
		if err != nil {
			return failure(ErrorKindResolution,
				fmt.Sprintf("Could not understand the end of the time range: '%s'.", req.TimeMax))
		}
		timeMax = &resolved
	}

	limit := req.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}
	if limit > maxResultsCeiling {
		limit = maxResultsCeiling
	}

	events, err := a.calendar.ListEvents(ctx, &calendar.ListRequest{
		TimeMin:    timeMin,
		TimeMax:    timeMax,
		Query:      req.Query,
		MaxResults: limit,
	})
	if err != nil {
		return failure(classifyError(err), providerMessage("listing events", err))
	}

	if len(events) == 0 {
		return success("No events found matching your criteria.")
	}

	var sb strings.Builder
	sb.Grow(256)
	sb.WriteString("Found events:\n")
	for _, ev := range events {
		sb.WriteString(fmt.Sprintf("- '%s' on %s (ID: %s)", ev.Summary, a.formatEventStart(ev), ev.ID))
		if ev.Recurring {
			sb.WriteString(" [recurring]")
		}
		sb.WriteByte('\n')
	}

	return success(strings.TrimSpace(sb.String()))
}

// UpdateEvent reads the current event, applies the three-state field and
// timing semantics and writes the patch. The read-then-write pair is not
// transactional; a concurrent external change between them is overwritten.
func (a *Assistant) UpdateEvent(ctx context.Context, req *UpdateEventRequest) OperationResult {
	if strings.TrimSpace(req.EventID) == "" {
		return failure(ErrorKindValidation, "An event ID is required to update an event.")
	}

	current, err := a.calendar.GetEvent(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, calendar.ErrEventNotFound) {
			return failure(ErrorKindNotFound, fmt.Sprintf("Event with ID '%s' not found.", req.EventID))
		}
		return failure(classifyError(err), providerMessage("updating the event", err))
	}

	update := &calendar.UpdateEvent{
		Summary:     req.NewSummary.ptr(),
		Description: req.NewDescription.ptr(),
		Location:    req.NewLocation.ptr(),
	}

	rng, err := a.reconciler.ReconcilePatch(current.Range, req.NewStartTime, req.NewEndTime, req.NewDurationMinutes)
	if err != nil {
		return failure(classifyError(err), patchTimingMessage(err, req))
	}
	if rng != nil {
		update.Start = &rng.Start
		update.End = &rng.End
	}

	if !update.HasChanges() {
		return failure(ErrorKindValidation, "No changes specified for the event. Please provide fields to update.")
	}

	updated, err := a.calendar.PatchEvent(ctx, req.EventID, update)
	if err != nil {
		if errors.Is(err, calendar.ErrEventNotFound) {
			return failure(ErrorKindNotFound, fmt.Sprintf("Event with ID '%s' not found.", req.EventID))
		}
		return failure(classifyError(err), providerMessage("updating the event", err))
	}

	slog.Info("event updated",
		"event_id", updated.ID,
		"summary", sanitizeForLog(updated.Summary, maxSummaryLengthForLog),
		"timing_changed", rng != nil,
	)

	return successWithLink(
		fmt.Sprintf("Event '%s' updated successfully. View it here: %s", updated.Summary, updated.Link),
		updated.Link,
	)
}

// CancelEvent deletes an event, forwarding the notification flag.
func (a *Assistant) CancelEvent(ctx context.Context, req *CancelEventRequest) OperationResult {
	if strings.TrimSpace(req.EventID) == "" {
		return failure(ErrorKindValidation, "An event ID is required to cancel an event.")
	}

	if err := a.calendar.DeleteEvent(ctx, req.EventID, req.SendNotifications); err != nil {
		if errors.Is(err, calendar.ErrEventNotFound) {
			return failure(ErrorKindNotFound,
				fmt.Sprintf("Event with ID '%s' not found. Cannot cancel.", req.EventID))
		}
		return failure(classifyError(err), providerMessage("canceling the event", err))
	}

	slog.Info("event cancelled", "event_id", req.EventID, "notified", req.SendNotifications)

	return success(fmt.Sprintf("Event with ID '%s' cancelled successfully.", req.EventID))
}

// formatEventStart renders an event start for listing: a date-only form for
// all-day events, date plus clock time otherwise.
func (a *Assistant) formatEventStart(ev *calendar.EventSummary) string {
	start := ev.Start.In(a.timezone)
	if ev.AllDay || isMidnight(start) {
		return start.Format("2006-01-02") + " (All-day)"
	}
	return start.Format("2006-01-02 03:04 PM MST")
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// newTimingMessage builds the user-facing sentence for a create-time
// reconciliation failure.
func newTimingMessage(err error, startExpr string, endExpr *string) string {
	var rerr *ReconciliationError
	if !errors.As(err, &rerr) {
		return fmt.Sprintf("Could not work out the event timing: %v.", err)
	}

	switch rerr.Reason {
	case ReasonNonPositiveDuration:
		return "Event duration must be positive."
	case ReasonEndBeforeStart:
		return fmt.Sprintf("The event's end time (%s) must be after its start time (%s).",
			rerr.End.Format(time.RFC3339), rerr.Start.Format(time.RFC3339))
	default:
		if rerr.Field == "start time" {
			return fmt.Sprintf("Could not understand the start time: '%s'. Please provide a clearer date and time (e.g., 'June 5th 2025 at 2pm' or '2025-06-05T14:00:00').", startExpr)
		}
		end := ""
		if endExpr != nil {
			end = *endExpr
		}
		return fmt.Sprintf("Could not understand the end time: '%s'.", end)
	}
}

// patchTimingMessage builds the user-facing sentence for an update-time
// reconciliation failure.
func patchTimingMessage(err error, req *UpdateEventRequest) string {
	var rerr *ReconciliationError
	if !errors.As(err, &rerr) {
		return fmt.Sprintf("Could not work out the new event timing: %v.", err)
	}

	switch rerr.Reason {
	case ReasonNonPositiveDuration:
		return "New duration must be positive."
	case ReasonEndBeforeStart:
		return fmt.Sprintf("The event's new end time (%s) must be after its start time (%s).",
			rerr.End.Format(time.RFC3339), rerr.Start.Format(time.RFC3339))
	default:
		if rerr.Field == "new start time" && req.NewStartTime != nil {
			return fmt.Sprintf("Could not understand the new start time: '%s'.", *req.NewStartTime)
		}
		end := ""
		if req.NewEndTime != nil {
			end = *req.NewEndTime
		}
		return fmt.Sprintf("Could not understand the new end time: '%s'.", end)
	}
}

// providerMessage renders a provider failure as a plain sentence, keeping
// the provider-supplied reason when one is available.
func providerMessage(op string, err error) string {
	var perr *calendar.ProviderError
	if errors.As(err, &perr) {
		return fmt.Sprintf("Calendar provider error while %s: %s.", op, perr.Reason)
	}
	return fmt.Sprintf("An unexpected error occurred while %s: %v.", op, err)
}

// sanitizeForLog truncates potentially sensitive values for audit logging.
func sanitizeForLog(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "...[truncated]"
}
