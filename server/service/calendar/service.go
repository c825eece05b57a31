package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/teambition/rrule-go"

	"github.com/jshargo/google-calendar-agent/store"
)

const (
	// expansionHorizon bounds recurrence expansion when the listing window
	// is open-ended.
	expansionHorizon = 365 * 24 * time.Hour

	// maxOccurrencesPerEvent is a safety cap against runaway recurrence
	// rules.
	maxOccurrencesPerEvent = 1000
)

// LocalService implements Service on top of the local event store. It stands
// in for a remote provider: it owns all storage I/O and assigns event
// identifiers and links.
type LocalService struct {
	store       *store.Store
	instanceURL string
}

// NewLocalService creates a local calendar provider. instanceURL is the base
// for event links and may be empty.
func NewLocalService(st *store.Store, instanceURL string) *LocalService {
	return &LocalService{
		store:       st,
		instanceURL: strings.TrimRight(instanceURL, "/"),
	}
}

// InsertEvent stores a new event under a fresh UID.
func (s *LocalService) InsertEvent(ctx context.Context, draft *EventDraft) (*EventSnapshot, error) {
	event := &store.Event{
		UID:            shortuuid.New(),
		Summary:        draft.Summary,
		Description:    draft.Description,
		Location:       draft.Location,
		StartTs:        draft.Range.Start.Unix(),
		EndTs:          draft.Range.End.Unix(),
		AllDay:         draft.AllDay,
		Timezone:       draft.Range.Start.Location().String(),
		RecurrenceRule: draft.RecurrenceRule,
	}

	created, err := s.store.CreateEvent(ctx, event)
	if err != nil {
		return nil, &ProviderError{Reason: "failed to store event", Err: err}
	}

	return s.snapshot(created), nil
}

// GetEvent returns the event with the given UID.
func (s *LocalService) GetEvent(ctx context.Context, id string) (*EventSnapshot, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(event), nil
}

// ListEvents returns occurrences overlapping the window, expanding
// recurring events, ordered by start time ascending.
func (s *LocalService) ListEvents(ctx context.Context, req *ListRequest) ([]*EventSummary, error) {
	find := &store.FindEvent{}
	minTs := req.TimeMin.Unix()
	find.StartTs = &minTs
	if req.TimeMax != nil {
		maxTs := req.TimeMax.Unix()
		find.EndTs = &maxTs
	}

	events, err := s.store.ListEvents(ctx, find)
	if err != nil {
		return nil, &ProviderError{Reason: "failed to query events", Err: err}
	}

	// An open-ended window anchors the expansion horizon at the present so
	// a far-past TimeMin still covers current and upcoming occurrences.
	windowEnd := req.TimeMin.Add(expansionHorizon)
	if req.TimeMax != nil {
		windowEnd = *req.TimeMax
	} else if now := time.Now(); now.After(req.TimeMin) {
		windowEnd = now.Add(expansionHorizon)
	}

	var out []*EventSummary
	for _, event := range events {
		if req.Query != "" && !matchesStoredQuery(event, req.Query) {
			continue
		}
		if event.RecurrenceRule == nil {
			out = append(out, s.summary(event, event.StartTs, event.EndTs, false))
			continue
		}
		occurrences, err := s.expand(event, req.TimeMin, windowEnd)
		if err != nil {
			slog.Warn("skipping unparseable recurrence rule",
				"event_uid", event.UID,
				"rule", *event.RecurrenceRule,
				"error", err)
			continue
		}
		out = append(out, occurrences...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if req.MaxResults > 0 && len(out) > req.MaxResults {
		out = out[:req.MaxResults]
	}
	return out, nil
}

// PatchEvent applies a partial update to the event with the given UID.
func (s *LocalService) PatchEvent(ctx context.Context, id string, update *UpdateEvent) (*EventSnapshot, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	storeUpdate := &store.UpdateEvent{
		ID:          event.ID,
		Summary:     update.Summary,
		Description: update.Description,
		Location:    update.Location,
	}
	if update.Start != nil {
		startTs := update.Start.Unix()
		storeUpdate.StartTs = &startTs
		tz := update.Start.Location().String()
		storeUpdate.Timezone = &tz
	}
	if update.End != nil {
		endTs := update.End.Unix()
		storeUpdate.EndTs = &endTs
	}

	if err := s.store.UpdateEvent(ctx, storeUpdate); err != nil {
		return nil, &ProviderError{Reason: "failed to update event", Err: err}
	}

	updated, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(updated), nil
}

// DeleteEvent removes the event with the given UID. The notify flag is
// accepted for interface parity; a local calendar has no attendees to
// notify.
func (s *LocalService) DeleteEvent(ctx context.Context, id string, notify bool) error {
	event, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, &store.DeleteEvent{ID: event.ID}); err != nil {
		return &ProviderError{Reason: "failed to delete event", Err: err}
	}
	slog.Debug("event deleted", "event_uid", id, "notify", notify)
	return nil
}

func (s *LocalService) find(ctx context.Context, uid string) (*store.Event, error) {
	event, err := s.store.GetEvent(ctx, &store.FindEvent{UID: &uid})
	if err != nil {
		return nil, &ProviderError{Reason: "failed to load event", Err: err}
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	return event, nil
}

// expand materializes a recurring event's occurrences within the window.
func (s *LocalService) expand(event *store.Event, windowStart, windowEnd time.Time) ([]*EventSummary, error) {
	rule, err := rrule.StrToRRule(*event.RecurrenceRule)
	if err != nil {
		return nil, err
	}

	loc := s.location(event)
	baseStart := time.Unix(event.StartTs, 0).In(loc)
	duration := time.Duration(event.EndTs-event.StartTs) * time.Second
	rule.DTStart(baseStart)

	// Expand against the window shifted back by the duration so that
	// occurrences straddling the window start are kept.
	times := rule.Between(windowStart.Add(-duration).In(loc), windowEnd.In(loc), true)
	if len(times) > maxOccurrencesPerEvent {
		times = times[:maxOccurrencesPerEvent]
	}

	out := make([]*EventSummary, 0, len(times))
	for _, start := range times {
		end := start.Add(duration)
		if !end.After(windowStart) {
			continue
		}
		out = append(out, s.summary(event, start.Unix(), end.Unix(), true))
	}
	return out, nil
}

func (s *LocalService) summary(event *store.Event, startTs, endTs int64, recurring bool) *EventSummary {
	loc := s.location(event)
	return &EventSummary{
		ID:        event.UID,
		Summary:   event.Summary,
		Start:     time.Unix(startTs, 0).In(loc),
		End:       time.Unix(endTs, 0).In(loc),
		AllDay:    event.AllDay,
		Recurring: recurring,
	}
}

func (s *LocalService) snapshot(event *store.Event) *EventSnapshot {
	loc := s.location(event)
	return &EventSnapshot{
		ID:          event.UID,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Range: TimeRange{
			Start: time.Unix(event.StartTs, 0).In(loc),
			End:   time.Unix(event.EndTs, 0).In(loc),
		},
		AllDay: event.AllDay,
		Link:   s.link(event.UID),
	}
}

func (s *LocalService) location(event *store.Event) *time.Location {
	if event.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(event.Timezone)
	if err != nil {
		slog.Warn("invalid event timezone, using UTC",
			"timezone", event.Timezone,
			"error", err)
		return time.UTC
	}
	return loc
}

func (s *LocalService) link(uid string) string {
	if s.instanceURL == "" {
		return fmt.Sprintf("local://events/%s", uid)
	}
	return fmt.Sprintf("%s/events/%s", s.instanceURL, uid)
}

func matchesStoredQuery(event *store.Event, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(event.Summary), q) ||
		strings.Contains(strings.ToLower(event.Description), q) ||
		strings.Contains(strings.ToLower(event.Location), q)
}

// Ensure LocalService implements Service.
var _ Service = (*LocalService)(nil)
