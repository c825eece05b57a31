package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jshargo/google-calendar-agent/internal/profile"
	"github.com/jshargo/google-calendar-agent/store"
	"github.com/jshargo/google-calendar-agent/store/db/sqlite"
)

func newTestService(t *testing.T) (*LocalService, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	p := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: ":memory:"}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })

	return NewLocalService(store.New(driver, p), "https://cal.example.com"), loc
}

func insertTestEvent(t *testing.T, svc *LocalService, summary string, start, end time.Time) *EventSnapshot {
	t.Helper()
	snapshot, err := svc.InsertEvent(context.Background(), &EventDraft{
		Summary: summary,
		Range:   TimeRange{Start: start, End: end},
	})
	require.NoError(t, err)
	return snapshot
}

func TestLocalService_InsertAndGet(t *testing.T) {
	svc, loc := newTestService(t)

	created, err := svc.InsertEvent(context.Background(), &EventDraft{
		Summary:     "Team sync",
		Description: "weekly",
		Location:    "room 4",
		Range: TimeRange{
			Start: time.Date(2025, 6, 5, 14, 0, 0, 0, loc),
			End:   time.Date(2025, 6, 5, 15, 0, 0, 0, loc),
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "https://cal.example.com/events/"+created.ID, created.Link)

	got, err := svc.GetEvent(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Team sync", got.Summary)
	assert.Equal(t, "weekly", got.Description)
	assert.Equal(t, "room 4", got.Location)
	assert.True(t, got.Range.Start.Equal(time.Date(2025, 6, 5, 14, 0, 0, 0, loc)))
	assert.True(t, got.Range.End.Equal(time.Date(2025, 6, 5, 15, 0, 0, 0, loc)))
	// The stored timezone survives the round trip.
	assert.Equal(t, "America/New_York", got.Range.Start.Location().String())
}

func TestLocalService_GetMissing(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetEvent(context.Background(), "no-such-uid")
	assert.True(t, errors.Is(err, ErrEventNotFound))
}

func TestLocalService_Patch(t *testing.T) {
	svc, loc := newTestService(t)
	created := insertTestEvent(t, svc, "Old title",
		time.Date(2025, 6, 5, 10, 0, 0, 0, loc),
		time.Date(2025, 6, 5, 11, 0, 0, 0, loc))

	summary := "New title"
	start := time.Date(2025, 6, 5, 12, 0, 0, 0, loc)
	end := time.Date(2025, 6, 5, 13, 0, 0, 0, loc)
	updated, err := svc.PatchEvent(context.Background(), created.ID, &UpdateEvent{
		Summary: &summary,
		Start:   &start,
		End:     &end,
	})
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Summary)
	assert.True(t, updated.Range.Start.Equal(start))
	assert.True(t, updated.Range.End.Equal(end))

	// Untouched fields survive the patch.
	assert.Equal(t, created.ID, updated.ID)
}

func TestLocalService_PatchMissing(t *testing.T) {
	svc, _ := newTestService(t)

	summary := "x"
	_, err := svc.PatchEvent(context.Background(), "no-such-uid", &UpdateEvent{Summary: &summary})
	assert.True(t, errors.Is(err, ErrEventNotFound))
}

func TestLocalService_Delete(t *testing.T) {
	svc, loc := newTestService(t)
	created := insertTestEvent(t, svc, "Team sync",
		time.Date(2025, 6, 5, 10, 0, 0, 0, loc),
		time.Date(2025, 6, 5, 11, 0, 0, 0, loc))

	require.NoError(t, svc.DeleteEvent(context.Background(), created.ID, true))

	_, err := svc.GetEvent(context.Background(), created.ID)
	assert.True(t, errors.Is(err, ErrEventNotFound))

	err = svc.DeleteEvent(context.Background(), created.ID, false)
	assert.True(t, errors.Is(err, ErrEventNotFound))
}

func TestLocalService_ListWindow(t *testing.T) {
	svc, loc := newTestService(t)
	insertTestEvent(t, svc, "Past",
		time.Date(2025, 6, 3, 9, 0, 0, 0, loc),
		time.Date(2025, 6, 3, 10, 0, 0, 0, loc))
	insertTestEvent(t, svc, "Late",
		time.Date(2025, 6, 5, 18, 0, 0, 0, loc),
		time.Date(2025, 6, 5, 19, 0, 0, 0, loc))
	insertTestEvent(t, svc, "Early",
		time.Date(2025, 6, 5, 9, 0, 0, 0, loc),
		time.Date(2025, 6, 5, 10, 0, 0, 0, loc))
	insertTestEvent(t, svc, "Next week",
		time.Date(2025, 6, 10, 9, 0, 0, 0, loc),
		time.Date(2025, 6, 10, 10, 0, 0, 0, loc))

	timeMax := time.Date(2025, 6, 5, 23, 59, 59, 0, loc)
	events, err := svc.ListEvents(context.Background(), &ListRequest{
		TimeMin: time.Date(2025, 6, 4, 0, 0, 0, 0, loc),
		TimeMax: &timeMax,
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Ordered by start time ascending.
	assert.Equal(t, "Early", events[0].Summary)
	assert.Equal(t, "Late", events[1].Summary)
}

func TestLocalService_ListQueryAndLimit(t *testing.T) {
	svc, loc := newTestService(t)
	insertTestEvent(t, svc, "Dentist",
		time.Date(2025, 6, 5, 9, 0, 0, 0, loc),
		time.Date(2025, 6, 5, 10, 0, 0, 0, loc))
	insertTestEvent(t, svc, "Team sync",
		time.Date(2025, 6, 5, 11, 0, 0, 0, loc),
		time.Date(2025, 6, 5, 12, 0, 0, 0, loc))
	insertTestEvent(t, svc, "Team retro",
		time.Date(2025, 6, 5, 13, 0, 0, 0, loc),
		time.Date(2025, 6, 5, 14, 0, 0, 0, loc))

	timeMin := time.Date(2025, 6, 5, 0, 0, 0, 0, loc)

	events, err := svc.ListEvents(context.Background(), &ListRequest{TimeMin: timeMin, Query: "team"})
	require.NoError(t, err)
	require.Len(t, events, 2)

	events, err = svc.ListEvents(context.Background(), &ListRequest{TimeMin: timeMin, MaxResults: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Dentist", events[0].Summary)
}

func TestLocalService_RecurringExpansion(t *testing.T) {
	svc, loc := newTestService(t)

	// Weekly standup starting Monday, June 2, 2025.
	rule := "FREQ=WEEKLY;COUNT=8"
	_, err := svc.InsertEvent(context.Background(), &EventDraft{
		Summary: "Standup",
		Range: TimeRange{
			Start: time.Date(2025, 6, 2, 9, 0, 0, 0, loc),
			End:   time.Date(2025, 6, 2, 10, 0, 0, 0, loc),
		},
		RecurrenceRule: &rule,
	})
	require.NoError(t, err)

	timeMax := time.Date(2025, 6, 30, 23, 59, 59, 0, loc)
	events, err := svc.ListEvents(context.Background(), &ListRequest{
		TimeMin: time.Date(2025, 6, 4, 0, 0, 0, 0, loc),
		TimeMax: &timeMax,
	})
	require.NoError(t, err)

	// June 9, 16, 23 and 30; the June 2 base occurrence ended before the
	// window opened.
	require.Len(t, events, 4)
	for i, wantDay := range []int{9, 16, 23, 30} {
		assert.True(t, events[i].Recurring)
		assert.Equal(t, wantDay, events[i].Start.Day())
		assert.Equal(t, 9, events[i].Start.Hour())
		assert.Equal(t, time.Hour, events[i].End.Sub(events[i].Start))
	}
}

func TestLocalService_RecurringOpenEndedFarPastWindow(t *testing.T) {
	svc, loc := newTestService(t)

	rule := "FREQ=WEEKLY;COUNT=8"
	_, err := svc.InsertEvent(context.Background(), &EventDraft{
		Summary: "Standup",
		Range: TimeRange{
			Start: time.Date(2025, 6, 2, 9, 0, 0, 0, loc),
			End:   time.Date(2025, 6, 2, 10, 0, 0, 0, loc),
		},
		RecurrenceRule: &rule,
	})
	require.NoError(t, err)

	// An epoch-start window with no upper bound still reaches the series:
	// the horizon anchors at the present, not at TimeMin.
	events, err := svc.ListEvents(context.Background(), &ListRequest{
		TimeMin: time.Unix(0, 0).In(loc),
	})
	require.NoError(t, err)
	require.Len(t, events, 8)
	for _, event := range events {
		assert.True(t, event.Recurring)
	}
}

func TestLocalService_RecurringStraddlesWindowStart(t *testing.T) {
	svc, loc := newTestService(t)

	rule := "FREQ=DAILY;COUNT=10"
	_, err := svc.InsertEvent(context.Background(), &EventDraft{
		Summary: "Morning run",
		Range: TimeRange{
			Start: time.Date(2025, 6, 1, 9, 0, 0, 0, loc),
			End:   time.Date(2025, 6, 1, 10, 0, 0, 0, loc),
		},
		RecurrenceRule: &rule,
	})
	require.NoError(t, err)

	// The window opens mid-occurrence; the in-flight occurrence is kept.
	timeMax := time.Date(2025, 6, 5, 12, 0, 0, 0, loc)
	events, err := svc.ListEvents(context.Background(), &ListRequest{
		TimeMin: time.Date(2025, 6, 5, 9, 30, 0, 0, loc),
		TimeMax: &timeMax,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 5, events[0].Start.Day())
	assert.Equal(t, 9, events[0].Start.Hour())
}

func TestLocalService_SkipsUnparseableRule(t *testing.T) {
	svc, loc := newTestService(t)

	rule := "FREQ=NONSENSE"
	_, err := svc.InsertEvent(context.Background(), &EventDraft{
		Summary: "Broken",
		Range: TimeRange{
			Start: time.Date(2025, 6, 5, 9, 0, 0, 0, loc),
			End:   time.Date(2025, 6, 5, 10, 0, 0, 0, loc),
		},
		RecurrenceRule: &rule,
	})
	require.NoError(t, err)
	insertTestEvent(t, svc, "Fine",
		time.Date(2025, 6, 5, 11, 0, 0, 0, loc),
		time.Date(2025, 6, 5, 12, 0, 0, 0, loc))

	events, err := svc.ListEvents(context.Background(), &ListRequest{
		TimeMin: time.Date(2025, 6, 5, 0, 0, 0, 0, loc),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Fine", events[0].Summary)
}

func TestLocalService_LinkWithoutInstanceURL(t *testing.T) {
	loc, err := time.LoadLocation("UTC")
	require.NoError(t, err)

	p := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: ":memory:"}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })
	svc := NewLocalService(store.New(driver, p), "")

	created := insertTestEvent(t, svc, "Team sync",
		time.Date(2025, 6, 5, 10, 0, 0, 0, loc),
		time.Date(2025, 6, 5, 11, 0, 0, 0, loc))
	assert.Equal(t, "local://events/"+created.ID, created.Link)
}
