package assistant

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jshargo/google-calendar-agent/plugin/nltime"
	"github.com/jshargo/google-calendar-agent/server/service/calendar"
)

func newTestReconciler(t *testing.T) (*Reconciler, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Fixed "now": Wednesday, June 4, 2025 10:30.
	now := time.Date(2025, 6, 4, 10, 30, 0, 0, loc)
	resolver := nltime.NewResolver(loc).WithNow(func() time.Time { return now })
	return NewReconciler(resolver), loc
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestReconcileNew_DefaultDuration(t *testing.T) {
	r, loc := newTestReconciler(t)

	rng, err := r.ReconcileNew("2025-06-05 14:00", nil, nil)
	require.NoError(t, err)
	assert.True(t, rng.Start.Equal(time.Date(2025, 6, 5, 14, 0, 0, 0, loc)))
	assert.Equal(t, time.Hour, rng.Duration())
}

func TestReconcileNew_ConfiguredDefaultDuration(t *testing.T) {
	r, _ := newTestReconciler(t)
	r = r.WithDefaultDuration(90 * time.Minute)

	rng, err := r.ReconcileNew("2025-06-05 14:00", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, rng.Duration())

	// Non-positive configuration falls back to the standard default.
	rng, err = r.WithDefaultDuration(0).ReconcileNew("2025-06-05 14:00", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultEventDuration, rng.Duration())
}

func TestReconcileNew_ExplicitEnd(t *testing.T) {
	r, loc := newTestReconciler(t)

	rng, err := r.ReconcileNew("2025-06-05 14:00", strPtr("2025-06-05 16:30"), nil)
	require.NoError(t, err)
	assert.True(t, rng.End.Equal(time.Date(2025, 6, 5, 16, 30, 0, 0, loc)))
}

func TestReconcileNew_ExplicitDuration(t *testing.T) {
	r, _ := newTestReconciler(t)

	rng, err := r.ReconcileNew("2025-06-05 14:00", nil, intPtr(90))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, rng.Duration())
}

func TestReconcileNew_EndWinsOverDuration(t *testing.T) {
	r, loc := newTestReconciler(t)

	rng, err := r.ReconcileNew("2025-06-05 14:00", strPtr("2025-06-05 15:30"), intPtr(240))
	require.NoError(t, err)
	assert.True(t, rng.End.Equal(time.Date(2025, 6, 5, 15, 30, 0, 0, loc)))
}

func TestReconcileNew_Errors(t *testing.T) {
	r, _ := newTestReconciler(t)

	tests := []struct {
		name       string
		startExpr  string
		endExpr    *string
		duration   *int
		wantField  string
		wantReason ReconcileReason
	}{
		{"unresolvable start", "gibberish", nil, nil, "start time", ReasonUnresolvable},
		{"unresolvable end", "2025-06-05 14:00", strPtr("gibberish"), nil, "end time", ReasonUnresolvable},
		{"zero duration", "2025-06-05 14:00", nil, intPtr(0), "duration", ReasonNonPositiveDuration},
		{"negative duration", "2025-06-05 14:00", nil, intPtr(-30), "duration", ReasonNonPositiveDuration},
		{"end before start", "2025-06-05 14:00", strPtr("2025-06-05 13:00"), nil, "end time", ReasonEndBeforeStart},
		{"end equals start", "2025-06-05 14:00", strPtr("2025-06-05 14:00"), nil, "end time", ReasonEndBeforeStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ReconcileNew(tt.startExpr, tt.endExpr, tt.duration)
			require.Error(t, err)

			var recErr *ReconciliationError
			require.True(t, errors.As(err, &recErr))
			assert.Equal(t, tt.wantField, recErr.Field)
			assert.Equal(t, tt.wantReason, recErr.Reason)
		})
	}
}

func TestReconcileNew_UnresolvableWrapsResolutionError(t *testing.T) {
	r, _ := newTestReconciler(t)

	_, err := r.ReconcileNew("gibberish", nil, nil)
	require.Error(t, err)

	var resErr *nltime.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "gibberish", resErr.Expr)
}

func TestReconcilePatch_NothingToChange(t *testing.T) {
	r, loc := newTestReconciler(t)
	current := calendar.TimeRange{
		Start: time.Date(2025, 6, 5, 10, 0, 0, 0, loc),
		End:   time.Date(2025, 6, 5, 11, 0, 0, 0, loc),
	}

	rng, err := r.ReconcilePatch(current, nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, rng)
}

func TestReconcilePatch_StartMovePreservesDuration(t *testing.T) {
	r, loc := newTestReconciler(t)
	current := calendar.TimeRange{
		Start: time.Date(2025, 6, 5, 10, 0, 0, 0, loc),
		End:   time.Date(2025, 6, 5, 11, 0, 0, 0, loc),
	}

	rng, err := r.ReconcilePatch(current, strPtr("2025-06-05 12:00"), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.True(t, rng.Start.Equal(time.Date(2025, 6, 5, 12, 0, 0, 0, loc)))
	assert.True(t, rng.End.Equal(time.Date(2025, 6, 5, 13, 0, 0, 0, loc)))
}

func TestReconcilePatch_DurationAnchorsStart(t *testing.T) {
	r, loc := newTestReconciler(t)
	current := calendar.TimeRange{
		Start: time.Date(2025, 6, 5, 10, 0, 0, 0, loc),
		End:   time.Date(2025, 6, 5, 11, 0, 0, 0, loc),
	}

	rng, err := r.ReconcilePatch(current, nil, nil, intPtr(30))
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.True(t, rng.Start.Equal(current.Start))
	assert.True(t, rng.End.Equal(time.Date(2025, 6, 5, 10, 30, 0, 0, loc)))
}

func TestReconcilePatch_EndAnchorsStart(t *testing.T) {
	r, loc := newTestReconciler(t)
	current := calendar.TimeRange{
		Start: time.Date(2025, 6, 5, 10, 0, 0, 0, loc),
		End:   time.Date(2025, 6, 5, 11, 0, 0, 0, loc),
	}

	rng, err := r.ReconcilePatch(current, nil, strPtr("2025-06-05 12:30"), nil)
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.True(t, rng.Start.Equal(current.Start))
	assert.True(t, rng.End.Equal(time.Date(2025, 6, 5, 12, 30, 0, 0, loc)))
}

func TestReconcilePatch_StartAndEndTogether(t *testing.T) {
	r, loc := newTestReconciler(t)
	current := calendar.TimeRange{
		Start: time.Date(2025, 6, 5, 10, 0, 0, 0, loc),
		End:   time.Date(2025, 6, 5, 11, 0, 0, 0, loc),
	}

	rng, err := r.ReconcilePatch(current, strPtr("2025-06-06 09:00"), strPtr("2025-06-06 09:45"), nil)
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, 45*time.Minute, rng.Duration())
}

func TestReconcilePatch_Errors(t *testing.T) {
	r, loc := newTestReconciler(t)
	current := calendar.TimeRange{
		Start: time.Date(2025, 6, 5, 10, 0, 0, 0, loc),
		End:   time.Date(2025, 6, 5, 11, 0, 0, 0, loc),
	}

	tests := []struct {
		name       string
		newStart   *string
		newEnd     *string
		newDur     *int
		wantField  string
		wantReason ReconcileReason
	}{
		{"unresolvable new start", strPtr("gibberish"), nil, nil, "new start time", ReasonUnresolvable},
		{"unresolvable new end", nil, strPtr("gibberish"), nil, "new end time", ReasonUnresolvable},
		{"zero new duration", nil, nil, intPtr(0), "new duration", ReasonNonPositiveDuration},
		{"new end before current start", nil, strPtr("2025-06-05 09:00"), nil, "end time", ReasonEndBeforeStart},
		{"new end equals current start", nil, strPtr("2025-06-05 10:00"), nil, "end time", ReasonEndBeforeStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ReconcilePatch(current, tt.newStart, tt.newEnd, tt.newDur)
			require.Error(t, err)

			var recErr *ReconciliationError
			require.True(t, errors.As(err, &recErr))
			assert.Equal(t, tt.wantField, recErr.Field)
			assert.Equal(t, tt.wantReason, recErr.Reason)
		})
	}
}
