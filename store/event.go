package store

import (
	"context"
)

// Event is the stored representation of a calendar event. Timestamps are
// unix seconds in UTC; Timezone records the zone the event was created in.
type Event struct {
	ID        int32
	UID       string
	CreatedTs int64
	UpdatedTs int64

	Summary     string
	Description string
	Location    string
	StartTs     int64
	EndTs       int64
	AllDay      bool
	Timezone    string

	// RecurrenceRule is an optional RFC 5545 RRULE body; occurrences are
	// expanded at query time, never materialized.
	RecurrenceRule *string
}

// FindEvent is the find condition for events.
type FindEvent struct {
	ID  *int32
	UID *string

	// Window filters select events overlapping [StartTs, EndTs). Recurring
	// events are matched by the driver on their base start only; window
	// expansion is the service's job.
	StartTs *int64
	EndTs   *int64

	Limit  *int
	Offset *int
}

// UpdateEvent is the update request for an event; nil fields are unchanged.
type UpdateEvent struct {
	ID             int32
	Summary        *string
	Description    *string
	Location       *string
	StartTs        *int64
	EndTs          *int64
	AllDay         *bool
	Timezone       *string
	RecurrenceRule *string
}

// DeleteEvent is the delete request for an event.
type DeleteEvent struct {
	ID int32
}

// CreateEvent creates a new event.
func (s *Store) CreateEvent(ctx context.Context, create *Event) (*Event, error) {
	return s.driver.CreateEvent(ctx, create)
}

// ListEvents lists events with filter.
func (s *Store) ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error) {
	return s.driver.ListEvents(ctx, find)
}

// GetEvent gets a single event by find condition. Returns nil when no event
// matches.
func (s *Store) GetEvent(ctx context.Context, find *FindEvent) (*Event, error) {
	list, err := s.driver.ListEvents(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateEvent updates an event.
func (s *Store) UpdateEvent(ctx context.Context, update *UpdateEvent) error {
	return s.driver.UpdateEvent(ctx, update)
}

// DeleteEvent deletes an event.
func (s *Store) DeleteEvent(ctx context.Context, delete *DeleteEvent) error {
	return s.driver.DeleteEvent(ctx, delete)
}
