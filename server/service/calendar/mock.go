package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MockService is an in-memory Service for testing. Failures can be scripted
// per method, and mutating calls are counted so tests can assert that a
// handler short-circuited without touching the provider.
type MockService struct {
	mu     sync.Mutex
	events map[string]*EventSnapshot
	nextID int

	// Scripted failures; when set, the corresponding method returns the
	// error without touching state.
	InsertErr error
	GetErr    error
	ListErr   error
	PatchErr  error
	DeleteErr error

	// Call counters.
	InsertCalls int
	PatchCalls  int
	DeleteCalls int

	// LastDeleteNotify records the notify flag of the most recent delete.
	LastDeleteNotify bool
}

// NewMockService creates an empty mock provider.
func NewMockService() *MockService {
	return &MockService{events: make(map[string]*EventSnapshot)}
}

// Seed inserts a snapshot directly, returning its ID.
func (m *MockService) Seed(snapshot *EventSnapshot) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if snapshot.ID == "" {
		m.nextID++
		snapshot.ID = fmt.Sprintf("evt-%d", m.nextID)
	}
	if snapshot.Link == "" {
		snapshot.Link = "https://calendar.local/events/" + snapshot.ID
	}
	m.events[snapshot.ID] = snapshot
	return snapshot.ID
}

// InsertEvent creates a new event.
func (m *MockService) InsertEvent(_ context.Context, draft *EventDraft) (*EventSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalls++
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}

	m.nextID++
	id := fmt.Sprintf("evt-%d", m.nextID)
	snapshot := &EventSnapshot{
		ID:          id,
		Summary:     draft.Summary,
		Description: draft.Description,
		Location:    draft.Location,
		Range:       draft.Range,
		AllDay:      draft.AllDay,
		Link:        "https://calendar.local/events/" + id,
	}
	m.events[id] = snapshot
	return cloneSnapshot(snapshot), nil
}

// GetEvent returns the snapshot for id, or ErrEventNotFound.
func (m *MockService) GetEvent(_ context.Context, id string) (*EventSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	snapshot, ok := m.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return cloneSnapshot(snapshot), nil
}

// ListEvents returns events overlapping the window, start ascending.
func (m *MockService) ListEvents(_ context.Context, req *ListRequest) ([]*EventSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	var out []*EventSummary
	for _, ev := range m.events {
		if !ev.Range.End.After(req.TimeMin) {
			continue
		}
		if req.TimeMax != nil && !ev.Range.Start.Before(*req.TimeMax) {
			continue
		}
		if req.Query != "" && !matchesQuery(ev, req.Query) {
			continue
		}
		out = append(out, &EventSummary{
			ID:      ev.ID,
			Summary: ev.Summary,
			Start:   ev.Range.Start,
			End:     ev.Range.End,
			AllDay:  ev.AllDay,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if req.MaxResults > 0 && len(out) > req.MaxResults {
		out = out[:req.MaxResults]
	}
	return out, nil
}

// PatchEvent applies a partial update.
func (m *MockService) PatchEvent(_ context.Context, id string, update *UpdateEvent) (*EventSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PatchCalls++
	if m.PatchErr != nil {
		return nil, m.PatchErr
	}
	snapshot, ok := m.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}

	if update.Summary != nil {
		snapshot.Summary = *update.Summary
	}
	if update.Description != nil {
		snapshot.Description = *update.Description
	}
	if update.Location != nil {
		snapshot.Location = *update.Location
	}
	if update.Start != nil {
		snapshot.Range.Start = *update.Start
	}
	if update.End != nil {
		snapshot.Range.End = *update.End
	}
	return cloneSnapshot(snapshot), nil
}

// DeleteEvent removes an event.
func (m *MockService) DeleteEvent(_ context.Context, id string, notify bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls++
	m.LastDeleteNotify = notify
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

// Event returns the stored snapshot for direct inspection.
func (m *MockService) Event(id string) *EventSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, ok := m.events[id]
	if !ok {
		return nil
	}
	return cloneSnapshot(snapshot)
}

func matchesQuery(ev *EventSnapshot, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(ev.Summary), q) ||
		strings.Contains(strings.ToLower(ev.Description), q) ||
		strings.Contains(strings.ToLower(ev.Location), q)
}

func cloneSnapshot(s *EventSnapshot) *EventSnapshot {
	copied := *s
	return &copied
}

// Ensure MockService implements Service.
var _ Service = (*MockService)(nil)
