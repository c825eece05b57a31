package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Tool is the surface an agent loop calls operations through: JSON in,
// display text out. The loop itself (intent classification, field
// extraction) lives outside this module.
type Tool interface {
	// Name returns the tool name.
	Name() string

	// Description returns the tool description for the agent.
	Description() string

	// InputType returns the expected input schema.
	InputType() map[string]interface{}

	// Run executes the tool with a JSON-encoded input.
	Run(ctx context.Context, inputJSON string) (string, error)
}

// CreateEventTool creates a calendar event from already-extracted fields.
type CreateEventTool struct {
	assistant *Assistant
	session   *ConversationContext
}

// NewCreateEventTool creates the tool. The session ledger may be nil.
func NewCreateEventTool(assistant *Assistant, session *ConversationContext) *CreateEventTool {
	return &CreateEventTool{assistant: assistant, session: session}
}

// Name returns the tool name.
func (t *CreateEventTool) Name() string {
	return "create_calendar_event"
}

// Description returns the tool description for the agent.
func (t *CreateEventTool) Description() string {
	return `Create an event on the user's calendar.
Provide the event summary, a start date/time expression (e.g. "next Tuesday at 10am", "2025-12-25T09:00:00"), and either a duration in minutes or an end expression.`
}

// InputType returns the expected input schema.
func (t *CreateEventTool) InputType() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"summary": map[string]interface{}{
				"type":        "string",
				"description": "Event title",
			},
			"start_time": map[string]interface{}{
				"type":        "string",
				"description": "Start date/time expression (natural language or ISO 8601)",
			},
			"end_time": map[string]interface{}{
				"type":        "string",
				"description": "End date/time expression (optional; provide this OR duration_minutes)",
			},
			"duration_minutes": map[string]interface{}{
				"type":        "integer",
				"description": "Event duration in minutes (optional)",
			},
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Event description (optional)",
			},
			"location": map[string]interface{}{
				"type":        "string",
				"description": "Event location (optional)",
			},
		},
		"required": []string{"summary", "start_time"},
	}
}

// Run executes the tool.
func (t *CreateEventTool) Run(ctx context.Context, inputJSON string) (string, error) {
	var input struct {
		Summary         string  `json:"summary"`
		StartTime       string  `json:"start_time"`
		EndTime         *string `json:"end_time,omitempty"`
		DurationMinutes *int    `json:"duration_minutes,omitempty"`
		Description     string  `json:"description,omitempty"`
		Location        string  `json:"location,omitempty"`
	}
	if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
		return "", fmt.Errorf("invalid JSON input: %w", err)
	}

	res := t.assistant.CreateEvent(ctx, &CreateEventRequest{
		Summary:         input.Summary,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		DurationMinutes: input.DurationMinutes,
		Description:     input.Description,
		Location:        input.Location,
	})
	recordToolTurn(t.session, t.Name(), inputJSON, res)
	return res.Message, nil
}

// ListEventsTool lists events by date range and free-text query.
type ListEventsTool struct {
	assistant *Assistant
	session   *ConversationContext
}

// NewListEventsTool creates the tool. The session ledger may be nil.
func NewListEventsTool(assistant *Assistant, session *ConversationContext) *ListEventsTool {
	return &ListEventsTool{assistant: assistant, session: session}
}

// Name returns the tool name.
func (t *ListEventsTool) Name() string {
	return "list_calendar_events"
}

// Description returns the tool description for the agent.
func (t *ListEventsTool) Description() string {
	return `List calendar events within a date range, optionally filtered by a text query.
Use this to find event IDs for updating or canceling, or to get a calendar overview.
Returns one line per event with its summary, start time and ID.`
}

// InputType returns the expected input schema.
func (t *ListEventsTool) InputType() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"time_min": map[string]interface{}{
				"type":        "string",
				"description": "Start of the range (e.g. \"today\", \"2025-06-01\"); defaults to now",
			},
			"time_max": map[string]interface{}{
				"type":        "string",
				"description": "End of the range (e.g. \"end of today\", \"next Monday at 5pm\")",
			},
			"search_query": map[string]interface{}{
				"type":        "string",
				"description": "Text to search in summaries, descriptions and locations (optional)",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of events to return (default 10, max 250)",
			},
		},
	}
}

// Run executes the tool.
func (t *ListEventsTool) Run(ctx context.Context, inputJSON string) (string, error) {
	var input struct {
		TimeMin     string `json:"time_min,omitempty"`
		TimeMax     string `json:"time_max,omitempty"`
		SearchQuery string `json:"search_query,omitempty"`
		MaxResults  int    `json:"max_results,omitempty"`
	}
	if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
		return "", fmt.Errorf("invalid JSON input: %w", err)
	}

	res := t.assistant.ListEvents(ctx, &ListEventsRequest{
		TimeMin:    input.TimeMin,
		TimeMax:    input.TimeMax,
		Query:      input.SearchQuery,
		MaxResults: input.MaxResults,
	})
	recordToolTurn(t.session, t.Name(), inputJSON, res)
	return res.Message, nil
}

// UpdateEventTool patches an existing event.
type UpdateEventTool struct {
	assistant *Assistant
	session   *ConversationContext
}

// NewUpdateEventTool creates the tool. The session ledger may be nil.
func NewUpdateEventTool(assistant *Assistant, session *ConversationContext) *UpdateEventTool {
	return &UpdateEventTool{assistant: assistant, session: session}
}

// Name returns the tool name.
func (t *UpdateEventTool) Name() string {
	return "update_calendar_event"
}

// Description returns the tool description for the agent.
func (t *UpdateEventTool) Description() string {
	return `Update an existing calendar event by its ID (find the ID with list_calendar_events).
Only the provided fields change. Pass an empty string for description or location to clear it.
To reschedule, provide new_start_time and either new_end_time or new_duration_minutes.`
}

// InputType returns the expected input schema.
func (t *UpdateEventTool) InputType() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"event_id": map[string]interface{}{
				"type":        "string",
				"description": "ID of the event to update",
			},
			"new_summary": map[string]interface{}{
				"type":        "string",
				"description": "New title (optional)",
			},
			"new_start_time": map[string]interface{}{
				"type":        "string",
				"description": "New start date/time expression (optional)",
			},
			"new_end_time": map[string]interface{}{
				"type":        "string",
				"description": "New end date/time expression (optional)",
			},
			"new_duration_minutes": map[string]interface{}{
				"type":        "integer",
				"description": "New duration in minutes (optional)",
			},
			"new_description": map[string]interface{}{
				"type":        "string",
				"description": "New description; empty string clears it (optional)",
			},
			"new_location": map[string]interface{}{
				"type":        "string",
				"description": "New location; empty string clears it (optional)",
			},
		},
		"required": []string{"event_id"},
	}
}

// Run executes the tool. Absent JSON fields stay absent; present-but-empty
// strings clear the target field.
func (t *UpdateEventTool) Run(ctx context.Context, inputJSON string) (string, error) {
	var input struct {
		EventID            string  `json:"event_id"`
		NewSummary         *string `json:"new_summary,omitempty"`
		NewStartTime       *string `json:"new_start_time,omitempty"`
		NewEndTime         *string `json:"new_end_time,omitempty"`
		NewDurationMinutes *int    `json:"new_duration_minutes,omitempty"`
		NewDescription     *string `json:"new_description,omitempty"`
		NewLocation        *string `json:"new_location,omitempty"`
	}
	if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
		return "", fmt.Errorf("invalid JSON input: %w", err)
	}

	req := &UpdateEventRequest{
		EventID:            input.EventID,
		NewSummary:         fieldFromPointer(input.NewSummary),
		NewDescription:     fieldFromPointer(input.NewDescription),
		NewLocation:        fieldFromPointer(input.NewLocation),
		NewStartTime:       input.NewStartTime,
		NewEndTime:         input.NewEndTime,
		NewDurationMinutes: input.NewDurationMinutes,
	}

	res := t.assistant.UpdateEvent(ctx, req)
	recordToolTurn(t.session, t.Name(), inputJSON, res)
	return res.Message, nil
}

// CancelEventTool deletes an event.
type CancelEventTool struct {
	assistant *Assistant
	session   *ConversationContext
}

// NewCancelEventTool creates the tool. The session ledger may be nil.
func NewCancelEventTool(assistant *Assistant, session *ConversationContext) *CancelEventTool {
	return &CancelEventTool{assistant: assistant, session: session}
}

// Name returns the tool name.
func (t *CancelEventTool) Name() string {
	return "cancel_calendar_event"
}

// Description returns the tool description for the agent.
func (t *CancelEventTool) Description() string {
	return `Cancel (delete) a calendar event by its ID.
If the user refers to an event vaguely, first use list_calendar_events to find and confirm the ID.`
}

// InputType returns the expected input schema.
func (t *CancelEventTool) InputType() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"event_id": map[string]interface{}{
				"type":        "string",
				"description": "ID of the event to cancel",
			},
			"send_notifications": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether to notify attendees (default true)",
			},
		},
		"required": []string{"event_id"},
	}
}

// Run executes the tool.
func (t *CancelEventTool) Run(ctx context.Context, inputJSON string) (string, error) {
	input := struct {
		EventID           string `json:"event_id"`
		SendNotifications *bool  `json:"send_notifications,omitempty"`
	}{}
	if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
		return "", fmt.Errorf("invalid JSON input: %w", err)
	}

	notify := true
	if input.SendNotifications != nil {
		notify = *input.SendNotifications
	}

	res := t.assistant.CancelEvent(ctx, &CancelEventRequest{
		EventID:           input.EventID,
		SendNotifications: notify,
	})
	recordToolTurn(t.session, t.Name(), inputJSON, res)
	return res.Message, nil
}

// Tools returns the full tool set wired to one assistant and session.
func Tools(assistant *Assistant, session *ConversationContext) []Tool {
	return []Tool{
		NewCreateEventTool(assistant, session),
		NewListEventsTool(assistant, session),
		NewUpdateEventTool(assistant, session),
		NewCancelEventTool(assistant, session),
	}
}

func fieldFromPointer(p *string) Field {
	if p == nil {
		return Field{}
	}
	return SetField(*p)
}

func recordToolTurn(session *ConversationContext, tool, input string, res OperationResult) {
	if session == nil {
		return
	}
	session.RecordTurn(Turn{
		Tool:      tool,
		Input:     input,
		Output:    res.Message,
		Success:   res.Success,
		Timestamp: time.Now(),
	})
}
