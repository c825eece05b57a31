package assistant

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxRecordedTurns bounds the per-session ledger.
const maxRecordedTurns = 50

// ConversationContext is the explicit per-session state passed into the
// tool adapters. Each session owns its own value; nothing here is
// process-wide, so unrelated sessions can run concurrently.
type ConversationContext struct {
	mu sync.Mutex

	// SessionID identifies the conversation.
	SessionID string
	// Timezone is the IANA zone name the session resolves times in.
	Timezone string

	turns []Turn
}

// Turn records one tool invocation within a session.
type Turn struct {
	Tool      string
	Input     string
	Output    string
	Success   bool
	Timestamp time.Time
}

// NewConversationContext creates a session ledger with a fresh session ID.
func NewConversationContext(timezone string) *ConversationContext {
	return &ConversationContext{
		SessionID: uuid.NewString(),
		Timezone:  timezone,
	}
}

// RecordTurn appends a turn to the ledger, evicting the oldest entries past
// the cap.
func (c *ConversationContext) RecordTurn(turn Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	c.turns = append(c.turns, turn)
	if len(c.turns) > maxRecordedTurns {
		c.turns = c.turns[len(c.turns)-maxRecordedTurns:]
	}
}

// Turns returns a copy of the recorded turns, oldest first.
func (c *ConversationContext) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}
