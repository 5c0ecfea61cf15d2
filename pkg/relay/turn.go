package relay

import (
	"strings"

	"github.com/google/uuid"
)

// Status tracks a turn through its one-directional lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Turn is the unit of work for one user message. It is owned by exactly one
// relay execution and discarded when that execution finishes; nothing about
// it persists beyond the signals it emitted.
type Turn struct {
	// ID identifies this execution in logs; redeliveries of the same user
	// message get distinct turn IDs.
	ID string

	ConversationID string
	UserMessageID  string
	Prompt         string

	Status     Status
	BlockIndex int

	response strings.Builder
}

func NewTurn(conversationID, userMessageID, prompt string) *Turn {
	return &Turn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserMessageID:  userMessageID,
		Prompt:         prompt,
		Status:         StatusPending,
	}
}

// Response returns the model output accumulated so far.
func (t *Turn) Response() string {
	return t.response.String()
}

func (t *Turn) appendResponse(delta string) {
	t.response.WriteString(delta)
}

// Terminal reports whether the turn already reached completed or failed.
func (t *Turn) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}
