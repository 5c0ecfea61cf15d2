package relay

import (
	"context"
)

// Kind discriminates the three signal shapes published for a turn.
type Kind string

const (
	KindChunk Kind = "chunk"
	KindDone  Kind = "done"
	KindError Kind = "error"
)

// SignalError is one structured error entry carried by an error signal.
type SignalError struct {
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}

// Signal is one unit published to the real-time channel for a turn: a chunk
// carrying a delta and its index, a done marker, or a structured error.
type Signal struct {
	Kind Kind

	ConversationID string
	UserMessageID  string

	// chunk
	Text       string
	Index      int
	DeltaIndex int

	// done
	DoneAtIndex int
	StopReason  string

	// error
	Errors []SignalError
}

// Channel delivers signals to subscribers. Fan-out is the channel's concern;
// the relay only sends.
type Channel interface {
	Publish(ctx context.Context, sig Signal) error
}

// ChunkSignal builds the chunk signal for the turn's current block index.
func ChunkSignal(t *Turn, text string) Signal {
	return Signal{
		Kind:           KindChunk,
		ConversationID: t.ConversationID,
		UserMessageID:  t.UserMessageID,
		Text:           text,
		Index:          t.BlockIndex,
		DeltaIndex:     0,
	}
}

// DoneSignal builds the terminal success signal carrying the final block index.
func DoneSignal(t *Turn, stopReason string) Signal {
	return Signal{
		Kind:           KindDone,
		ConversationID: t.ConversationID,
		UserMessageID:  t.UserMessageID,
		DoneAtIndex:    t.BlockIndex,
		StopReason:     stopReason,
	}
}

// ErrorSignal builds the terminal failure signal.
func ErrorSignal(t *Turn, cause error) Signal {
	msg := "failed to generate response"
	if cause != nil {
		msg = cause.Error()
	}
	return Signal{
		Kind:           KindError,
		ConversationID: t.ConversationID,
		UserMessageID:  t.UserMessageID,
		Errors: []SignalError{
			{ErrorType: "ProcessingError", Message: msg},
		},
	}
}

// WireInput maps the signal onto the publish channel's input fields. Only the
// fields meaningful for the signal's kind are present.
func (s Signal) WireInput() map[string]any {
	input := map[string]any{
		"conversationId":          s.ConversationID,
		"associatedUserMessageId": s.UserMessageID,
	}
	switch s.Kind {
	case KindChunk:
		input["contentBlockText"] = s.Text
		input["contentBlockIndex"] = s.Index
		input["contentBlockDeltaIndex"] = s.DeltaIndex
	case KindDone:
		input["contentBlockDoneAtIndex"] = s.DoneAtIndex
		input["stopReason"] = s.StopReason
	case KindError:
		errs := make([]map[string]any, 0, len(s.Errors))
		for _, e := range s.Errors {
			errs = append(errs, map[string]any{
				"errorType": e.ErrorType,
				"message":   e.Message,
			})
		}
		input["errors"] = errs
	}
	return input
}
