package dispatch

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// EventKind is the mutation type reported by the store's change feed.
type EventKind string

const (
	KindInsert EventKind = "insert"
	KindModify EventKind = "modify"
	KindRemove EventKind = "remove"
)

// MessageRecordType is the record kind the relay reacts to.
const MessageRecordType = "ConversationMessage"

// Record is the snapshot of the mutated row carried by a change event.
// Content is either a plain string or an ordered list of { "text": ... }
// blocks.
type Record struct {
	RecordType     string          `json:"recordType"`
	Role           string          `json:"role"`
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	Content        json.RawMessage `json:"content"`
	IsAIProcessed  bool            `json:"isAIProcessed"`
}

// ChangeEvent is one notification of a data mutation. Delivery is
// at-least-once and possibly out of order; each event is consumed once and
// not retained.
type ChangeEvent struct {
	EventKind EventKind `json:"eventKind"`
	NewRecord *Record   `json:"newRecord"`
}

// Batch is the unit of delivery from the change feed.
type Batch struct {
	Records []ChangeEvent `json:"records"`
}

// ParseBatch decodes one change-feed delivery.
func ParseBatch(payload []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(payload, &b); err != nil {
		return Batch{}, errors.Wrap(err, "decode change event batch")
	}
	return b, nil
}

// Kind returns the event kind normalized to lower case; feeds differ on
// casing (INSERT vs insert).
func (e ChangeEvent) Kind() EventKind {
	return EventKind(strings.ToLower(string(e.EventKind)))
}

type contentBlock struct {
	Text string `json:"text"`
}

// MessageText extracts the user message text from the record's content,
// joining multiple text blocks with newlines.
func (r *Record) MessageText() string {
	if len(r.Content) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(r.Content, &plain); err == nil {
		return plain
	}

	var blocks []contentBlock
	if err := json.Unmarshal(r.Content, &blocks); err != nil {
		return ""
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
