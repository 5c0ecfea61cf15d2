package relay

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Finalizer emits the single terminal signal that ends a turn. Once a turn is
// terminal, further Complete/Fail calls are ignored so subscribers never see
// a second terminal signal.
type Finalizer struct {
	ch Channel
}

func NewFinalizer(ch Channel) *Finalizer {
	return &Finalizer{ch: ch}
}

// Complete publishes a done signal carrying the final block index reached.
func (f *Finalizer) Complete(ctx context.Context, t *Turn, stopReason string) {
	if t.Terminal() {
		return
	}
	t.Status = StatusCompleted
	sig := DoneSignal(t, stopReason)
	if err := f.ch.Publish(ctx, sig); err != nil {
		// The outcome is decided; nothing further to recover.
		log.Error().
			Str("component", "finalizer").
			Str("conversation_id", t.ConversationID).
			Str("user_message_id", t.UserMessageID).
			Err(err).
			Msg("done signal publish failed")
		return
	}
	log.Info().
		Str("component", "finalizer").
		Str("conversation_id", t.ConversationID).
		Str("user_message_id", t.UserMessageID).
		Int("final_index", sig.DoneAtIndex).
		Str("stop_reason", stopReason).
		Msg("turn completed")
}

// Fail publishes an error signal instead of a done signal.
func (f *Finalizer) Fail(ctx context.Context, t *Turn, cause error) {
	if t.Terminal() {
		return
	}
	t.Status = StatusFailed
	if err := f.ch.Publish(ctx, ErrorSignal(t, cause)); err != nil {
		log.Error().
			Str("component", "finalizer").
			Str("conversation_id", t.ConversationID).
			Str("user_message_id", t.UserMessageID).
			Err(err).
			Msg("error signal publish failed")
		return
	}
	log.Warn().
		Str("component", "finalizer").
		Str("conversation_id", t.ConversationID).
		Str("user_message_id", t.UserMessageID).
		Err(cause).
		Msg("turn failed")
}
