package dispatch

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/easel/pkg/relay"
)

// Dispatcher consumes change-event batches and drives one relay execution
// per eligible event. Events are independent: a failure (or panic) in one
// never aborts the rest of the batch.
type Dispatcher struct {
	runner *relay.Runner
}

func NewDispatcher(runner *relay.Runner) *Dispatcher {
	return &Dispatcher{runner: runner}
}

// HandleBatch filters the batch down to unprocessed new user messages and
// runs the relay pipeline for each, in order.
func (d *Dispatcher) HandleBatch(ctx context.Context, b Batch) {
	log.Debug().
		Str("component", "dispatcher").
		Int("events", len(b.Records)).
		Msg("handling change event batch")

	for i, ev := range b.Records {
		adm := Admit(ev)
		if !adm.Eligible {
			log.Debug().
				Str("component", "dispatcher").
				Int("event_index", i).
				Str("reason", adm.Reason).
				Msg("skipping ineligible event")
			continue
		}

		rec := ev.NewRecord
		t := relay.NewTurn(rec.ConversationID, rec.ID, rec.MessageText())
		d.runOne(ctx, t)
	}
}

// runOne isolates one turn: panics are recovered and converted into the
// turn's error signal so the remaining events still get processed.
func (d *Dispatcher) runOne(ctx context.Context, t *relay.Turn) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("panic while processing turn: %v", r)
			log.Error().
				Str("component", "dispatcher").
				Str("conversation_id", t.ConversationID).
				Str("user_message_id", t.UserMessageID).
				Err(err).
				Msg("recovered panic during relay execution")
			relay.NewFinalizer(d.runner.Channel()).Fail(ctx, t, err)
		}
	}()

	if err := d.runner.RunTurn(ctx, t); err != nil {
		// The turn already received its error signal; log and move on.
		log.Error().
			Str("component", "dispatcher").
			Str("conversation_id", t.ConversationID).
			Str("user_message_id", t.UserMessageID).
			Err(err).
			Msg("turn failed")
	}
}

// Handler adapts the dispatcher to a watermill no-publisher handler. A
// malformed payload is logged and dropped; redelivery would not make it
// parseable.
func (d *Dispatcher) Handler() message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		b, err := ParseBatch(msg.Payload)
		if err != nil {
			log.Error().
				Str("component", "dispatcher").
				Str("message_id", msg.UUID).
				Err(err).
				Msg("dropping malformed change event batch")
			return nil
		}
		d.HandleBatch(msg.Context(), b)
		return nil
	}
}
