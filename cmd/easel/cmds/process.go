package cmds

import (
	"context"
	"io"
	"os"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/easel/pkg/appsync"
	"github.com/go-go-golems/easel/pkg/dispatch"
	"github.com/go-go-golems/easel/pkg/inference"
	"github.com/go-go-golems/easel/pkg/prompts"
	"github.com/go-go-golems/easel/pkg/relay"
)

// ProcessCommand runs the dispatcher once over a recorded change-event batch.
// Without --publish the signals are written as JSON lines to stdout, which is
// the easiest way to exercise the pipeline locally.
type ProcessCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*ProcessCommand)(nil)

type ProcessSettings struct {
	File    string `glazed:"file"`
	Publish bool   `glazed:"publish"`

	Model   inference.Settings
	Channel appsync.Settings
}

func NewProcessCommand() (*ProcessCommand, error) {
	modelLayer, err := inference.NewParameterLayer()
	if err != nil {
		return nil, errors.Wrap(err, "build model layer")
	}
	publishLayer, err := appsync.NewParameterLayer()
	if err != nil {
		return nil, errors.Wrap(err, "build publish layer")
	}

	desc := cmds.NewCommandDescription(
		"process",
		cmds.WithShort("Process one change-event batch from a JSON file"),
		cmds.WithArguments(
			fields.New("file", fields.TypeString, fields.WithHelp("Path to a change-event batch JSON file")),
		),
		cmds.WithFlags(
			fields.New("publish", fields.TypeBool, fields.WithDefault(false), fields.WithHelp("Publish signals to the configured channel instead of stdout")),
		),
		cmds.WithSections(modelLayer, publishLayer),
	)
	return &ProcessCommand{CommandDescription: desc}, nil
}

func (c *ProcessCommand) RunIntoWriter(ctx context.Context, parsedLayers *values.Values, w io.Writer) error {
	s := &ProcessSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "init settings")
	}
	if err := parsedLayers.DecodeSectionInto("model", &s.Model); err != nil {
		return errors.Wrap(err, "init model settings")
	}
	if err := parsedLayers.DecodeSectionInto("publish", &s.Channel); err != nil {
		return errors.Wrap(err, "init publish settings")
	}

	payload, err := os.ReadFile(s.File)
	if err != nil {
		return errors.Wrapf(err, "read batch file %s", s.File)
	}
	batch, err := dispatch.ParseBatch(payload)
	if err != nil {
		return err
	}

	client, err := inference.NewAnthropicClient(inference.Config{
		BaseURL: s.Model.BaseURL,
		APIKey:  s.Model.APIKey,
		Version: s.Model.Version,
	})
	if err != nil {
		return errors.Wrap(err, "create model client")
	}

	var channel relay.Channel = relay.NewWriterChannel(w)
	if s.Publish {
		signer, err := appsync.NewSigV4Signer(ctx, s.Channel.Region)
		if err != nil {
			return errors.Wrap(err, "create request signer")
		}
		channel, err = appsync.NewChannel(appsync.Config{Endpoint: s.Channel.Endpoint}, signer)
		if err != nil {
			return errors.Wrap(err, "create publish channel")
		}
	}

	system, err := prompts.Compose()
	if err != nil {
		return errors.Wrap(err, "compose system prompt")
	}

	runner := relay.NewRunner(client, channel, relay.Options{
		Model:        s.Model.Model,
		SystemPrompt: system,
		MaxTokens:    s.Model.MaxTokens,
		Temperature:  s.Model.Temperature,
	})
	dispatch.NewDispatcher(runner).HandleBatch(ctx, batch)

	log.Info().Int("events", len(batch.Records)).Msg("batch processed")
	return nil
}
