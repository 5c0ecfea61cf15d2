package cmds

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/easel/pkg/appsync"
	"github.com/go-go-golems/easel/pkg/dispatch"
	"github.com/go-go-golems/easel/pkg/inference"
	"github.com/go-go-golems/easel/pkg/prompts"
	"github.com/go-go-golems/easel/pkg/redisfeed"
	"github.com/go-go-golems/easel/pkg/relay"
)

type ServeCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*ServeCommand)(nil)

type ServeSettings struct {
	Model   inference.Settings
	Publish appsync.Settings
	Redis   redisfeed.Settings
}

func NewServeCommand() (*ServeCommand, error) {
	modelLayer, err := inference.NewParameterLayer()
	if err != nil {
		return nil, errors.Wrap(err, "build model layer")
	}
	publishLayer, err := appsync.NewParameterLayer()
	if err != nil {
		return nil, errors.Wrap(err, "build publish layer")
	}
	redisLayer, err := redisfeed.NewParameterLayer()
	if err != nil {
		return nil, errors.Wrap(err, "build redis layer")
	}

	desc := cmds.NewCommandDescription(
		"serve",
		cmds.WithShort("Consume the message change feed and relay model output to subscribers"),
		cmds.WithSections(modelLayer, publishLayer, redisLayer),
	)
	return &ServeCommand{CommandDescription: desc}, nil
}

func (c *ServeCommand) RunIntoWriter(ctx context.Context, parsedLayers *values.Values, w io.Writer) error {
	s := &ServeSettings{}
	if err := parsedLayers.DecodeSectionInto("model", &s.Model); err != nil {
		return errors.Wrap(err, "init model settings")
	}
	if err := parsedLayers.DecodeSectionInto("publish", &s.Publish); err != nil {
		return errors.Wrap(err, "init publish settings")
	}
	if err := parsedLayers.DecodeSectionInto("redis", &s.Redis); err != nil {
		return errors.Wrap(err, "init redis settings")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher, err := buildDispatcher(ctx, s)
	if err != nil {
		return err
	}

	if err := redisfeed.EnsureGroupAtTail(ctx, s.Redis.Addr, s.Redis.Stream, s.Redis.Group); err != nil {
		return errors.Wrap(err, "ensure consumer group")
	}
	sub, err := redisfeed.BuildSubscriber(s.Redis)
	if err != nil {
		return errors.Wrap(err, "build change feed subscriber")
	}

	router, err := message.NewRouter(message.RouterConfig{}, redisfeed.NewWatermillLogger(log.Logger))
	if err != nil {
		return errors.Wrap(err, "create router")
	}
	router.AddNoPublisherHandler("relay", s.Redis.Stream, sub, dispatcher.Handler())

	log.Info().
		Str("addr", s.Redis.Addr).
		Str("stream", s.Redis.Stream).
		Str("group", s.Redis.Group).
		Str("consumer", s.Redis.Consumer).
		Str("model", s.Model.Model).
		Msg("relay serving")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return router.Run(ctx) })
	return eg.Wait()
}

func buildDispatcher(ctx context.Context, s *ServeSettings) (*dispatch.Dispatcher, error) {
	client, err := inference.NewAnthropicClient(inference.Config{
		BaseURL: s.Model.BaseURL,
		APIKey:  s.Model.APIKey,
		Version: s.Model.Version,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create model client")
	}

	signer, err := appsync.NewSigV4Signer(ctx, s.Publish.Region)
	if err != nil {
		return nil, errors.Wrap(err, "create request signer")
	}
	channel, err := appsync.NewChannel(appsync.Config{Endpoint: s.Publish.Endpoint}, signer)
	if err != nil {
		return nil, errors.Wrap(err, "create publish channel")
	}

	system, err := prompts.Compose()
	if err != nil {
		return nil, errors.Wrap(err, "compose system prompt")
	}

	runner := relay.NewRunner(client, channel, relay.Options{
		Model:        s.Model.Model,
		SystemPrompt: system,
		MaxTokens:    s.Model.MaxTokens,
		Temperature:  s.Model.Temperature,
	})
	return dispatch.NewDispatcher(runner), nil
}
