package redisfeed

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

// Settings holds Redis Streams change-feed configuration for Watermill.
type Settings struct {
	Addr     string `glazed:"redis-addr"`
	Stream   string `glazed:"redis-stream"`
	Group    string `glazed:"redis-group"`
	Consumer string `glazed:"redis-consumer"`
}

// NewParameterLayer returns a section definition for change-feed settings.
func NewParameterLayer() (schema.Section, error) {
	return schema.NewSection(
		"redis",
		"Redis Streams change-feed configuration",
		schema.WithFields(
			fields.New("redis-addr", fields.TypeString, fields.WithDefault("localhost:6379"), fields.WithHelp("Redis address host:port")),
			fields.New("redis-stream", fields.TypeString, fields.WithDefault("message-changes"), fields.WithHelp("Redis stream carrying change event batches")),
			fields.New("redis-group", fields.TypeString, fields.WithDefault("relay"), fields.WithHelp("Redis consumer group")),
			fields.New("redis-consumer", fields.TypeString, fields.WithDefault("relay-1"), fields.WithHelp("Redis consumer name")),
		),
	)
}
