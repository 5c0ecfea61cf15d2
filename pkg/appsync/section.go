package appsync

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

// Settings holds publish channel configuration.
type Settings struct {
	Endpoint string `glazed:"publish-endpoint"`
	Region   string `glazed:"publish-region"`
}

// NewParameterLayer returns the section definition for publish channel settings.
func NewParameterLayer() (schema.Section, error) {
	return schema.NewSection(
		"publish",
		"Publish channel configuration (AppSync-style GraphQL endpoint)",
		schema.WithFields(
			fields.New("publish-endpoint", fields.TypeString, fields.WithDefault(""), fields.WithHelp("GraphQL endpoint URL for the publish channel")),
			fields.New("publish-region", fields.TypeString, fields.WithDefault("us-east-1"), fields.WithHelp("AWS region used for request signing")),
		),
	)
}
