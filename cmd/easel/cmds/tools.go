package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"

	"github.com/go-go-golems/easel/pkg/manifest"
)

// ToolsCommand lists the static tool manifest, optionally filtered by
// category.
type ToolsCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*ToolsCommand)(nil)

type ToolsSettings struct {
	Category string `glazed:"category"`
}

func NewToolsCommand() (*ToolsCommand, error) {
	glazedLayer, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsLayer, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"tools",
		cmds.WithShort("List the tool manifest advertised to the assistant"),
		cmds.WithFlags(
			fields.New("category", fields.TypeString, fields.WithDefault(""), fields.WithHelp("Only list tools of this category (canvas, ui, layout, logic)")),
		),
		cmds.WithSections(glazedLayer, commandSettingsLayer),
	)
	return &ToolsCommand{CommandDescription: desc}, nil
}

func (c *ToolsCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *values.Values, gp middlewares.Processor) error {
	s := &ToolsSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}

	m, err := manifest.Load()
	if err != nil {
		return err
	}
	entries := m.Lookup(s.Category)
	if s.Category != "" && entries == nil {
		return errors.Errorf("unknown tool category %q", s.Category)
	}

	for _, e := range entries {
		params := make([]string, 0, len(e.Params))
		for _, p := range e.Params {
			params = append(params, p.Name)
		}
		row := types.NewRow(
			types.MRP("category", e.Category),
			types.MRP("name", e.Name),
			types.MRP("description", e.Description),
			types.MRP("params", params),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
