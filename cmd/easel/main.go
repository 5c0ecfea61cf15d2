package main

import (
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/easel/cmd/easel/cmds"
)

var rootCmd = &cobra.Command{
	Use:   "easel",
	Short: "Streaming design-assistant relay",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitLoggerFromCobra(cmd)
	},
}

func main() {
	if err := clay.InitGlazed("easel", rootCmd); err != nil {
		cobra.CheckErr(err)
	}

	helpSystem := help.NewHelpSystem()
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	serveCmd, err := cmds.NewServeCommand()
	cobra.CheckErr(err)
	serveCobraCmd, err := cli.BuildCobraCommand(serveCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(serveCobraCmd)

	processCmd, err := cmds.NewProcessCommand()
	cobra.CheckErr(err)
	processCobraCmd, err := cli.BuildCobraCommand(processCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(processCobraCmd)

	toolsCmd, err := cmds.NewToolsCommand()
	cobra.CheckErr(err)
	toolsCobraCmd, err := cli.BuildCobraCommand(toolsCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(toolsCobraCmd)

	cobra.CheckErr(rootCmd.Execute())
}
