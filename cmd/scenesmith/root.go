package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scenesmith",
		Short:         "Turn a topic into a multi-scene content package",
		Long: `scenesmith drives a staged agent pipeline that turns a topic into a
video script, visual keywords and generated media artifacts.`,
		Args:          cobra.NoArgs,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCmd())
	return cmd
}
