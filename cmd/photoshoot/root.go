package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "photoshoot",
		Short:        "Generate DSLR-style photoshoots from a portrait and a scene",
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCmd(), newPromptCmd())
	return root
}
