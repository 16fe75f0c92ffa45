package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ai-dslr-studio/internal/photoshoot"
)

type promptFlags struct {
	style   string
	shot    string
	backend string
	custom  bool
}

func newPromptCmd() *cobra.Command {
	var f promptFlags

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the prompt sent for one style and shot type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			style, ok := photoshoot.ParseStyle(f.style)
			if !ok {
				return fmt.Errorf("unknown style %q", f.style)
			}
			shot, ok := photoshoot.ParseShotType(f.shot)
			if !ok {
				return fmt.Errorf("unknown shot type %q", f.shot)
			}
			backend, ok := photoshoot.ParseBackend(f.backend)
			if !ok {
				return fmt.Errorf("unknown backend %q", f.backend)
			}

			if f.custom && style != photoshoot.StyleCustom {
				return fmt.Errorf("--custom only applies to the custom style")
			}
			hasOutfit := f.custom
			_, err := fmt.Fprint(cmd.OutOrStdout(), photoshoot.BuildPrompt(style, shot, backend, hasOutfit))
			return err
		},
	}

	cmd.Flags().StringVar(&f.style, "style", "casual", "outfit style: casual, formal, artistic or custom")
	cmd.Flags().StringVar(&f.shot, "shot", "closeup", "shot type: closeup, medium_closeup or knees_up")
	cmd.Flags().StringVar(&f.backend, "backend", "gemini", "backend: gemini or seedream")
	cmd.Flags().BoolVar(&f.custom, "custom", false, "render the custom style with an outfit reference image attached")
	return cmd
}
