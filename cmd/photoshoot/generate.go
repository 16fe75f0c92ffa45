package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ai-dslr-studio/internal/app"
	"ai-dslr-studio/internal/config"
	"ai-dslr-studio/internal/httpclient"
	"ai-dslr-studio/internal/photoshoot"
)

type generateFlags struct {
	portrait string
	scene    string
	outfit   string
	style    string
	compare  bool
	backend  string
	out      string
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a photoshoot and write every shot to a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, mode, err := f.input()
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := app.NewLogger(cfg)

			httpClient := httpclient.New(httpclient.Options{
				PreferIPv4: cfg.PreferIPv4,
				Timeout:    cfg.HTTPTimeout,
			})
			pipeline, err := app.NewPipeline(cfg, httpClient, logger)
			if err != nil {
				return err
			}
			if err := pipeline.Registry.Check(in.Backend); err != nil {
				return err
			}

			shots, err := pipeline.Orchestrator.Generate(cmd.Context(), in, mode, photoshoot.WithProgress(func(p photoshoot.Progress) {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", p.Done, p.Total, p.Shot.Caption())
			}))
			if err != nil {
				return err
			}

			paths, err := writeShots(f.out, shots)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.portrait, "portrait", "", "portrait image of the person (required)")
	cmd.Flags().StringVar(&f.scene, "scene", "", "background scene image (required)")
	cmd.Flags().StringVar(&f.outfit, "outfit", "", "outfit reference image, used with --style custom")
	cmd.Flags().StringVar(&f.style, "style", "casual", "outfit style: casual, formal, artistic or custom")
	cmd.Flags().BoolVar(&f.compare, "compare", false, "render casual, formal and artistic side by side")
	cmd.Flags().StringVar(&f.backend, "backend", "gemini", "backend: gemini or seedream")
	cmd.Flags().StringVar(&f.out, "out", "photoshoot", "output directory")
	_ = cmd.MarkFlagRequired("portrait")
	_ = cmd.MarkFlagRequired("scene")
	cmd.MarkFlagsMutuallyExclusive("style", "compare")
	return cmd
}

func (f generateFlags) input() (photoshoot.Input, photoshoot.Mode, error) {
	var in photoshoot.Input

	backend, ok := photoshoot.ParseBackend(f.backend)
	if !ok {
		return in, photoshoot.Mode{}, fmt.Errorf("unknown backend %q", f.backend)
	}
	in.Backend = backend

	mode := photoshoot.CompareAll()
	if !f.compare {
		style, ok := photoshoot.ParseStyle(f.style)
		if !ok {
			return in, photoshoot.Mode{}, fmt.Errorf("unknown style %q", f.style)
		}
		mode = photoshoot.SingleStyle(style)
	}

	var err error
	if in.Portrait, err = readImage(f.portrait); err != nil {
		return in, photoshoot.Mode{}, err
	}
	if in.Scene, err = readImage(f.scene); err != nil {
		return in, photoshoot.Mode{}, err
	}
	if f.outfit != "" {
		outfit, err := readImage(f.outfit)
		if err != nil {
			return in, photoshoot.Mode{}, err
		}
		in.Outfit = &outfit
	}
	return in, mode, nil
}

func readImage(path string) (photoshoot.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return photoshoot.Image{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return photoshoot.Image{}, fmt.Errorf("read image %s: file is empty", path)
	}
	return photoshoot.NewImage(data, ""), nil
}

// writeShots stores one file per shot plus shots.json with the metadata.
func writeShots(dir string, shots []photoshoot.Shot) ([]string, error) {
	if dir == "" {
		return nil, errors.New("output directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, 0, len(shots)+1)
	for _, shot := range shots {
		img, err := shot.Image()
		if err != nil {
			return nil, fmt.Errorf("decode shot %s: %w", shot.ID, err)
		}
		path := filepath.Join(dir, shot.Style.Key()+"-"+shot.ShotType.Key()+extension(img.MIMEType))
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			return nil, fmt.Errorf("write shot: %w", err)
		}
		paths = append(paths, path)
	}

	raw, err := json.MarshalIndent(shots, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode shots: %w", err)
	}
	manifest := filepath.Join(dir, "shots.json")
	if err := os.WriteFile(manifest, raw, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return append(paths, manifest), nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
