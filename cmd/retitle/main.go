package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/retitle/internal"
	"github.com/starford/retitle/internal/models"
	pkgconfig "github.com/starford/retitle/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	configPath := cmd.String("config")
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("api-key") {
		cfg.Generator.APIKey = cmd.String("api-key")
	}
	if cmd.IsSet("model") {
		cfg.Generator.Model = cmd.String("model")
	}
	if cmd.IsSet("dry-run") {
		cfg.DryRun = cmd.Bool("dry-run")
	}
	if cmd.IsSet("recursive") {
		cfg.Scan.Recursive = cmd.Bool("recursive")
	}
	if cmd.IsSet("watch") {
		cfg.Scan.Watch = cmd.Bool("watch")
	}
	if cmd.IsSet("concurrency") {
		cfg.Scan.Concurrency = int(cmd.Int("concurrency"))
	}
	if cmd.IsSet("languages") {
		cfg.Extract.Languages = cmd.StringSlice("languages")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	target := cmd.String("directory")
	if target == "" {
		return errors.New(`required flag "directory" not set`)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithTarget(target),
		internal.WithReporter(printOutcome),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func printOutcome(o models.Outcome) {
	name := filepath.Base(o.Document.Path)
	switch o.Kind {
	case models.KindRenamed:
		fmt.Printf("renamed: %s -> %s\n", name, filepath.Base(o.Path))
	case models.KindPlanned:
		fmt.Printf("would rename: %s -> %s\n", name, filepath.Base(o.Path))
	default:
		fmt.Printf("%s: %s (%s)\n", strings.ReplaceAll(string(o.Kind), "_", " "), name, o.Reason)
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "retitle",
		Usage:  "Rename PDFs after a title derived from their first page",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "directory",
				Aliases: []string{"d"},
				Usage:   "Directory of PDFs, or a single PDF, to rename",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Aliases: []string{"k"},
				Usage:   "Generation service API key",
				Sources: cli.EnvVars("GOOGLE_API_KEY", "GEMINI_API_KEY"),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show the new names without renaming anything",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Generation model",
				Value:   "gemini-1.5-flash",
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("RETITLE_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:    "recursive",
				Aliases: []string{"r"},
				Usage:   "Include PDFs in subdirectories",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of documents processed at once",
				Value: 1,
			},
			&cli.StringSliceFlag{
				Name:  "languages",
				Usage: "OCR languages (tesseract codes)",
				Value: []string{"heb", "eng"},
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and rename PDFs as they appear",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve retitle tools over MCP on stdin/stdout",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
