package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mchmarny/poetry/pkg/config"
	"github.com/mchmarny/poetry/pkg/contest"
	"github.com/mchmarny/poetry/pkg/logging"
	"github.com/mchmarny/poetry/pkg/manifest"
	"github.com/mchmarny/poetry/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "poetry"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"

	debugFlagName    = "debug"
	configFlagName   = "config"
	formatFlagName   = "format"
	workersFlagName  = "workers"
	manifestFlagName = "manifest"
	dbFlagName       = "db"
	titlesFlagName   = "titles"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	// scoring metrics live on the default registry served by the serve command
	scoreMetrics = contest.NewMetrics(prometheus.DefaultRegisterer)
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	*config.Config
	ConfigDir string
	Format    string
	RunID     string
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

// manifestFlag returns a new flag on every call. Flags hold their parsed value,
// so sharing one between apps leaks values from one run into the next.
func manifestFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    manifestFlagName,
		Aliases: []string{"m"},
		Usage:   "Path to the contest manifest (default: <data dir>/manifest.json)",
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  dbFlagName,
		Usage: "SQLite file path or postgres:// URL of an imported contest",
	}
}

func titlesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  titlesFlagName,
		Usage: "Match entry titles in addition to contents",
	}
}

// newApp builds the command tree with its own flag instances.
func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Score keyword-category contests into a per-author leaderboard",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    debugFlagName,
				Usage:   "Prints verbose logs (optional, default: false)",
				Sources: cli.EnvVars("POETRY_DEBUG"),
			},
			&cli.StringFlag{
				Name:  configFlagName,
				Usage: "Directory holding config.yaml (default: $HOME/.poetry)",
			},
			&cli.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
			&cli.IntFlag{
				Name:  workersFlagName,
				Usage: "Number of scoring goroutines (default: config or GOMAXPROCS)",
			},
		},
		Commands: []*cli.Command{
			newGenerateCmd(),
			newImportCmd(),
			newScoreCmd(),
			newProfileCmd(),
			newServerCmd(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			dir := cmd.String(configFlagName)
			if dir == "" {
				home, _, err := config.GetOrCreateHomeDir(appName)
				if err != nil {
					return ctx, fmt.Errorf("resolving config directory: %w", err)
				}
				dir = home
			}

			cfg, err := config.ReadOrCreate(dir)
			if err != nil {
				return ctx, fmt.Errorf("reading config: %w", err)
			}

			if cmd.Bool(debugFlagName) {
				cfg.LogLevel = "debug"
			}
			if cmd.IsSet(workersFlagName) {
				cfg.Workers = cmd.Int(workersFlagName)
			}
			initLogging(cmd.Root().ErrWriter, cfg.LogLevel)

			format := formatJSON
			if f := cmd.String(formatFlagName); f == formatYAML || f == "yml" {
				format = formatYAML
			}

			ac := &appConfig{
				Config:    cfg,
				ConfigDir: dir,
				Format:    format,
				RunID:     uuid.NewString(),
			}
			cmd.Root().Metadata[appConfigKey] = ac

			slog.Debug("config loaded", "dir", dir, "workers", cfg.Workers, "run", ac.RunID)
			return ctx, nil
		},
	}
}

func initLogging(w io.Writer, level string) {
	if w == nil {
		w = os.Stderr
	}
	slog.SetDefault(slog.New(logging.NewCLIHandler(w, logging.ParseLogLevel(level))))
}

// manifestPath resolves the manifest from the flag, the config data dir, or
// the workspace data directory, in that order.
func manifestPath(cmd *cli.Command, cfg *appConfig) (string, error) {
	if p := cmd.String(manifestFlagName); p != "" {
		return p, nil
	}
	if cfg.DataDir != "" {
		return filepath.Join(cfg.DataDir, manifest.FileName), nil
	}
	return manifest.DefaultPath()
}

func dbDSN(cmd *cli.Command, cfg *appConfig) string {
	if v := cmd.String(dbFlagName); v != "" {
		return v
	}
	return cfg.DB
}

// loadContest reads the contest from --db (or the configured DB) unless a
// manifest is given explicitly.
func loadContest(ctx context.Context, cmd *cli.Command, cfg *appConfig) (*contest.Manifest, error) {
	if dsn := dbDSN(cmd, cfg); dsn != "" && cmd.String(manifestFlagName) == "" {
		s, err := store.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		defer s.Close()

		slog.Debug("loading contest from store", "driver", s.Driver())
		m, err := s.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading contest from store: %w", err)
		}
		return m, nil
	}

	path, err := manifestPath(cmd, cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("loading contest manifest", "path", path)
	return manifest.Load(ctx, path, cfg.Workers)
}

func scoreOptions(cmd *cli.Command, cfg *appConfig) contest.Options {
	return contest.Options{
		Workers:       cfg.Workers,
		IncludeTitles: cfg.IncludeTitles || cmd.Bool(titlesFlagName),
		Metrics:       scoreMetrics,
	}
}

func encode(cmd *cli.Command, v any) error {
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	if getConfig(cmd).Format == formatYAML {
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
