package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mchmarny/poetry/pkg/generate"
	"github.com/mchmarny/poetry/pkg/manifest"
	"github.com/urfave/cli/v3"
)

const (
	dirFlagName        = "dir"
	seedFlagName       = "seed"
	roundsFlagName     = "rounds"
	categoriesFlagName = "categories"
	authorsFlagName    = "authors"
	minEntriesFlagName = "min-entries"
	maxEntriesFlagName = "max-entries"
)

func newGenerateCmd() *cli.Command {
	defaults := generate.DefaultOptions()
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Write a reproducible synthetic contest data set",
		UsageText: `poetry generate                          # reference size into <workspace>/data
   poetry generate --dir /tmp/c --rounds 5   # small data set
   poetry generate --seed 42                 # different but reproducible data`,
		Action: cmdGenerate,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  dirFlagName,
				Usage: "Directory to write the data set into (default: <workspace>/data)",
			},
			&cli.Uint64Flag{
				Name:  seedFlagName,
				Usage: "Random seed, the same seed always yields the same data set",
			},
			&cli.IntFlag{
				Name:  roundsFlagName,
				Usage: "Number of rounds",
				Value: defaults.Rounds,
			},
			&cli.IntFlag{
				Name:  categoriesFlagName,
				Usage: "Number of categories",
				Value: defaults.Categories,
			},
			&cli.IntFlag{
				Name:  authorsFlagName,
				Usage: "Number of distinct authors",
				Value: defaults.Authors,
			},
			&cli.IntFlag{
				Name:  minEntriesFlagName,
				Usage: "Minimum entries per round",
				Value: defaults.MinEntries,
			},
			&cli.IntFlag{
				Name:  maxEntriesFlagName,
				Usage: "Maximum entries per round",
				Value: defaults.MaxEntries,
			},
		},
	}
}

func generateOptions(cmd *cli.Command) generate.Options {
	opts := generate.DefaultOptions()
	opts.Seed = cmd.Uint64(seedFlagName)
	opts.Rounds = cmd.Int(roundsFlagName)
	opts.Categories = cmd.Int(categoriesFlagName)
	opts.Authors = cmd.Int(authorsFlagName)
	opts.MinEntries = cmd.Int(minEntriesFlagName)
	opts.MaxEntries = cmd.Int(maxEntriesFlagName)
	return opts
}

func cmdGenerate(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	dir := cmd.String(dirFlagName)
	if dir == "" {
		dir = cfg.DataDir
	}
	if dir == "" {
		p, err := manifest.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving data directory: %w", err)
		}
		dir = filepath.Dir(p)
	}

	sum, err := generate.Write(dir, generateOptions(cmd))
	if err != nil {
		return fmt.Errorf("generating data set: %w", err)
	}

	slog.Info("data set written", "dir", sum.Dir, "rounds", sum.Rounds, "entries", sum.Entries, "run", cfg.RunID)
	return encode(cmd, sum)
}
