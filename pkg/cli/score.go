package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/mchmarny/poetry/pkg/contest"
	"github.com/urfave/cli/v3"
)

const topFlagName = "top"

func newScoreCmd() *cli.Command {
	return &cli.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Score a contest and print the leaderboard",
		UsageText: `poetry score                                # workspace data/manifest.json
   poetry score --manifest contest.yaml --top 10
   poetry score --db contest.db --titles`,
		Action: cmdScore,
		Flags: []cli.Flag{
			manifestFlag(),
			dbFlag(),
			&cli.IntFlag{
				Name:  topFlagName,
				Usage: "Only print the N leading authors (default: all)",
			},
			titlesFlag(),
		},
	}
}

type scoreResult struct {
	Run       string             `json:"run" yaml:"run"`
	Digest    string             `json:"digest" yaml:"digest"`
	Rounds    int                `json:"rounds" yaml:"rounds"`
	Authors   int                `json:"authors" yaml:"authors"`
	Standings []contest.Standing `json:"standings" yaml:"standings"`
}

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	m, err := loadContest(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	lb, err := contest.Score(ctx, m, scoreOptions(cmd, cfg))
	if err != nil {
		return err
	}

	slog.Info("contest scored",
		"rounds", lb.Rounds,
		"entries", m.EntryCount(),
		"authors", lb.Authors,
		"duration", time.Since(start),
		"run", cfg.RunID)

	return encode(cmd, &scoreResult{
		Run:       cfg.RunID,
		Digest:    lb.Digest(),
		Rounds:    lb.Rounds,
		Authors:   lb.Authors,
		Standings: lb.Top(cmd.Int(topFlagName)),
	})
}
