package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/mchmarny/poetry/pkg/contest"
	"github.com/urfave/cli/v3"
)

const (
	profileIterationsDefault = 100

	iterationsFlagName = "iterations"
	cpuProfileFlagName = "cpuprofile"
	memProfileFlagName = "memprofile"
)

func newProfileCmd() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Score a contest repeatedly and report timing and allocations",
		UsageText: `poetry profile --iterations 20
   poetry profile --cpuprofile cpu.out --memprofile mem.out`,
		Action: cmdProfile,
		Flags: []cli.Flag{
			manifestFlag(),
			dbFlag(),
			titlesFlag(),
			&cli.IntFlag{
				Name:  iterationsFlagName,
				Usage: "Number of times the contest is scored",
				Value: profileIterationsDefault,
			},
			&cli.StringFlag{
				Name:  cpuProfileFlagName,
				Usage: "Write a CPU profile to this file",
			},
			&cli.StringFlag{
				Name:  memProfileFlagName,
				Usage: "Write a heap profile to this file after the last iteration",
			},
		},
	}
}

// ProfileReport summarizes repeated scoring runs.
type ProfileReport struct {
	Iterations    int           `json:"iterations" yaml:"iterations"`
	Rounds        int           `json:"rounds" yaml:"rounds"`
	Entries       int           `json:"entries" yaml:"entries"`
	Workers       int           `json:"workers" yaml:"workers"`
	IndexDuration time.Duration `json:"index_duration" yaml:"indexDuration"`
	Total         time.Duration `json:"total" yaml:"total"`
	Mean          time.Duration `json:"mean" yaml:"mean"`
	Fastest       time.Duration `json:"fastest" yaml:"fastest"`
	Slowest       time.Duration `json:"slowest" yaml:"slowest"`
	BytesPerOp    uint64        `json:"bytes_per_op" yaml:"bytesPerOp"`
	AllocsPerOp   uint64        `json:"allocs_per_op" yaml:"allocsPerOp"`
	Digest        string        `json:"digest" yaml:"digest"`
}

func cmdProfile(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	n := cmd.Int(iterationsFlagName)
	if n <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", n)
	}

	m, err := loadContest(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	if path := cmd.String(cpuProfileFlagName); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating cpu profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("starting cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	rep, err := profileContest(ctx, m, scoreOptions(cmd, cfg), n)
	if err != nil {
		return err
	}

	if path := cmd.String(memProfileFlagName); path != "" {
		if err := writeHeapProfile(path); err != nil {
			return err
		}
	}

	slog.Info("profile complete", "iterations", n, "mean", rep.Mean, "run", cfg.RunID)
	return encode(cmd, rep)
}

// profileContest builds the index once and scores m n times with it.
func profileContest(ctx context.Context, m *contest.Manifest, opts contest.Options, n int) (*ProfileReport, error) {
	if m == nil {
		return nil, errors.New("manifest required")
	}

	start := time.Now()
	index, err := contest.BuildIndex(m.Categories)
	if err != nil {
		return nil, err
	}

	rep := &ProfileReport{
		Iterations:    n,
		Rounds:        len(m.Rounds),
		Entries:       m.EntryCount(),
		Workers:       opts.Workers,
		IndexDuration: time.Since(start),
	}
	if rep.Workers <= 0 {
		rep.Workers = runtime.GOMAXPROCS(0)
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	for i := range n {
		start := time.Now()
		lb, err := contest.ScoreContest(ctx, m, index, opts)
		if err != nil {
			return nil, err
		}
		d := time.Since(start)

		rep.Total += d
		if i == 0 || d < rep.Fastest {
			rep.Fastest = d
		}
		rep.Slowest = max(rep.Slowest, d)

		if i == 0 {
			rep.Digest = lb.Digest()
		} else if dg := lb.Digest(); dg != rep.Digest {
			return nil, fmt.Errorf("iteration %d produced a different leaderboard: %s != %s", i, dg, rep.Digest)
		}
		slog.Debug("iteration done", "iteration", i, "duration", d)
	}

	runtime.ReadMemStats(&after)
	rep.Mean = rep.Total / time.Duration(n)
	rep.BytesPerOp = (after.TotalAlloc - before.TotalAlloc) / uint64(n)
	rep.AllocsPerOp = (after.Mallocs - before.Mallocs) / uint64(n)
	return rep, nil
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating memory profile: %w", err)
	}
	defer f.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	return nil
}
