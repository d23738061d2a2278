package contest

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// ScoreContest scores every round of m against index and returns the ranked
// leaderboard. Rounds are scored concurrently and the result does not depend
// on the number of workers or the order rounds complete in.
//
// Any invalid entry fails the whole contest: when several rounds fail, the
// error of the lowest round index is returned and no leaderboard is produced.
func ScoreContest(ctx context.Context, m *Manifest, index *Index, opts Options) (*Leaderboard, error) {
	if m == nil {
		return nil, errNilManifest
	}
	if index == nil {
		return nil, errNilIndex
	}

	rounds := m.Rounds
	workers := opts.workers()

	// spare workers go inside rounds when there are few of them
	inner := opts
	inner.Workers = max(1, workers/max(1, len(rounds)))
	scorer := NewScorer(index, inner)

	slog.Debug("scoring contest",
		"categories", index.Len(),
		"keywords", index.Keywords(),
		"rounds", len(rounds),
		"workers", workers)

	total := len(rounds)
	logEvery := max(1, total/10)

	b := NewBuilder()
	errs := make([]error, len(rounds))

	g := new(errgroup.Group)
	g.SetLimit(min(workers, max(1, len(rounds))))
	for i := range rounds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			totals, err := scorer.AggregateRound(rounds[i], i)
			if err != nil {
				errs[i] = err
				return nil
			}
			b.Add(totals)

			if done := b.Rounds(); done%logEvery == 0 {
				slog.Debug("contest progress", "scored", done, "total", total)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scoring contest: %w", err)
	}
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("scoring contest: %w", err)
		}
	}

	return b.Leaderboard(), nil
}

// Score builds the index for m's categories and scores the contest.
func Score(ctx context.Context, m *Manifest, opts Options) (*Leaderboard, error) {
	if m == nil {
		return nil, errNilManifest
	}
	index, err := BuildIndex(m.Categories)
	if err != nil {
		return nil, fmt.Errorf("building category index: %w", err)
	}
	return ScoreContest(ctx, m, index, opts)
}
