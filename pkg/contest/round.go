package contest

import (
	"strings"
	"sync"
	"time"
)

// minEntriesPerWorker keeps small rounds on a single goroutine.
const minEntriesPerWorker = 64

// RoundTotals maps an author to their summed score within one round.
type RoundTotals map[string]int

// Merge adds every total in other into t. Addition is commutative and
// associative, so partial totals can be merged in any order.
func (t RoundTotals) Merge(other RoundTotals) {
	for author, score := range other {
		t[author] += score
	}
}

// ValidateRound checks that every entry of round can be attributed to an
// author. roundIndex is only used to locate the offending entry.
func ValidateRound(round Round, roundIndex int) error {
	for i, e := range round.Entries {
		if strings.TrimSpace(e.Author) == "" {
			return &InvalidEntryError{Round: roundIndex, Entry: i, Reason: "missing author"}
		}
	}
	return nil
}

// AggregateRound scores every entry of round and sums the scores per author.
// The round is validated up front so an invalid entry fails the whole round
// without producing partial totals. Authors whose entries match nothing are
// present with a total of zero.
func (s *Scorer) AggregateRound(round Round, roundIndex int) (RoundTotals, error) {
	if err := ValidateRound(round, roundIndex); err != nil {
		s.metrics.observeFailure()
		return nil, err
	}

	start := time.Now()
	entries := round.Entries

	workers := s.workers
	if most := len(entries) / minEntriesPerWorker; workers > most {
		workers = most
	}

	var totals RoundTotals
	var unmatched int
	if workers <= 1 {
		totals, unmatched = s.sumEntries(entries)
	} else {
		totals, unmatched = s.sumEntriesParallel(entries, workers)
	}

	s.metrics.observeRound(len(entries), unmatched, time.Since(start))
	return totals, nil
}

func (s *Scorer) sumEntries(entries []Entry) (RoundTotals, int) {
	st := s.index.acquire()
	defer s.index.release(st)

	totals := make(RoundTotals)
	unmatched := 0
	for _, e := range entries {
		p := s.points(st, e)
		if p == 0 {
			unmatched++
		}
		totals[e.Author] += p
	}
	return totals, unmatched
}

func (s *Scorer) sumEntriesParallel(entries []Entry, workers int) (RoundTotals, int) {
	parts := make([]RoundTotals, workers)
	misses := make([]int, workers)
	chunk := (len(entries) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(entries))
		if lo >= hi {
			continue
		}
		wg.Go(func() {
			parts[w], misses[w] = s.sumEntries(entries[lo:hi])
		})
	}
	wg.Wait()

	totals := make(RoundTotals)
	unmatched := 0
	for w := range parts {
		if parts[w] == nil {
			continue
		}
		totals.Merge(parts[w])
		unmatched += misses[w]
	}
	return totals, unmatched
}
