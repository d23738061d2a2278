package contest

import (
	"runtime"
	"strings"
)

// Options controls how a contest is scored.
type Options struct {
	// Workers bounds the goroutines used for scoring. Zero means GOMAXPROCS.
	Workers int

	// IncludeTitles matches entry titles in addition to their contents.
	IncludeTitles bool

	// Metrics receives scoring counters. Nil disables them.
	Metrics *Metrics
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Scorer scores entries against a shared Index. A Scorer holds no per-entry
// state and is safe for concurrent use.
type Scorer struct {
	index   *Index
	titles  bool
	workers int
	metrics *Metrics
}

// NewScorer returns a Scorer over index.
func NewScorer(index *Index, opts Options) *Scorer {
	return &Scorer{
		index:   index,
		titles:  opts.IncludeTitles,
		workers: opts.workers(),
		metrics: opts.Metrics,
	}
}

// Score returns the categories entry matches and its score, which is the
// number of distinct matched categories.
func (s *Scorer) Score(e Entry) EntryScore {
	st := s.index.acquire()
	defer s.index.release(st)

	s.match(st, e)
	return EntryScore{
		Author:  e.Author,
		Matched: sortedCopy(st.hits),
		Score:   len(st.hits),
	}
}

// points is Score without materializing the matched set.
func (s *Scorer) points(st *matchState, e Entry) int {
	st.reset()
	s.match(st, e)
	return len(st.hits)
}

func (s *Scorer) match(st *matchState, e Entry) {
	if s.titles && strings.TrimSpace(e.Title) != "" {
		if s.index.match(st, e.Title) {
			return
		}
	}
	s.index.match(st, e.Contents)
}
