package contest

import (
	"cmp"
	"encoding/hex"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/zeebo/blake3"
)

// Standing is one author's position on the leaderboard. Authors with equal
// scores share a rank and the following rank is skipped (1, 2, 2, 4).
type Standing struct {
	Rank   int    `json:"rank" yaml:"rank"`
	Author string `json:"author" yaml:"author"`
	Score  int    `json:"score" yaml:"score"`
}

// Leaderboard is the ranked result of a contest.
type Leaderboard struct {
	Rounds    int        `json:"rounds" yaml:"rounds"`
	Authors   int        `json:"authors" yaml:"authors"`
	Standings []Standing `json:"standings" yaml:"standings"`
}

// Totals returns the leaderboard as an author to score map.
func (l *Leaderboard) Totals() map[string]int {
	m := make(map[string]int, len(l.Standings))
	for _, s := range l.Standings {
		m[s.Author] = s.Score
	}
	return m
}

// Find returns the standing of author.
func (l *Leaderboard) Find(author string) (Standing, bool) {
	for _, s := range l.Standings {
		if s.Author == author {
			return s, true
		}
	}
	return Standing{}, false
}

// Top returns at most n leading standings. n <= 0 returns all of them.
func (l *Leaderboard) Top(n int) []Standing {
	if n <= 0 || n >= len(l.Standings) {
		return l.Standings
	}
	return l.Standings[:n]
}

// Digest returns a hex BLAKE3 digest of the standings. Two leaderboards with
// the same digest list the same authors with the same scores in the same order.
func (l *Leaderboard) Digest() string {
	h := blake3.New()
	buf := make([]byte, 0, 64)
	for _, s := range l.Standings {
		buf = buf[:0]
		buf = strconv.AppendQuote(buf, s.Author)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, int64(s.Score), 10)
		buf = append(buf, '\n')
		_, _ = h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Builder accumulates round totals into grand totals. Add may be called from
// multiple goroutines.
type Builder struct {
	mu     sync.Mutex
	totals map[string]int
	rounds int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{totals: make(map[string]int)}
}

// Add folds one round's totals into the grand totals. Authors absent from
// the round keep their current total.
func (b *Builder) Add(round RoundTotals) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for author, score := range round {
		b.totals[author] += score
	}
	b.rounds++
}

// Rounds returns the number of rounds folded so far.
func (b *Builder) Rounds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rounds
}

// Totals returns a copy of the current grand totals.
func (b *Builder) Totals() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.totals)
}

// Leaderboard ranks the current grand totals.
func (b *Builder) Leaderboard() *Leaderboard {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &Leaderboard{
		Rounds:    b.rounds,
		Authors:   len(b.totals),
		Standings: Rank(b.totals),
	}
}

// BuildLeaderboard folds rounds into a ranked leaderboard.
func BuildLeaderboard(rounds ...RoundTotals) *Leaderboard {
	b := NewBuilder()
	for _, r := range rounds {
		b.Add(r)
	}
	return b.Leaderboard()
}

// Rank orders totals by score descending, breaking ties by ascending author.
func Rank(totals map[string]int) []Standing {
	list := make([]Standing, 0, len(totals))
	for author, score := range totals {
		list = append(list, Standing{Author: author, Score: score})
	}

	slices.SortFunc(list, func(a, b Standing) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Author, b.Author)
	})

	for i := range list {
		if i > 0 && list[i].Score == list[i-1].Score {
			list[i].Rank = list[i-1].Rank
			continue
		}
		list[i].Rank = i + 1
	}
	return list
}
