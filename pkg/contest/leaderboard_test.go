package contest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_TieBreak(t *testing.T) {
	got := Rank(map[string]int{"carol": 5, "bob": 7, "alice": 5, "dave": 0, "erin": 7})
	assert.Equal(t, []Standing{
		{Rank: 1, Author: "bob", Score: 7},
		{Rank: 1, Author: "erin", Score: 7},
		{Rank: 3, Author: "alice", Score: 5},
		{Rank: 3, Author: "carol", Score: 5},
		{Rank: 5, Author: "dave", Score: 0},
	}, got)
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}

func TestBuildLeaderboard(t *testing.T) {
	lb := BuildLeaderboard(
		RoundTotals{"A": 3, "B": 0},
		RoundTotals{"B": 2, "C": 1},
		RoundTotals{},
	)
	assert.Equal(t, 3, lb.Rounds)
	assert.Equal(t, 3, lb.Authors)
	assert.Equal(t, map[string]int{"A": 3, "B": 2, "C": 1}, lb.Totals())
}

func TestBuilder_Monotonic(t *testing.T) {
	m := randomManifest(21, 25, 60)
	x, err := BuildIndex(m.Categories)
	require.NoError(t, err)
	sc := NewScorer(x, Options{Workers: 1})

	b := NewBuilder()
	prev := b.Totals()
	for i, rd := range m.Rounds {
		totals, err := sc.AggregateRound(rd, i)
		require.NoError(t, err)
		b.Add(totals)

		cur := b.Totals()
		for author, score := range prev {
			assert.GreaterOrEqual(t, cur[author], score, "author %s decreased", author)
		}
		for _, score := range cur {
			assert.GreaterOrEqual(t, score, 0)
		}
		prev = cur
	}
	assert.Equal(t, len(m.Rounds), b.Rounds())
}

func TestBuilder_ConcurrentAdd(t *testing.T) {
	b := NewBuilder()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Add(RoundTotals{"A": 1, "B": i % 2})
		}()
	}
	wg.Wait()

	assert.Equal(t, map[string]int{"A": 100, "B": 50}, b.Totals())
	assert.Equal(t, 100, b.Rounds())
}

func TestRoundTotals_Merge(t *testing.T) {
	a := RoundTotals{"A": 1, "B": 2}
	b := RoundTotals{"B": 3, "C": 0}
	c := RoundTotals{"A": 4}

	left := RoundTotals{}
	left.Merge(a)
	left.Merge(b)
	left.Merge(c)

	right := RoundTotals{}
	right.Merge(c)
	right.Merge(b)
	right.Merge(a)

	assert.Equal(t, left, right)
	assert.Equal(t, RoundTotals{"A": 5, "B": 5, "C": 0}, left)
}

func TestLeaderboard_Digest(t *testing.T) {
	a := BuildLeaderboard(RoundTotals{"A": 3, "B": 0})
	b := BuildLeaderboard(RoundTotals{"B": 0}, RoundTotals{"A": 3})
	c := BuildLeaderboard(RoundTotals{"A": 3, "B": 1})

	assert.Len(t, a.Digest(), 64)
	assert.Equal(t, a.Digest(), b.Digest())
	assert.NotEqual(t, a.Digest(), c.Digest())

	// quoting keeps author boundaries unambiguous
	d := BuildLeaderboard(RoundTotals{"A\t3\n\"B\"": 0})
	assert.NotEqual(t, a.Digest(), d.Digest())
}

func TestLeaderboard_TopAndFind(t *testing.T) {
	lb := BuildLeaderboard(RoundTotals{"A": 3, "B": 2, "C": 1})

	assert.Len(t, lb.Top(2), 2)
	assert.Len(t, lb.Top(0), 3)
	assert.Len(t, lb.Top(10), 3)

	s, ok := lb.Find("B")
	assert.True(t, ok)
	assert.Equal(t, Standing{Rank: 2, Author: "B", Score: 2}, s)

	_, ok = lb.Find("Z")
	assert.False(t, ok)
}
