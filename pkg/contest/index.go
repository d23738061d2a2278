package contest

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Index is a reverse lookup from keyword to the categories that contain it.
// It is built once and never mutated, so a single *Index can be shared by any
// number of goroutines.
type Index struct {
	postings map[string][]int
	size     int
	scratch  sync.Pool
}

// matchState is per-query scratch. seen[i] == epoch marks category i as already
// hit by the current query, so the array never needs clearing between queries.
type matchState struct {
	seen  []uint32
	epoch uint32
	hits  []int
}

func (s *matchState) reset() {
	s.epoch++
	if s.epoch == 0 {
		clear(s.seen)
		s.epoch = 1
	}
	s.hits = s.hits[:0]
}

// BuildIndex validates the categories and builds their reverse index.
// Every category needs at least one keyword, and a keyword must be a single
// non-empty whitespace-free token, otherwise it could never match.
func BuildIndex(categories []Category) (*Index, error) {
	if err := ValidateCategories(categories); err != nil {
		return nil, err
	}

	x := &Index{
		postings: make(map[string][]int),
		size:     len(categories),
	}

	for i, c := range categories {
		for _, k := range c.Keywords {
			list := x.postings[k]
			// categories are visited in order, so a repeat is always the tail
			if n := len(list); n > 0 && list[n-1] == i {
				continue
			}
			x.postings[k] = append(list, i)
		}
	}

	// trim posting lists so shared slices cannot be appended to in place
	for k, list := range x.postings {
		x.postings[k] = slices.Clip(list)
	}

	size := x.size
	x.scratch.New = func() any {
		return &matchState{
			seen: make([]uint32, size),
			hits: make([]int, 0, size),
		}
	}

	return x, nil
}

// ValidateCategories checks that every category can be indexed.
func ValidateCategories(categories []Category) error {
	for i, c := range categories {
		if len(c.Keywords) == 0 {
			return &InvalidCategoryError{Index: i, Reason: "no keywords"}
		}
		for j, k := range c.Keywords {
			if k == "" {
				return &InvalidCategoryError{Index: i, Reason: fmt.Sprintf("empty keyword at position %d", j)}
			}
			if strings.IndexFunc(k, unicode.IsSpace) >= 0 {
				return &InvalidCategoryError{Index: i, Reason: fmt.Sprintf("keyword %q contains whitespace", k)}
			}
		}
	}
	return nil
}

// Len returns the number of indexed categories.
func (x *Index) Len() int {
	return x.size
}

// Keywords returns the number of distinct indexed keywords.
func (x *Index) Keywords() int {
	return len(x.postings)
}

// Lookup returns the ascending category indices containing keyword.
// The returned slice is shared and must not be modified.
func (x *Index) Lookup(keyword string) []int {
	return x.postings[keyword]
}

// MatchingCategories returns, in ascending order, every category with at least
// one keyword equal to a whitespace-delimited token of text.
func (x *Index) MatchingCategories(text string) []int {
	s := x.acquire()
	defer x.release(s)

	x.match(s, text)
	return sortedCopy(s.hits)
}

func (x *Index) acquire() *matchState {
	s := x.scratch.Get().(*matchState)
	s.reset()
	return s
}

func (x *Index) release(s *matchState) {
	x.scratch.Put(s)
}

// match records into s every category hit by a token of text. It returns true
// once all categories have been hit, as no further token can change the result.
func (x *Index) match(s *matchState, text string) bool {
	if len(s.hits) == x.size {
		return true
	}
	for i := 0; i < len(text); {
		var token string
		token, i = nextToken(text, i)
		for _, c := range x.postings[token] {
			if s.seen[c] == s.epoch {
				continue
			}
			s.seen[c] = s.epoch
			s.hits = append(s.hits, c)
		}
		if len(s.hits) == x.size {
			return true
		}
	}
	return false
}

// nextToken returns the first whitespace-delimited token of text[i:] and the
// offset just past it. The token is empty once text is exhausted.
func nextToken(text string, i int) (string, int) {
	for i < len(text) {
		r, n := decodeRune(text, i)
		if !unicode.IsSpace(r) {
			break
		}
		i += n
	}
	start := i
	for i < len(text) {
		r, n := decodeRune(text, i)
		if unicode.IsSpace(r) {
			break
		}
		i += n
	}
	return text[start:i], i
}

func decodeRune(s string, i int) (rune, int) {
	if c := s[i]; c < utf8.RuneSelf {
		return rune(c), 1
	}
	return utf8.DecodeRuneInString(s[i:])
}

func sortedCopy(hits []int) []int {
	out := make([]int, len(hits))
	copy(out, hits)
	slices.Sort(out)
	return out
}
