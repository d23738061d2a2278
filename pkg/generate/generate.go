// Package generate creates synthetic contest data sets.
//
// Words are integers rendered as strings ("1" .. Vocabulary). Word choice is
// biased towards the low end of the vocabulary, where short words differ the
// most, by cubing a uniform sample.
package generate

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/mchmarny/poetry/pkg/contest"
)

const lowBiasPower = 3

// Options sizes a generated contest. Ranges are inclusive.
type Options struct {
	Rounds      int    `json:"rounds" yaml:"rounds"`
	Categories  int    `json:"categories" yaml:"categories"`
	Authors     int    `json:"authors" yaml:"authors"`
	MinEntries  int    `json:"min_entries" yaml:"minEntries"`
	MaxEntries  int    `json:"max_entries" yaml:"maxEntries"`
	MinWords    int    `json:"min_words" yaml:"minWords"`
	MaxWords    int    `json:"max_words" yaml:"maxWords"`
	MinKeywords int    `json:"min_keywords" yaml:"minKeywords"`
	MaxKeywords int    `json:"max_keywords" yaml:"maxKeywords"`
	LineWords   int    `json:"line_words" yaml:"lineWords"`
	Vocabulary  int    `json:"vocabulary" yaml:"vocabulary"`
	Seed        uint64 `json:"seed" yaml:"seed"`
}

// DefaultOptions returns the size of the reference data set.
func DefaultOptions() Options {
	return Options{
		Rounds:      200,
		Categories:  20,
		Authors:     250,
		MinEntries:  500,
		MaxEntries:  2000,
		MinWords:    20,
		MaxWords:    250,
		MinKeywords: 1,
		MaxKeywords: 100,
		LineWords:   10,
		Vocabulary:  128_000,
	}
}

// Validate checks that every range is non-empty and every count usable.
func (o Options) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	nonNegative := func(name string, v int) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	ordered := func(name string, lo, hi int) {
		if lo > hi {
			errs = append(errs, fmt.Errorf("%s range is empty: %d > %d", name, lo, hi))
		}
	}

	nonNegative("rounds", o.Rounds)
	nonNegative("categories", o.Categories)
	positive("authors", o.Authors)
	nonNegative("min entries", o.MinEntries)
	ordered("entries", o.MinEntries, o.MaxEntries)
	positive("min words", o.MinWords)
	ordered("words", o.MinWords, o.MaxWords)
	positive("min keywords", o.MinKeywords)
	ordered("keywords", o.MinKeywords, o.MaxKeywords)
	positive("line words", o.LineWords)
	positive("vocabulary", o.Vocabulary)

	return errors.Join(errs...)
}

// Generator produces a reproducible contest for a given Options.Seed.
type Generator struct {
	opts  Options
	rng   *rand.Rand
	vocab []string
	buf   strings.Builder
}

// New returns a Generator for opts.
func New(opts Options) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	vocab := make([]string, opts.Vocabulary)
	for i := range vocab {
		vocab[i] = strconv.Itoa(i + 1)
	}

	return &Generator{
		opts:  opts,
		rng:   rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		vocab: vocab,
	}, nil
}

// Manifest generates a whole contest in memory with inline entry contents.
func (g *Generator) Manifest() *contest.Manifest {
	m := &contest.Manifest{
		Categories: g.Categories(),
		Rounds:     make([]contest.Round, g.opts.Rounds),
	}
	for i := range m.Rounds {
		n := g.EntryCount()
		entries := make([]contest.Entry, n)
		for j := range entries {
			entries[j] = contest.Entry{Author: g.Author(), Contents: g.Contents()}
		}
		m.Rounds[i] = contest.Round{Entries: entries}
	}
	return m
}

// Categories generates the category list.
func (g *Generator) Categories() []contest.Category {
	list := make([]contest.Category, g.opts.Categories)
	for i := range list {
		n := g.between(g.opts.MinKeywords, g.opts.MaxKeywords)
		keywords := make([]string, n)
		for j := range keywords {
			keywords[j] = g.Word()
		}
		list[i] = contest.Category{Keywords: keywords}
	}
	return list
}

// Author picks an author identifier in [0, Authors).
func (g *Generator) Author() string {
	return strconv.Itoa(g.rng.IntN(g.opts.Authors))
}

// Contents generates entry text, breaking lines every LineWords words.
func (g *Generator) Contents() string {
	g.buf.Reset()
	n := g.between(g.opts.MinWords, g.opts.MaxWords)
	for i := range n {
		if i > 0 {
			if i%g.opts.LineWords == 0 {
				g.buf.WriteByte('\n')
			} else {
				g.buf.WriteByte(' ')
			}
		}
		g.buf.WriteString(g.Word())
	}
	return g.buf.String()
}

// Word picks a vocabulary word, favoring low numbers.
func (g *Generator) Word() string {
	selector := math.Pow(g.rng.Float64(), lowBiasPower)
	i := min(int(selector*float64(len(g.vocab))), len(g.vocab)-1)
	return g.vocab[i]
}

// EntryCount draws the number of entries of the next round.
func (g *Generator) EntryCount() int {
	return g.between(g.opts.MinEntries, g.opts.MaxEntries)
}

func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}
