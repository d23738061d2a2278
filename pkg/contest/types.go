// Package contest scores contest entries against keyword categories and folds
// the per-entry scores into a per-author leaderboard across rounds.
package contest

// Category is a set of keywords an entry may match. A category is identified
// by its position in the contest's category list.
type Category struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Entry is one contest submission.
type Entry struct {
	Author   string `json:"author" yaml:"author"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Contents string `json:"contents" yaml:"contents"`
}

// Round is a batch of entries scored together.
type Round struct {
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Manifest describes a whole contest: its categories and all its rounds.
type Manifest struct {
	Categories []Category `json:"categories" yaml:"categories"`
	Rounds     []Round    `json:"rounds" yaml:"rounds"`
}

// EntryCount returns the number of entries across all rounds.
func (m *Manifest) EntryCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, r := range m.Rounds {
		n += len(r.Entries)
	}
	return n
}

// EntryScore is the result of scoring a single entry.
type EntryScore struct {
	Author  string `json:"author" yaml:"author"`
	Matched []int  `json:"matched" yaml:"matched"`
	Score   int    `json:"score" yaml:"score"`
}
