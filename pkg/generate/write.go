package generate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mchmarny/poetry/pkg/manifest"
)

const (
	dirMode  = 0700
	fileMode = 0600
)

// Summary describes a data set written by Write.
type Summary struct {
	Dir        string `json:"dir" yaml:"dir"`
	Manifest   string `json:"manifest" yaml:"manifest"`
	Categories int    `json:"categories" yaml:"categories"`
	Rounds     int    `json:"rounds" yaml:"rounds"`
	Entries    int    `json:"entries" yaml:"entries"`
	Seed       uint64 `json:"seed" yaml:"seed"`
}

// Write replaces the contents of dir with a fresh data set: a manifest.json
// plus one <index>.txt file per entry, indexed across all rounds. A directory
// that is neither empty nor a previous data set is left untouched.
func Write(dir string, opts Options) (*Summary, error) {
	if dir == "" {
		return nil, errors.New("data directory required")
	}

	g, err := New(opts)
	if err != nil {
		return nil, err
	}

	if err := resetDir(dir); err != nil {
		return nil, err
	}

	slog.Info("generating data set", "dir", dir, "seed", opts.Seed)

	f := &manifest.File{
		Categories: g.Categories(),
		Rounds:     make([]manifest.RoundRecord, opts.Rounds),
	}
	slog.Debug("generated categories", "count", len(f.Categories))

	index := 0
	logEvery := max(1, opts.Rounds/10)
	for i := range f.Rounds {
		n := g.EntryCount()
		entries := make([]manifest.EntryRecord, n)
		for j := range entries {
			author := g.Author()
			name := strconv.Itoa(index) + ".txt"
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(g.Contents()), fileMode); err != nil {
				return nil, fmt.Errorf("writing entry file %s: %w", path, err)
			}
			entries[j] = manifest.EntryRecord{Author: author, Path: name}
			index++
		}
		f.Rounds[i] = manifest.RoundRecord{Entries: entries}

		if (i+1)%logEvery == 0 || i == len(f.Rounds)-1 {
			slog.Info("generated rounds", "done", i+1, "total", opts.Rounds, "entries", index)
		}
	}

	path := filepath.Join(dir, manifest.FileName)
	if err := manifest.Write(path, f); err != nil {
		return nil, err
	}

	return &Summary{
		Dir:        dir,
		Manifest:   path,
		Categories: len(f.Categories),
		Rounds:     len(f.Rounds),
		Entries:    index,
		Seed:       opts.Seed,
	}, nil
}

func resetDir(dir string) error {
	list, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("reading %s: %w", dir, err)
	case len(list) == 0:
	default:
		if _, err := os.Stat(filepath.Join(dir, manifest.FileName)); err != nil {
			return fmt.Errorf("refusing to replace %s: not empty and has no %s", dir, manifest.FileName)
		}
		slog.Info("removing existing data set", "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
