package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mchmarny/poetry/pkg/contest"
	"golang.org/x/sync/errgroup"
)

const workspaceMarker = "go.mod"

var errNoWorkspace = errors.New("workspace root not found")

// Load reads the manifest at path and resolves every round and entry file it
// references. Entry files are read by up to workers goroutines; zero means
// GOMAXPROCS.
func Load(ctx context.Context, path string, workers int) (*contest.Manifest, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return f.Resolve(ctx, filepath.Dir(path), workers)
}

// Resolve materializes f into a contest manifest. Relative paths in f are
// resolved against dir; relative entry paths inside a round file are resolved
// against that round file's directory.
func (f *File) Resolve(ctx context.Context, dir string, workers int) (*contest.Manifest, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	m := &contest.Manifest{
		Categories: f.Categories,
		Rounds:     make([]contest.Round, len(f.Rounds)),
	}

	// expand round references and validate entries before any content I/O
	type pending struct {
		round, entry int
		path         string
	}
	var reads []pending

	for i, rec := range f.Rounds {
		base := dir
		if rec.Path != "" {
			if len(rec.Entries) > 0 {
				return nil, &LoaderError{Path: rec.Path, Err: fmt.Errorf("round %d has both a path and inline entries", i)}
			}
			rp := resolvePath(dir, rec.Path)
			loaded, err := readRound(rp)
			if err != nil {
				return nil, err
			}
			rec = *loaded
			base = filepath.Dir(rp)
		}

		entries := make([]contest.Entry, len(rec.Entries))
		for j, e := range rec.Entries {
			if strings.TrimSpace(e.Author) == "" {
				return nil, &contest.InvalidEntryError{Round: i, Entry: j, Reason: "missing author"}
			}
			entries[j] = contest.Entry{Author: e.Author, Title: e.Title}
			switch {
			case e.Path != "" && e.Contents != nil:
				return nil, &contest.InvalidEntryError{Round: i, Entry: j, Reason: "both contents and path set"}
			case e.Path == "" && e.Contents == nil:
				return nil, &contest.InvalidEntryError{Round: i, Entry: j, Reason: "missing contents or path"}
			case e.Path != "":
				reads = append(reads, pending{round: i, entry: j, path: resolvePath(base, e.Path)})
			default:
				entries[j].Contents = *e.Contents
			}
		}
		m.Rounds[i] = contest.Round{Entries: entries}
	}

	slog.Debug("resolving entry contents", "rounds", len(m.Rounds), "files", len(reads), "workers", workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range reads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := os.ReadFile(p.path)
			if err != nil {
				return &LoaderError{Path: p.path, Err: err}
			}
			// each goroutine owns a distinct slot
			m.Rounds[p.round].Entries[p.entry].Contents = string(b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return m, nil
}

func readRound(path string) (*RoundRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoaderError{Path: path, Err: err}
	}
	var rec RoundRecord
	if err := decode(path, b, &rec); err != nil {
		return nil, &LoaderError{Path: path, Err: err}
	}
	if rec.Path != "" {
		return nil, &LoaderError{Path: path, Err: errors.New("round file cannot reference another round file")}
	}
	return &rec, nil
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// FindWorkspaceRoot walks up from start to the first directory holding a
// go.mod file.
func FindWorkspaceRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, workspaceMarker)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w above %s", errNoWorkspace, start)
		}
		dir = parent
	}
}

// DefaultPath returns <workspace root>/data/manifest.json for the current
// working directory.
func DefaultPath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	root, err := FindWorkspaceRoot(wd)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, DataDirName, FileName), nil
}
