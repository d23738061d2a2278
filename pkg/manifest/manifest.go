// Package manifest reads and writes contest manifests on disk.
//
// A manifest is JSON (comments and trailing commas allowed) or YAML. Entry
// contents are either inline or referenced by a path relative to the file
// that declares the entry, and a round may itself live in a separate file:
//
//	{
//	  "categories": [{"keywords": ["rose", "thorn"]}],
//	  "rounds": [
//	    {"entries": [{"author": "7", "path": "0.txt"}]},
//	    {"path": "round-1.json"} // {"entries": [...]}
//	  ]
//	}
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/poetry/pkg/contest"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the manifest name inside a data directory.
	FileName = "manifest.json"

	// DataDirName is the data directory name inside the workspace root.
	DataDirName = "data"

	fileMode = 0600
)

// File is the on-disk form of a contest manifest.
type File struct {
	Categories []contest.Category `json:"categories" yaml:"categories"`
	Rounds     []RoundRecord      `json:"rounds" yaml:"rounds"`
}

// RoundRecord is either an inline list of entries or a reference to a round file.
type RoundRecord struct {
	Path    string        `json:"path,omitempty" yaml:"path,omitempty"`
	Entries []EntryRecord `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// EntryRecord is an entry with inline contents or a path to its contents.
// Contents is a pointer so that empty inline contents differ from none.
type EntryRecord struct {
	Author   string  `json:"author" yaml:"author"`
	Title    string  `json:"title,omitempty" yaml:"title,omitempty"`
	Contents *string `json:"contents,omitempty" yaml:"contents,omitempty"`
	Path     string  `json:"path,omitempty" yaml:"path,omitempty"`
}

// LoaderError reports a manifest, round or entry file that could not be
// read or parsed.
type LoaderError struct {
	Path string
	Err  error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *LoaderError) Unwrap() error {
	return e.Err
}

// Parse decodes a manifest. YAML is used when path ends in .yaml or .yml,
// JSONC otherwise; path is only used to pick the format.
func Parse(path string, data []byte) (*File, error) {
	var f File
	if err := decode(path, data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// ReadFile reads and parses the manifest at path.
func ReadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoaderError{Path: path, Err: err}
	}
	f, err := Parse(path, b)
	if err != nil {
		return nil, &LoaderError{Path: path, Err: err}
	}
	return f, nil
}

// Write saves f as indented JSON at path.
func Write(path string, f *File) error {
	if f == nil {
		return errors.New("manifest required")
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// FromContest converts an in-memory manifest into its inline on-disk form.
func FromContest(m *contest.Manifest) *File {
	f := &File{
		Categories: m.Categories,
		Rounds:     make([]RoundRecord, len(m.Rounds)),
	}
	for i, r := range m.Rounds {
		entries := make([]EntryRecord, len(r.Entries))
		for j, e := range r.Entries {
			contents := e.Contents
			entries[j] = EntryRecord{Author: e.Author, Title: e.Title, Contents: &contents}
		}
		f.Rounds[i] = RoundRecord{Entries: entries}
	}
	return f
}

func decode(path string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parsing yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), v); err != nil {
			return fmt.Errorf("parsing json: %w", err)
		}
	}
	return nil
}
