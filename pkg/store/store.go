// Package store persists contest manifests in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mchmarny/poetry/pkg/contest"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	// DataFileName is the default SQLite file name.
	DataFileName = "contest.db"

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

const (
	deleteKeywordsSQL = `DELETE FROM category_keyword`
	deleteRoundsSQL   = `DELETE FROM contest_round`
	deleteEntriesSQL  = `DELETE FROM entry`

	insertKeywordSQL = `INSERT INTO category_keyword (category_idx, keyword_idx, keyword) VALUES (?, ?, ?)`
	insertRoundSQL   = `INSERT INTO contest_round (round_idx) VALUES (?)`
	insertEntrySQL   = `INSERT INTO entry (round_idx, entry_idx, author, title, contents) VALUES (?, ?, ?, ?, ?)`

	selectKeywordsSQL = `SELECT category_idx, keyword
		FROM category_keyword
		ORDER BY category_idx, keyword_idx
	`

	selectRoundCountSQL = `SELECT COALESCE(MAX(round_idx) + 1, 0) FROM contest_round`

	selectEntriesSQL = `SELECT round_idx, author, title, contents
		FROM entry
		ORDER BY round_idx, entry_idx
	`

	selectSummarySQL = `SELECT
		(SELECT COUNT(DISTINCT category_idx) FROM category_keyword),
		(SELECT COUNT(*) FROM contest_round),
		(SELECT COUNT(*) FROM entry),
		(SELECT COUNT(DISTINCT author) FROM entry)
	`
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// Store holds one contest manifest.
type Store struct {
	db     *sql.DB
	driver string
}

// Summary counts what a Store holds.
type Summary struct {
	Categories int `json:"categories" yaml:"categories"`
	Rounds     int `json:"rounds" yaml:"rounds"`
	Entries    int `json:"entries" yaml:"entries"`
	Authors    int `json:"authors" yaml:"authors"`
}

// Open connects to dsn and creates the schema when missing. A postgres:// or
// postgresql:// URL selects PostgreSQL, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("dsn not specified")
	}

	driver := driverFor(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if driver == driverSQLite {
		// a single connection keeps in-memory databases and transactions coherent
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: driver}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres
	}
	return driverSQLite
}

func (s *Store) init(ctx context.Context) error {
	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		return fmt.Errorf("failed to read the schema creation file: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}
	slog.Debug("db schema ready", "driver", s.driver)
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Import replaces the stored contest with m in a single transaction.
func (s *Store) Import(ctx context.Context, m *contest.Manifest) (*Summary, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}
	if m == nil {
		return nil, errors.New("manifest not specified")
	}
	if err := contest.ValidateCategories(m.Categories); err != nil {
		return nil, err
	}
	for i, r := range m.Rounds {
		if err := contest.ValidateRound(r, i); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting import tx: %w", err)
	}

	if err := s.replace(ctx, tx, m); err != nil {
		rollbackTransaction(tx)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing import tx: %w", err)
	}

	slog.Info("contest imported",
		"categories", len(m.Categories),
		"rounds", len(m.Rounds),
		"entries", m.EntryCount())

	return s.Summary(ctx)
}

func (s *Store) replace(ctx context.Context, tx *sql.Tx, m *contest.Manifest) error {
	for _, q := range []string{deleteKeywordsSQL, deleteRoundsSQL, deleteEntriesSQL} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("error clearing contest: %w", err)
		}
	}

	kwStmt, err := tx.PrepareContext(ctx, s.rebind(insertKeywordSQL))
	if err != nil {
		return fmt.Errorf("error preparing keyword insert: %w", err)
	}
	defer kwStmt.Close()

	for i, c := range m.Categories {
		for j, k := range c.Keywords {
			if _, err := kwStmt.ExecContext(ctx, i, j, k); err != nil {
				return fmt.Errorf("error inserting keyword %d of category %d: %w", j, i, err)
			}
		}
	}

	roundStmt, err := tx.PrepareContext(ctx, s.rebind(insertRoundSQL))
	if err != nil {
		return fmt.Errorf("error preparing round insert: %w", err)
	}
	defer roundStmt.Close()

	entryStmt, err := tx.PrepareContext(ctx, s.rebind(insertEntrySQL))
	if err != nil {
		return fmt.Errorf("error preparing entry insert: %w", err)
	}
	defer entryStmt.Close()

	for i, r := range m.Rounds {
		if _, err := roundStmt.ExecContext(ctx, i); err != nil {
			return fmt.Errorf("error inserting round %d: %w", i, err)
		}
		for j, e := range r.Entries {
			if _, err := entryStmt.ExecContext(ctx, i, j, e.Author, e.Title, e.Contents); err != nil {
				return fmt.Errorf("error inserting round %d, entry %d: %w", i, j, err)
			}
		}
	}
	return nil
}

// Load reconstructs the stored contest. Rounds without entries are kept.
func (s *Store) Load(ctx context.Context) (*contest.Manifest, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	categories, err := s.loadCategories(ctx)
	if err != nil {
		return nil, err
	}

	var rounds int
	if err := s.db.QueryRowContext(ctx, selectRoundCountSQL).Scan(&rounds); err != nil {
		return nil, fmt.Errorf("error counting rounds: %w", err)
	}

	list, err := s.loadRounds(ctx, rounds)
	if err != nil {
		return nil, err
	}

	return &contest.Manifest{Categories: categories, Rounds: list}, nil
}

func (s *Store) loadCategories(ctx context.Context) ([]contest.Category, error) {
	rows, err := s.db.QueryContext(ctx, selectKeywordsSQL)
	if err != nil {
		return nil, fmt.Errorf("error querying keywords: %w", err)
	}
	defer rows.Close()

	list := []contest.Category{}
	for rows.Next() {
		var idx int
		var kw string
		if err := rows.Scan(&idx, &kw); err != nil {
			return nil, fmt.Errorf("error scanning keyword: %w", err)
		}
		for len(list) <= idx {
			list = append(list, contest.Category{})
		}
		list[idx].Keywords = append(list[idx].Keywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keywords: %w", err)
	}
	return list, nil
}

func (s *Store) loadRounds(ctx context.Context, count int) ([]contest.Round, error) {
	list := make([]contest.Round, count)
	for i := range list {
		list[i].Entries = []contest.Entry{}
	}

	rows, err := s.db.QueryContext(ctx, selectEntriesSQL)
	if err != nil {
		return nil, fmt.Errorf("error querying entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx int
		var e contest.Entry
		if err := rows.Scan(&idx, &e.Author, &e.Title, &e.Contents); err != nil {
			return nil, fmt.Errorf("error scanning entry: %w", err)
		}
		if idx < 0 || idx >= count {
			return nil, fmt.Errorf("entry references unknown round %d", idx)
		}
		list[idx].Entries = append(list[idx].Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return list, nil
}

// Summary counts the stored categories, rounds, entries and authors.
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}
	var sum Summary
	err := s.db.QueryRowContext(ctx, selectSummarySQL).Scan(&sum.Categories, &sum.Rounds, &sum.Entries, &sum.Authors)
	if err != nil {
		return nil, fmt.Errorf("error querying summary: %w", err)
	}
	return &sum, nil
}

func rollbackTransaction(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("error rolling back transaction", "error", err)
	}
}
