package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mchmarny/poetry/pkg/contest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), DataFileName))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testManifest() *contest.Manifest {
	return &contest.Manifest{
		Categories: []contest.Category{
			{Keywords: []string{"rose"}},
			{Keywords: []string{"rose", "thorn", "rose"}},
		},
		Rounds: []contest.Round{
			{Entries: []contest.Entry{
				{Author: "A", Contents: "a red rose"},
				{Author: "A", Title: "second", Contents: "a thorn"},
				{Author: "B", Contents: "nothing relevant"},
			}},
			{Entries: []contest.Entry{}},
			{Entries: []contest.Entry{{Author: "C", Contents: "thorn"}}},
		},
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), DataFileName)
	s1, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, driverSQLite, s2.Driver())
	require.NoError(t, s2.Close())
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, driverPostgres, driverFor("postgres://u:p@localhost/db"))
	assert.Equal(t, driverPostgres, driverFor("postgresql://localhost/db"))
	assert.Equal(t, driverSQLite, driverFor("/tmp/contest.db"))
	assert.Equal(t, driverSQLite, driverFor("file::memory:"))
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: driverPostgres}
	lite := &Store{driver: driverSQLite}

	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", pg.rebind("INSERT INTO t (a, b) VALUES (?, ?)"))
	assert.Equal(t, "VALUES (?, ?)", lite.rebind("VALUES (?, ?)"))
}

func testRoundTrip(t *testing.T, s *Store) {
	ctx := context.Background()
	in := testManifest()

	sum, err := s.Import(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Categories: 2, Rounds: 3, Entries: 4, Authors: 3}, sum)

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	want, err := contest.Score(ctx, in, contest.Options{})
	require.NoError(t, err)
	got, err := contest.Score(ctx, out, contest.Options{})
	require.NoError(t, err)
	assert.Equal(t, want.Digest(), got.Digest())

	// a second import replaces the first
	_, err = s.Import(ctx, &contest.Manifest{
		Categories: []contest.Category{{Keywords: []string{"x"}}},
	})
	require.NoError(t, err)

	out, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, out.Categories, 1)
	assert.Empty(t, out.Rounds)
}

func TestImportLoad_SQLite(t *testing.T) {
	testRoundTrip(t, setupTestStore(t))
}

func TestImport_Invalid(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Import(ctx, testManifest())
	require.NoError(t, err)

	bad := testManifest()
	bad.Categories = append(bad.Categories, contest.Category{})
	_, err = s.Import(ctx, bad)
	assert.ErrorIs(t, err, contest.ErrInvalidCategory)

	bad = testManifest()
	bad.Rounds[2].Entries[0].Author = ""
	_, err = s.Import(ctx, bad)
	assert.ErrorIs(t, err, contest.ErrInvalidEntry)

	_, err = s.Import(ctx, nil)
	assert.Error(t, err)

	// failed imports leave the previous contest intact
	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Entries)
}

func TestLoad_Empty(t *testing.T) {
	s := setupTestStore(t)

	m, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, m.Categories)
	assert.Empty(t, m.Rounds)
}

func TestNilStore(t *testing.T) {
	var s *Store
	ctx := context.Background()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, errDBNotInitialized)
	_, err = s.Import(ctx, testManifest())
	assert.ErrorIs(t, err, errDBNotInitialized)
	_, err = s.Summary(ctx)
	assert.ErrorIs(t, err, errDBNotInitialized)
	assert.NoError(t, s.Close())
}
