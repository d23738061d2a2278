package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mchmarny/poetry/pkg/contest"
)

type scoreFunc func(ctx context.Context) (*contest.Leaderboard, error)

// board holds the most recently scored leaderboard.
type board struct {
	mu       sync.RWMutex
	lb       *contest.Leaderboard
	scoredAt time.Time
	score    scoreFunc
}

type boardResponse struct {
	ScoredAt  time.Time          `json:"scored_at"`
	Digest    string             `json:"digest"`
	Rounds    int                `json:"rounds"`
	Authors   int                `json:"authors"`
	Standings []contest.Standing `json:"standings"`
}

func newBoard(ctx context.Context, fn scoreFunc) (*board, error) {
	b := &board{score: fn}
	if err := b.refresh(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// refresh rescores the contest. The previous leaderboard is kept on error.
func (b *board) refresh(ctx context.Context) error {
	lb, err := b.score(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lb = lb
	b.scoredAt = time.Now().UTC()
	return nil
}

func (b *board) snapshot() (*contest.Leaderboard, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lb, b.scoredAt
}

func (b *board) response(top int) *boardResponse {
	lb, at := b.snapshot()
	return &boardResponse{
		ScoredAt:  at,
		Digest:    lb.Digest(),
		Rounds:    lb.Rounds,
		Authors:   lb.Authors,
		Standings: lb.Top(top),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryParamInt returns a positive int query parameter or def.
func queryParamInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil || i < 1 {
		slog.Debug("ignoring query parameter", "key", key, "value", v)
		return def
	}
	return i
}

func leaderboardAPIHandler(b *board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, b.response(queryParamInt(r, "top", 0)))
	}
}

func authorAPIHandler(b *board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		author := r.PathValue("author")
		lb, _ := b.snapshot()

		s, ok := lb.Find(author)
		if !ok {
			writeError(w, http.StatusNotFound, "author not found: "+author)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func scoreAPIHandler(b *board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := b.refresh(r.Context()); err != nil {
			slog.Error("failed to rescore contest", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, b.response(queryParamInt(r, "top", 0)))
	}
}

func healthAPIHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
