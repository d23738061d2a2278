package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mchmarny/poetry/pkg/contest"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080
)

const portFlagName = "port"

func newServerCmd() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Serve the leaderboard and scoring metrics over HTTP",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			manifestFlag(),
			dbFlag(),
			titlesFlag(),
			&cli.IntFlag{
				Name:  portFlagName,
				Usage: "Port on which the server will listen",
				Value: serverPortDefault,
			},
		},
	}
}

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	opts := scoreOptions(cmd, cfg)

	// every rescore reloads the source so edits show up without a restart
	b, err := newBoard(ctx, func(ctx context.Context) (*contest.Leaderboard, error) {
		m, err := loadContest(ctx, cmd, cfg)
		if err != nil {
			return nil, err
		}
		return contest.Score(ctx, m, opts)
	})
	if err != nil {
		return err
	}

	address := fmt.Sprintf("127.0.0.1:%d", cmd.Int(portFlagName))
	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(b),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("server started", "address", "http://"+address, "run", cfg.RunID)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func makeRouter(b *board) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthAPIHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /leaderboard", leaderboardAPIHandler(b))
	mux.HandleFunc("GET /leaderboard/{author}", authorAPIHandler(b))
	mux.HandleFunc("POST /score", scoreAPIHandler(b))

	return mux
}
