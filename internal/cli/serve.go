package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"todosync-cli/internal/api"
	"todosync-cli/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var dbPath string
	var prefix string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the list service HTTP API backed by SQLite",
		Long: strings.TrimSpace(`
Run the list service: a JSON HTTP API over a local SQLite database.

Routes (under --prefix):
- POST   /lists/                      create a list
- GET    /lists/{slug}                fetch a list with its tasks
- PUT    /lists/{slug}                rename a list
- DELETE /lists/{slug}                delete a list
- POST   /lists/{slug}/tasks          create a task
- PUT    /lists/{slug}/tasks/{id}     update or move a task
- DELETE /lists/{slug}/tasks/{id}     delete a task
- GET    /health, GET /metrics
`),
		Example: strings.TrimSpace(`
# Serve on localhost with a database in the current directory
todosync serve --addr 127.0.0.1:8000 --db ./todosync.db

# Mount under /api
todosync serve --prefix /api
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(ctx, dbPath, store.Options{Logger: app.logger()})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			srv, err := api.NewServer(st, api.ServerConfig{
				Addr:   listenAddr,
				Prefix: prefix,
				Logger: app.logger(),
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", srv.Addr())
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + srv.Prefix()

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"db":        dbPath,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{"todosync --server " + strings.TrimSuffix(url, "/") + " lists create <name>"},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "todosync list service running at %s (db=%s)\n", url, dbPath)

			return serveUntilDone(ctx, ln, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Bind address (host:port or :port)")
	cmd.Flags().StringVar(&dbPath, "db", envOr("TODOSYNC_DB", "todosync.db"), "SQLite database path (:memory: for an ephemeral store)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Path prefix for all routes, e.g. /api")
	return cmd
}

// serveUntilDone serves h on ln until ctx is cancelled, then shuts down
// gracefully.
func serveUntilDone(ctx context.Context, ln net.Listener, h http.Handler) error {
	hs := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return hs.Shutdown(sctx)
	})
	return g.Wait()
}
