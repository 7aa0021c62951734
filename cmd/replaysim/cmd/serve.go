package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/replaysim/internal/gateway"
	"github.com/rustyeddy/replaysim/replay"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the replay to a chart over websocket",
	Long: `Start the websocket gateway. Charts connect to /ws and send commands;
read-only views live under /api and Prometheus metrics under server.metrics_path.

Example:
  replaysim serve -c replay.yaml --addr :9090`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "override server.addr")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	hub := gateway.NewHub(a.sess, a.metrics, a.log)
	defer hub.Close()

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, reg, cfg.Server.MetricsPath)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := replay.NewDriver(a.sess, a.log).Run(ctx); err != nil {
			a.log.Error("replay driver", "error", err)
		}
	}()

	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", cfg.Server.Addr, "session", a.sess.ID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
