package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/wayback-journey/internal/metrics"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run status and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			target = firstNonEmpty(target, e.cfg.Target)
			if target == "" {
				return fmt.Errorf("--target is required")
			}
			a, err := newApp(cmd.Context(), e.cfg, target, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			metrics.Init()
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", e.cfg.Server.Port),
				Handler:           a.StatusServer().Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serveUntilDone(cmd.Context(), srv, e.logger)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "checkpoint namespace to report on")
	return cmd
}

// serveUntilDone runs srv until ctx ends, then drains in-flight requests.
func serveUntilDone(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("status server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("drain status server: %w", err)
		}
		logger.Info("status server stopped")
		return nil
	})
	return g.Wait()
}
