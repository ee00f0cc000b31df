package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/ensnano-geometry/internal/api"
	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/metrics"
	"github.com/banshee-data/ensnano-geometry/internal/storage/sqlite"
)

const shutdownTimeout = 5 * time.Second

type serveOpts struct {
	listen    string
	db        string
	noMetrics bool
}

// serveCommand serves a design over HTTP until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts
	cmd := &cobra.Command{
		Use:   "serve [design]",
		Short: "Serve frames, validation and background relaxation over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var d *design.Design
			if len(args) == 1 {
				var err error
				if d, err = c.loadDesign(args[0]); err != nil {
					return err
				}
			} else {
				p, err := dna.ParametersFromTuning(c.tuning)
				if err != nil {
					return err
				}
				d = design.New(p)
			}
			ln, err := net.Listen("tcp", opts.listen)
			if err != nil {
				return err
			}
			return c.serve(cmd.Context(), ln, d, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.listen, "listen", "l", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.db, "db", "", "snapshot database (snapshots disabled when empty)")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "do not serve /metrics")
	return cmd
}

// serve runs the API on ln until ctx is cancelled, then drains in-flight
// requests and stops any running job.
func (c *CLI) serve(ctx context.Context, ln net.Listener, d *design.Design, opts serveOpts) error {
	sopts := api.Options{Tuning: c.tuning}
	if opts.db != "" {
		store, err := sqlite.Open(opts.db)
		if err != nil {
			ln.Close()
			return err
		}
		defer store.Close()
		sopts.Store = store
	}
	if !opts.noMetrics {
		sopts.Metrics = metrics.New()
	}
	srv := api.NewServer(d, sopts)
	server := &http.Server{
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Logger.Info("listening", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		c.Logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			c.Logger.Warn("HTTP server shutdown error", "err", err)
		}
		// No request can start a job any more.
		srv.Runner().Stop()
		select {
		case <-srv.Runner().Done():
		case <-shutdownCtx.Done():
			c.Logger.Warn("background job did not stop in time")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	c.Logger.Info("graceful shutdown complete")
	return nil
}
