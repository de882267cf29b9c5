package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/avaropoint/tlsguard/internal/metrics"
	"github.com/avaropoint/tlsguard/internal/security"
	"github.com/avaropoint/tlsguard/internal/store"
)

// shutdownTimeout bounds how long in-flight scrapes may take on exit.
const shutdownTimeout = 5 * time.Second

func (a *app) newInitCmd() *cobra.Command {
	var (
		hold        bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Gate, initialize and tear down the library",
		Long: `Run the version gate, initialize the library the way a server does at
startup, report the threading model and lock count, then tear it down.

With --hold the library stays initialized and Prometheus metrics are
served until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.Metrics.Addr = metricsAddr
			}
			return a.runInit(cmd.Context(), cmd.OutOrStdout(), hold)
		},
	}
	cmd.Flags().BoolVar(&hold, "hold", false, "stay initialized and serve metrics until interrupted")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "metrics listen address (default metrics.addr)")
	return cmd
}

func (a *app) runInit(ctx context.Context, out io.Writer, hold bool) error {
	lib, err := a.open()
	if err != nil {
		return err
	}
	defer lib.Close() //nolint:errcheck

	if err := security.CheckVersion(a.cfg.Security.AllowVulnerableOpenSSL, lib, a.log); err != nil {
		a.audit(ctx, a.newRecord(store.ActionInit, lib, err))
		return err
	}

	sc := security.NewContext(lib, a.log)
	err = sc.Init()
	a.audit(ctx, a.newRecord(store.ActionInit, lib, err))
	if err != nil {
		return err
	}
	defer sc.Teardown()

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "library:\t%s\n", lib.Path())
	fmt.Fprintf(tw, "version:\t%s\n", sc.Version())
	fmt.Fprintf(tw, "threading:\t%s\n", sc.Model())
	locks := 0
	if la := sc.Locks(); la != nil {
		locks = la.Len()
	}
	fmt.Fprintf(tw, "locks:\t%d\n", locks)
	if err := tw.Flush(); err != nil {
		return err
	}

	if !hold {
		return nil
	}
	return a.serveMetrics(ctx, sc)
}

// serveMetrics blocks until ctx is done or a termination signal arrives.
// The server is fully stopped before returning so no scrape can race the
// deferred Teardown.
func (a *app) serveMetrics(ctx context.Context, src metrics.Source) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector(src)); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	a.log.Info("serving metrics", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
