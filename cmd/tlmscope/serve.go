package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tlmscope/internal/admin"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fetch, query preview and metrics over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		addr := serveAddr
		if addr == "" {
			addr = a.cfg.Metrics.Addr
		}
		if addr == "" {
			addr = ":8080"
		}
		srv := admin.NewServer(a.orch, a.builder, a.metrics, a.log)
		return srv.Start(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (metrics.addr or :8080 when empty)")
}
