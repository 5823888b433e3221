package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zerocrash/internal/api"
	"zerocrash/internal/config"
	"zerocrash/worker"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := api.Options{
			Addr:             cfg.Server.Addr,
			DefaultResults:   cfg.Engine.DefaultResults,
			ClientBurst:      cfg.Server.ClientBurst,
			ClientPerMinute:  cfg.Server.ClientPerMinute,
			MaxClients:       cfg.Server.MaxClients,
			SuggestCacheSize: cfg.Server.SuggestCacheSize,
			ShutdownTimeout:  config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second),
		}
		if a.audit != nil {
			opts.Audit = a.audit
		}
		if a.store != nil {
			opts.SharedCache = a.store
		}
		srv, err := api.New(a.svc, opts)
		if err != nil {
			return err
		}

		ws := append([]worker.Worker{srv}, a.workers...)
		mgr := worker.NewManager(ws...)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			slog.Info("serve: received signal, shutting down", "signal", s.String())
			cancel()
		}()

		return mgr.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
