package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"projinfo/internal/api"
	"projinfo/internal/config"
	"projinfo/internal/server"
	"projinfo/internal/util"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	port      int
	noBrowser bool
	dataDir   string
}

func newServeCmd(g *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local form and open it in the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g, opts)
		},
	}
	cmd.Flags().IntVar(&opts.port, "port", 0, "Server port (only used when config.toml does not set one)")
	cmd.Flags().BoolVar(&g.devMode, "dev", false, "Development mode")
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Do not open the browser")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Data directory (overrides config)")
	return cmd
}

func runServe(ctx context.Context, g *globalOptions, opts *serveOptions) error {
	cfg := g.cfg
	logger := g.logger

	// 命令行参数覆盖配置
	if opts.port > 0 && !g.cfgInfo.PortSpecified {
		cfg.Server.Port = opts.port
	}
	if g.devMode {
		cfg.Server.DevMode = true
	}
	if opts.dataDir != "" {
		cfg.Data.DataDir = opts.dataDir
	}

	fmt.Println("==========================================")
	fmt.Println("  Project Info Updater")
	fmt.Println("==========================================")

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewHandler(a.coordinator, a.store, api.Settings{
		Version:     version,
		Recursive:   cfg.Updater.Recursive,
		ESPolicy:    cfg.Updater.ESPolicy,
		BlankPolicy: cfg.Updater.BlankPolicy,
		LogDir:      config.LogDir(cfg),
	}, logger.Named("api"))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	srv := server.NewServer(handler, addr, cfg.Server.DevMode, logger.Named("http"))

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		fmt.Printf("Listening on port %d ...\n", cfg.Server.Port)
		return srv.ListenAndServe()
	})
	eg.Go(func() error {
		<-egCtx.Done()
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// 打开浏览器
	if !cfg.Server.DevMode && !opts.noBrowser {
		fmt.Printf("Opening browser: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			logger.Warn("open browser failed", zap.Error(err))
			fmt.Printf("Could not open the browser, visit %s\n", url)
		}
	} else {
		fmt.Printf("Visit %s\n", url)
	}
	fmt.Println("\nPress Ctrl+C to stop.")

	return eg.Wait()
}
