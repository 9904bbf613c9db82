package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dbmeta/internal/api"
	"dbmeta/internal/db"
	"dbmeta/internal/logger"
	"dbmeta/internal/metadata"
	"dbmeta/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "http port (overrides config)")
}

func serve(ctx context.Context) error {
	cfg := appCfg
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	store, err := session.NewStore(ctx, cfg)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store, cfg.Session.Secret, cfg.Session.TTL)
	// a connection outlives its last request by one session TTL
	pcfg := db.DefaultPoolConfig()
	pcfg.IdleTimeout = cfg.Session.TTL
	pool := db.NewPool(pcfg)
	defer func() {
		if err := sessions.Shutdown(); err != nil {
			logger.Error("close session store: %v", err)
		}
		if err := pool.Close(); err != nil {
			logger.Error("close connections: %v", err)
		}
	}()

	srv := api.NewServer(sessions, metadata.New(pool), api.Config{
		Defaults:       cfg.Database,
		CookieName:     cfg.Session.CookieName,
		ConnectTimeout: cfg.Server.ConnectTimeout,
	})

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening on %s (session store %s)", httpSrv.Addr, cfg.Session.Store)
		logger.Info("registered dialects: %v", db.RegisteredDialects())
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
