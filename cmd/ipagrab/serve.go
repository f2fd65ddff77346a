package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"

	"github.com/ipagrab/ipagrab/internal/api"
	"github.com/ipagrab/ipagrab/internal/engine"
	"github.com/ipagrab/ipagrab/internal/history"
	"github.com/ipagrab/ipagrab/internal/janitor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the acquisition HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := newAppContext()
		if err != nil {
			return err
		}

		hist, err := history.Open(appCtx.Config.History.SQLitePath)
		if err != nil {
			return err
		}
		defer hist.Close()
		appCtx.History = hist

		mgr := engine.NewManager(appCtx)

		// Setup Signal Handling for Graceful Shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		jan := janitor.New(mgr, appCtx.Config.Serve.TTL, appCtx.Config.Serve.SweepInterval, appCtx.Logger)
		jan.Start(ctx)

		e := echo.New()
		api.RegisterRoutes(e, appCtx, mgr)

		srv := &http.Server{Addr: ":" + appCtx.Config.Port, Handler: e}

		go func() {
			appCtx.Logger.Info("Listening on :%s", appCtx.Config.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appCtx.Logger.Fatal("Server error: %v", err)
			}
		}()

		<-ctx.Done()
		appCtx.Logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appCtx.Logger.Error("Shutdown error: %v", err)
		}

		jan.Stop()
		mgr.Shutdown()
		return nil
	},
}
