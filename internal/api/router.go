package api

import (
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/ipagrab/ipagrab/internal/api/controllers"
	"github.com/ipagrab/ipagrab/internal/app"
	"github.com/ipagrab/ipagrab/internal/engine"
)

func RegisterRoutes(e *echo.Echo, appCtx *app.Context, mgr *engine.Manager) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			appCtx.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	ctrl := &controllers.AcquireController{App: appCtx, Jobs: mgr}

	// Acquisition pipeline entry point
	e.POST("/download", ctrl.HandleDownload)

	// Signed artifact serving (READY jobs only)
	e.GET("/files/:job/:name", ctrl.HandleFile)

	// Job status polling and past outcomes
	e.GET("/jobs/:id", ctrl.HandleJob)
	e.GET("/history", ctrl.HandleHistory)
}
