package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/balldrop/internal/api/handlers"
	"github.com/playmatatu/balldrop/internal/config"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/playmatatu/balldrop/internal/layouts"
	"github.com/playmatatu/balldrop/internal/middleware"
	"github.com/playmatatu/balldrop/internal/players"
	"github.com/playmatatu/balldrop/internal/stats"
	"github.com/playmatatu/balldrop/internal/ws"
)

// Deps are the services the routes are built from. Players, Layouts and
// Stats may be nil when no database is configured; their routes are then
// not registered.
type Deps struct {
	Config   *config.Config
	Manager  *game.SessionManager
	Hub      *ws.Hub
	Players  *players.Service
	Layouts  *layouts.Store
	Stats    *stats.Store
	Recorder *stats.Recorder
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config
	router.Use(middleware.CORSMiddleware(cfg))

	if !cfg.IsProduction() {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	// Typed nils must not leak into the handler interfaces.
	var (
		profiles handlers.ProfileSource
		saved    handlers.LayoutSource
		st       handlers.StatsStore
	)
	if d.Players != nil {
		profiles = d.Players
	}
	if d.Layouts != nil {
		saved = d.Layouts
	}
	if d.Stats != nil {
		st = d.Stats
	}

	auth := handlers.AuthMiddleware(cfg)
	upgrader := ws.NewUpgrader(func(origin string) bool { return middleware.AllowedOrigin(cfg, origin) })

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(d.Manager))

		if d.Players != nil {
			v1.POST("/players", handlers.CreatePlayer(d.Players, cfg))
			v1.POST("/players/login", handlers.Login(d.Players, cfg))

			me := v1.Group("/me", auth)
			{
				me.GET("", handlers.GetMe(d.Players, st, d.Recorder))
				me.PUT("/preferences", handlers.UpdatePreferences(d.Players, d.Manager))
				me.POST("/onboarding", handlers.CompleteOnboarding(d.Players))
				me.POST("/reset", handlers.ResetAllData(d.Players, st, d.Recorder, d.Manager))
			}
		}

		sessions := v1.Group("/sessions", auth)
		{
			sessions.POST("", handlers.CreateSession(d.Manager, profiles, saved, d.Recorder))
			sessions.GET("", handlers.ListSessions(d.Manager))
			sessions.GET("/:id", handlers.GetSession(d.Manager))
			sessions.POST("/:id/commands", handlers.ExecuteCommand(d.Manager))
			sessions.GET("/:id/save", handlers.DownloadSave(d.Manager))
			sessions.POST("/:id/load", handlers.LoadSave(d.Manager))
			sessions.DELETE("/:id", handlers.DeleteSession(d.Manager))
			sessions.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleSessionWebSocket(d.Manager, d.Hub, upgrader))
		}

		if d.Layouts != nil {
			lay := v1.Group("/layouts", auth)
			{
				lay.GET("", handlers.ListLayouts(d.Layouts))
				lay.POST("", handlers.StoreLayout(d.Layouts, d.Manager))
				lay.GET("/:id", handlers.GetLayout(d.Layouts))
				lay.DELETE("/:id", handlers.DeleteLayout(d.Layouts))
			}
		}
	}
}
