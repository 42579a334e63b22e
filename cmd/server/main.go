package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tubecast/internal/auth"
	"tubecast/internal/config"
	"tubecast/internal/dispatch"
	"tubecast/internal/handlers"
	"tubecast/internal/middleware"
	"tubecast/internal/store"
	"tubecast/internal/websocket"
	"tubecast/internal/whatsapp"
	"tubecast/internal/youtube"
	"tubecast/pkg/logger"
)

func main() {
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting tubecast server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	st, err := store.New(cfg.Data.Dir)
	if err != nil {
		log.Fatal("Failed to open data store: %v", err)
	}

	hub := websocket.NewHub(log)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	ytClient := youtube.New(cfg.YouTube.APIKey, cfg.YouTube.Timeout, log)

	factory := func(userID string) *whatsapp.Session {
		transport := whatsapp.NewTransport(userID, cfg.WhatsApp.SessionDir, log)
		return whatsapp.NewSession(userID, transport, st, ytClient, hub, whatsapp.Options{
			ChannelID:      cfg.YouTube.ChannelID,
			ReconnectDelay: cfg.WhatsApp.ReconnectDelay,
			SendDelay:      cfg.WhatsApp.SendDelay,
		}, log)
	}
	registry := whatsapp.NewRegistry(factory)

	restoreSessions(registry, st, cfg, log)

	dispatcher := dispatch.New(dispatchSource(registry, st, log), log)
	if err := dispatcher.Start(); err != nil {
		log.Fatal("Failed to start dispatcher: %v", err)
	}

	authService := auth.NewService(st, cfg.JWT, log)

	router := setupRouter(cfg, authService, registry, st, hub, log)

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening on %s", cfg.GetServerAddress())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := dispatcher.Stop(); err != nil {
		log.Error("Dispatcher shutdown error: %v", err)
	}

	// Release transports but keep credentials so the next start resumes
	// every paired session.
	registry.Shutdown()
	hubCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server shutdown complete")
}

// restoreSessions reconnects every user whose pairing credentials survived
// the last run.
func restoreSessions(registry *whatsapp.Registry, st *store.Store, cfg *config.Config, log *logger.Logger) {
	users, err := st.Users()
	if err != nil {
		log.Error("Failed to list users for session restore: %v", err)
		return
	}

	restored := 0
	for _, user := range users {
		if !whatsapp.HasCredentials(cfg.WhatsApp.SessionDir, user.ID) {
			continue
		}
		session := registry.CreateOrReplace(user.ID)
		if err := session.Connect(context.Background()); err != nil {
			log.Error("Failed to restore session for %s: %v", user.Username, err)
			continue
		}
		restored++
	}

	if restored > 0 {
		log.Info("Restoring %d paired sessions", restored)
	}
}

// dispatchSource feeds the dispatcher the connected sessions and their
// schedules at each tick.
func dispatchSource(registry *whatsapp.Registry, st *store.Store, log *logger.Logger) dispatch.Source {
	return func() []dispatch.Entry {
		var entries []dispatch.Entry
		for userID, session := range registry.ConnectedSessions() {
			schedules, err := st.Schedules(userID)
			if err != nil {
				log.Error("Failed to load schedules for %s: %v", userID, err)
				continue
			}
			if len(schedules) == 0 {
				continue
			}
			entries = append(entries, dispatch.Entry{
				UserID:    userID,
				Target:    session,
				Schedules: schedules,
			})
		}
		return entries
	}
}

func setupRouter(
	cfg *config.Config,
	authService *auth.Service,
	registry *whatsapp.Registry,
	st *store.Store,
	hub *websocket.Hub,
	log *logger.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authHandler := handlers.NewAuthHandler(authService, log)
	sessionHandler := handlers.NewSessionHandler(registry, log)
	scheduleHandler := handlers.NewScheduleHandler(st, log)
	statsHandler := handlers.NewStatsHandler(st, registry, hub, log)
	wsHandler := handlers.NewWebSocketHandler(hub, log)

	router.GET("/health", handlers.Health)

	api := router.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		authed := api.Group("")
		authed.Use(middleware.AuthRequired(authService))
		{
			authed.POST("/whatsapp/connect", sessionHandler.Connect)
			authed.POST("/whatsapp/disconnect", sessionHandler.Disconnect)
			authed.GET("/whatsapp/status", sessionHandler.GetStatus)

			authed.GET("/groups", sessionHandler.GetGroups)

			authed.GET("/schedules", scheduleHandler.List)
			authed.POST("/schedules", scheduleHandler.Create)
			authed.PUT("/schedules/:id", scheduleHandler.Update)
			authed.DELETE("/schedules/:id", scheduleHandler.Delete)

			authed.POST("/test-send", sessionHandler.TestSend)

			authed.GET("/stats", statsHandler.GetStats)
			authed.GET("/admin/stats", statsHandler.GetSystemStats)
		}
	}

	// Websocket auth accepts the token as a query parameter.
	router.GET("/ws", middleware.AuthRequired(authService), wsHandler.HandleConnection)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Endpoint not found",
		})
	})

	return router
}
