package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SetupRouter builds the HTTP surface: REST rooms API, websocket, health
func SetupRouter(srv *Server) *gin.Engine {
	cfg := srv.Config
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if cfg.Mode == "debug" {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.AllowedOrigin))

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 12, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	router.Use(sessions.Sessions("heist", store))

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	// API routes
	api := router.Group("/api")
	{
		api.POST("/rooms", CreateRoom(srv))
		api.GET("/rooms/:code", GetRoom(srv))
		api.POST("/rooms/:code/join", JoinRoom(srv))
		api.GET("/rooms/:code/qr", RoomQR(srv))
		api.GET("/session", CurrentSession(srv))
	}

	// WebSocket endpoint
	router.GET("/ws", HandleWebSocket(srv))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"rooms":       srv.Rooms.Count(),
			"connections": srv.Hub.Count(),
		})
	})

	log.Info().Str("module", "handlers.http").Str("mode", cfg.Mode).Msg("router setup")
	return router
}

func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(c *gin.Context) {
		origin := allowedOrigin
		if origin == "*" && c.Request.Header.Get("Origin") != "" {
			// credentials are not allowed with a wildcard origin
			origin = c.Request.Header.Get("Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
