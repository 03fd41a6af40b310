package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/auth"
	"github.com/vovakirdan/wirechat-dispatch/internal/config"
	"github.com/vovakirdan/wirechat-dispatch/internal/core"
	"github.com/vovakirdan/wirechat-dispatch/internal/presence"
	"github.com/vovakirdan/wirechat-dispatch/internal/service/servers"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// Deps are the services the HTTP layer routes to.
type Deps struct {
	Auth       *auth.Service
	Store      store.Store
	Hub        *core.Hub
	Dispatcher *core.Dispatcher
	Servers    *servers.Service
	Presence   presence.Store
}

// NewServer builds the HTTP server with REST, WebSocket and metrics routes.
func NewServer(cfg *config.Config, deps Deps, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), MetricsMiddleware())

	apiHandlers := NewAPIHandlers(deps.Auth, logger)
	messageHandlers := NewMessageHandlers(deps.Store, deps.Dispatcher, logger)
	serverHandlers := NewServerHandlers(deps.Store, deps.Servers, logger)
	userHandlers := NewUserHandlers(deps.Store, deps.Presence, logger)
	wsHandler := NewWSHandler(deps.Hub, deps.Auth, deps.Store, deps.Presence, logger)

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authed := api.Group("", AuthMiddleware(deps.Auth, logger))
	{
		authed.GET("/me", userHandlers.Me)
		authed.PUT("/me/status", userHandlers.SetCustomStatus)
		authed.POST("/devices", userHandlers.RegisterDevice)

		limiter := newRateLimiter(cfg.MessageRateLimit, time.Minute)
		authed.POST("/channels/:channel_id/messages", RateLimitMiddleware(limiter, "send_message"), messageHandlers.SendMessage)
		authed.POST("/channels/dm/:unique_id", messageHandlers.OpenDirect)

		authed.POST("/servers", serverHandlers.CreateServer)
		authed.POST("/servers/invite/:invite_code", serverHandlers.JoinByInvite)
		authed.POST("/servers/:server_id/invites", serverHandlers.CreateInvite)
		authed.POST("/servers/:server_id/join", serverHandlers.JoinPublic)
		authed.PUT("/servers/:server_id/channels/:channel_id/mute", serverHandlers.MuteChannel)
		authed.DELETE("/servers/:server_id/channels/:channel_id/mute", serverHandlers.UnmuteChannel)
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
