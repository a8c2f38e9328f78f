package routes

import (
	"net/http"
	"time"

	_ "chat-relay/docs"
	"chat-relay/internal/api/handlers"
	"chat-relay/internal/api/middleware"
	"chat-relay/internal/auth"
	"chat-relay/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options configures the HTTP surface of the relay.
type Options struct {
	AllowedOrigins []string
	// Limiter may be nil, which disables connection rate limiting.
	Limiter middleware.RateLimiter
	WSRateLimit    int
	WSRateWindow   time.Duration
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
}

type Router struct {
	engine          *gin.Engine
	wsHandler       *handlers.WSHandler
	presenceHandler *handlers.PresenceHandler
	rateLimitMW     *middleware.RateLimitMiddleware
	authMW          *middleware.AuthMiddleware
	opts            Options
}

func NewRouter(hub *websocket.Hub, verifier *auth.JWTVerifier, opts Options) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(opts.AllowedOrigins))
	engine.Use(middleware.LogApi())

	return &Router{
		engine:          engine,
		wsHandler:       handlers.NewWSHandler(hub, opts.AllowedOrigins),
		presenceHandler: handlers.NewPresenceHandler(hub),
		rateLimitMW:     middleware.NewRateLimitMiddleware(opts.Limiter),
		authMW:          middleware.NewAuthMiddleware(verifier),
		opts:            opts,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger documentation
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if r.opts.Gatherer != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.engine.Group("/api/v1")

	// The hub authenticates the handshake; bad tokens get a close frame.
	api.GET("/ws",
		r.rateLimitMW.WebSocketRateLimit(r.opts.WSRateLimit, r.opts.WSRateWindow),
		r.wsHandler.HandleWebSocket,
	)

	// Authenticated routes
	authenticated := api.Group("/")
	authenticated.Use(r.authMW.RequireAuth())
	{
		presence := authenticated.Group("/presence")
		{
			presence.GET("/online", r.presenceHandler.GetOnlineUsers)
			presence.GET("/:userId", r.presenceHandler.GetUserPresence)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
