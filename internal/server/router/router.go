package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/auth"
	"github.com/mamadbah2/dispatch/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by the router.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Orders   *handlers.OrderHandler
	Schedule *handlers.ScheduleHandler
	Activity *handlers.ActivityHandler
}

// Options configures cross-cutting middleware.
type Options struct {
	AllowedOrigins []string
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, authz auth.Authorizer, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	r.Use(authenticate(authz))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/login", h.Auth.Login)
	api.POST("/admin/login", h.Auth.Login)

	admin := requireAdmin()

	orders := api.Group("/orders")
	orders.GET("", h.Orders.List)
	orders.GET("/:id", h.Orders.Get)
	orders.GET("/:id/progress", h.Orders.Progress)
	orders.POST("", admin, h.Orders.Create)
	orders.PUT("/:id", admin, h.Orders.Update)
	orders.DELETE("/:id", admin, h.Orders.Delete)

	sched := api.Group("/schedule")
	sched.GET("", h.Schedule.List)
	sched.GET("/date/:date", h.Schedule.ForDate)
	sched.GET("/calendar", h.Schedule.Calendar)
	sched.POST("", admin, h.Schedule.Create)
	// Loaders report shipments without a token; the handler gates edits.
	sched.PUT("/:id", h.Schedule.Update)
	sched.DELETE("/:id", admin, h.Schedule.Delete)

	api.GET("/activities", h.Activity.List)

	logger.Info("router initialized")

	return r
}

// authenticate marks the request context as admin when a valid bearer token
// is presented. Requests without one continue unprivileged.
func authenticate(authz auth.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token != "" && authz.Authorize(token) == nil {
			c.Request = c.Request.WithContext(auth.WithAdmin(c.Request.Context()))
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsAdmin(c.Request.Context()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "administrator token required"})
			return
		}
		c.Next()
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	cfg.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	cfg.AddExposeHeaders("Content-Length")
	return cfg
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
