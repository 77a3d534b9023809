package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/controllers"
	"github.com/cppla/fitquest/middleware"
	"github.com/cppla/fitquest/utils"
)

// Dependencies are the pieces SetupRouter mounts.
type Dependencies struct {
	Auth      *controllers.AuthController
	User      *controllers.UserController
	Insurance *controllers.InsuranceController
	Admin     *controllers.AdminController
	Tokens    *utils.TokenIssuer
	// Gatherer backs /metrics; Registerer receives the HTTP collectors.
	Gatherer   prometheus.Gatherer
	Registerer prometheus.Registerer
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Dependencies) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access and panic logs go to their own rolling file when GinPath is set
	if cfg.GinPath != "" {
		gl := utils.NewRollingFileLogger(cfg.GinPath, cfg)
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if deps.Registerer != nil {
		r.Use(middleware.NewHTTPMetrics(deps.Registerer).Middleware())
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	metricsHandler := promhttp.Handler()
	if deps.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})
	}
	r.GET("/metrics", middleware.MetricsBasicAuth(cfg.MetricsUser, cfg.MetricsPass), gin.WrapH(metricsHandler))

	auth := middleware.AuthRequired(deps.Tokens)
	limited := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)

	api := r.Group("/api")
	api.POST("/register", limited, deps.Auth.Register)
	api.POST("/login", limited, deps.Auth.Login)
	api.GET("/captcha", limited, deps.Auth.Captcha)
	api.POST("/logout", auth, deps.Auth.Logout)

	user := api.Group("/user", auth)
	user.GET("/profile", deps.User.Profile)
	user.PUT("/profile", deps.User.UpdateProfile)
	user.GET("/details", deps.User.Details)
	user.GET("/progress", deps.User.Progress)
	user.GET("/fullProfile", deps.User.FullProfile)

	insurance := api.Group("/insurance", auth)
	insurance.GET("/plans", deps.Insurance.Plans)
	insurance.GET("/rewards", deps.Insurance.Rewards)
	insurance.POST("/rewards/update", deps.Insurance.UpdateRewards)
	insurance.GET("/policies", deps.Insurance.Policies)
	insurance.POST("/policies", deps.Insurance.AddPolicy)

	admin := api.Group("/admin", auth, middleware.AdminOnly(cfg.AdminUsernames))
	admin.POST("/rollup", deps.Admin.Rollup)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
