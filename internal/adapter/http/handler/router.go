package handler

import (
	"ton-dice-backend/internal/adapter/http/middleware"
	redisStore "ton-dice-backend/internal/adapter/storage/redis"
	"ton-dice-backend/internal/core/ports"
	"ton-dice-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	GameSvc        ports.GameService
	LedgerSvc      ports.LedgerService
	TokenSvc       ports.TokenService
	Fairness       *service.FairnessEngine
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	accountHandler := NewAccountHandler(deps.GameSvc, deps.LedgerSvc, deps.TokenSvc)
	v1.POST("/accounts/connect", rl("connect"), accountHandler.Connect)

	fairnessHandler := NewFairnessHandler(deps.Fairness)
	v1.GET("/fairness/verify", rl("fairness"), fairnessHandler.Verify)

	// --- JWT-authenticated routes (player session) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	gameHandler := NewGameHandler(deps.GameSvc)

	accounts := v1.Group("/accounts", jwtAuth)
	{
		accounts.GET("/me", rl("account"), accountHandler.Me)
		accounts.PUT("/client-seed", rl("account"), accountHandler.UpdateClientSeed)
		accounts.GET("/audit", rl("account"), accountHandler.Audit)
	}

	bets := v1.Group("/bets", jwtAuth)
	{
		bets.POST("", rl("bets"), gameHandler.PlaceBet)
		bets.POST("/roll", rl("bets"), gameHandler.Roll)
		bets.GET("", rl("bets"), gameHandler.ListBets)
	}

	seeds := v1.Group("/seeds", jwtAuth)
	{
		seeds.POST("/reveal", rl("bets"), gameHandler.Reveal)
	}

	return r
}
