package handler

import (
	"arcana-settlement/config"
	"arcana-settlement/internal/adapter/http/middleware"
	redisStore "arcana-settlement/internal/adapter/storage/redis"
	"arcana-settlement/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	OrderSvc       ports.OrderService
	WithdrawalSvc  ports.WithdrawalService
	ReportingSvc   ports.ReportingService
	SigSvc         ports.SignatureService
	TokenSvc       ports.TokenService
	NonceStore     ports.NonceStore
	EventCache     ports.EventCache
	EventRepo      ports.WebhookEventRepository
	Transactor     ports.DBTransactor
	Payment        config.PaymentConfig
	Payout         config.PayoutConfig
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
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

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

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

	orderHandler := NewOrderHandler(deps.OrderSvc)
	webhookHandler := NewWebhookHandler(deps.OrderSvc, deps.WithdrawalSvc,
		deps.EventCache, deps.EventRepo, deps.Transactor, deps.Logger)
	walletHandler := NewWalletHandler(deps.ReportingSvc, deps.WithdrawalSvc)

	// --- HMAC-authenticated routes (trusted backends) ---
	checkoutAuth := middleware.HMACAuth(deps.Payment.CheckoutSecret, "checkout", deps.SigSvc, deps.NonceStore, deps.Logger)
	v1.POST("/orders", rl("checkout"), checkoutAuth, orderHandler.CreateOrder)

	paymentAuth := middleware.HMACAuth(deps.Payment.WebhookSecret, "payment", deps.SigSvc, deps.NonceStore, deps.Logger)
	payoutAuth := middleware.HMACAuth(deps.Payout.WebhookSecret, "payout", deps.SigSvc, deps.NonceStore, deps.Logger)
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/payment", rl("webhooks"), paymentAuth, webhookHandler.PaymentWebhook)
		webhooks.POST("/payout", rl("webhooks"), payoutAuth, webhookHandler.PayoutWebhook)
	}

	// --- JWT-authenticated routes (marketplace users) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	orders := v1.Group("/orders", jwtAuth)
	{
		orders.GET("", rl("orders"), orderHandler.ListOrders)
		orders.GET("/:id", rl("orders"), orderHandler.GetOrder)
		orders.PUT("/:id/draft", rl("orders"), orderHandler.SaveDraft)
		orders.POST("/:id/send", rl("orders"), orderHandler.Send)
		orders.POST("/:id/complete", rl("orders"), orderHandler.Complete)
		orders.POST("/:id/cancel", rl("orders"), orderHandler.Cancel)
	}

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("/balance", rl("wallet"), walletHandler.GetBalance)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
		wallet.GET("/stats", rl("wallet"), walletHandler.GetStats)
		wallet.POST("/withdrawals", rl("withdrawals"), walletHandler.RequestWithdrawal)
		wallet.GET("/withdrawals", rl("wallet"), walletHandler.ListWithdrawals)
	}

	return r
}
