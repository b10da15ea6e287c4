package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/ironsan2kk-pixel/back-sub000/internal/auth"
	"github.com/ironsan2kk-pixel/back-sub000/internal/channel"
	"github.com/ironsan2kk-pixel/back-sub000/internal/config"
	"github.com/ironsan2kk-pixel/back-sub000/internal/membership"
	"github.com/ironsan2kk-pixel/back-sub000/internal/payment"
	"github.com/ironsan2kk-pixel/back-sub000/internal/subscription"
	"github.com/ironsan2kk-pixel/back-sub000/internal/user"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

type Deps struct {
	DB       *sqlx.DB
	Payments *payment.Service
	Verifier payment.SignatureVerifier
	Subs     *subscription.Service
	Users    user.Repository
	Channels channel.Repository
	Members  membership.Client
}

func New(cfg *config.Config, deps Deps) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RequestLoggingMiddleware())

	paymentHandler := payment.NewHandler(deps.Payments, deps.Verifier)
	subHandler := subscription.NewHandler(deps.Subs, deps.Users, deps.Channels, deps.Members)

	// The gateway signs its own requests; no bearer token here.
	router.POST("/webhook/cryptopay", RateLimitMiddleware(20, 40), paymentHandler.Webhook)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	apiGroup := router.Group("/api")
	apiGroup.Use(authMiddleware, RateLimitMiddleware(50, 100))
	{
		apiGroup.POST("/invoices", paymentHandler.CreateInvoice)
		apiGroup.POST("/invoices/:invoiceID/settle", paymentHandler.Settle)
		apiGroup.POST("/invoices/:invoiceID/cancel", paymentHandler.Cancel)
		apiGroup.GET("/users/:userID/subscriptions", subHandler.ListByUser)
		apiGroup.POST("/trials", subHandler.Trial)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/api/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/grants", subHandler.Grant)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     deps.DB,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
