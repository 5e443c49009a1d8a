package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fitstudio/internal/auth"
	"fitstudio/internal/booking"
	"fitstudio/internal/config"
	"fitstudio/internal/ledger"
	"fitstudio/internal/order"
	"fitstudio/internal/session"
	"fitstudio/internal/tenant"
	"fitstudio/internal/waitlist"
)

// Handlers groups the domain handlers mounted on the router.
type Handlers struct {
	Sessions *session.Handler
	Bookings *booking.Handler
	Orders   *order.Handler
	Ledger   *ledger.Handler
	Waitlist *waitlist.Handler
	// Ping reports store health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

func New(cfg *config.Config, h Handlers) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	router.GET("/health", Health(h.Ping))
	router.GET("/metrics", Metrics())

	webhooks := router.Group("/webhooks")
	webhooks.Use(RateLimitMiddleware(cfg.WebhookRateRPS, cfg.WebhookRateBurst))
	{
		webhooks.GET("/mercadopago", h.Orders.MercadoPagoWebhook)
		webhooks.POST("/mercadopago", h.Orders.MercadoPagoWebhook)
	}

	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(cfg.JWTSecret), tenant.Middleware())
	{
		protected.GET("/sessions", h.Sessions.ListSessions)
		protected.GET("/sessions/:id", h.Sessions.GetSession)
		protected.POST("/sessions/:id/book", h.Bookings.BookSession)

		protected.GET("/bookings/:id", h.Bookings.GetBooking)
		protected.POST("/bookings/:id/cancel", h.Bookings.CancelBooking)

		protected.GET("/me/bookings", h.Bookings.ListMyBookings)
		protected.GET("/me/waitlist", h.Waitlist.ListMine)
		protected.GET("/me/balance", h.Ledger.GetBalance)
		protected.GET("/me/credits", h.Ledger.ListCredits)
		protected.GET("/me/memberships", h.Ledger.ListMemberships)

		protected.POST("/orders", h.Orders.CreateOrder)
		protected.GET("/orders", h.Orders.ListOrders)
		protected.GET("/orders/:id", h.Orders.GetOrder)
		protected.POST("/orders/:id/cancel", h.Orders.CancelOrder)
		protected.POST("/orders/:id/payment-link", h.Orders.CreatePaymentLink)
	}

	staff := router.Group("/staff")
	staff.Use(auth.AuthMiddleware(cfg.JWTSecret), tenant.Middleware(), auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))
	{
		staff.POST("/sessions", h.Sessions.CreateSession)
		staff.GET("/sessions/:id/bookings", h.Bookings.ListSessionBookings)
		staff.GET("/sessions/:id/waitlist", h.Waitlist.ListSession)
		staff.POST("/sessions/:id/promote", h.Bookings.PromoteWaitlist)

		staff.POST("/bookings/:id/checkin", h.Bookings.CheckIn)
		staff.DELETE("/bookings/:id/checkin", h.Bookings.UndoCheckIn)
		staff.POST("/bookings/:id/no-show", h.Bookings.MarkNoShow)

		staff.POST("/orders/:id/mark-paid", h.Orders.MarkPaid)
	}

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Studio-Id, X-Webhook-Secret")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
