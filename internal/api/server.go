package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"futures-trader/internal/trading"
	"futures-trader/pkg/db"
)

// Server wires HTTP endpoints around the order manager and the journal.
type Server struct {
	Router    *gin.Engine
	DB        *db.Database
	Manager   *trading.Manager
	JWTSecret string
	Log       *zap.Logger
}

// NewServer builds the router with the full middleware stack and routes.
func NewServer(database *db.Database, manager *trading.Manager, jwtSecret string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(log))
	r.Use(RateLimitMiddleware(log))
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		DB:        database,
		Manager:   manager,
		JWTSecret: jwtSecret,
		Log:       log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)

	api := s.Router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
			auth.GET("/me", AuthMiddleware(s.JWTSecret), s.currentUser)
		}

		// Public exchange endpoints
		api.GET("/ping", s.ping)
		api.GET("/exchange-info", s.exchangeInfo)

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/account", s.account)
			protected.POST("/order", s.placeOrder)
			protected.GET("/order", s.getOrder)
			protected.DELETE("/order", s.cancelOrder)
			protected.GET("/open-orders", s.openOrders)

			protected.GET("/journal", s.listJournal)
			protected.PATCH("/journal/:id", s.updateJournalEntry)
			protected.DELETE("/journal/:id", s.deleteJournalEntry)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start runs the HTTP server on addr.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
