// Package api exposes the donation workflow over HTTP and websockets.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
	"github.com/blood-donation-support-server/internal/middleware"
	"github.com/blood-donation-support-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	config       domain.ServerConfig
	registration *service.RegistrationService
	hub          *EventHub
	logger       *logrus.Logger
	router       *gin.Engine
	server       *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(config domain.ServerConfig, registration *service.RegistrationService, hub *EventHub, logger *logrus.Logger, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimit(config.RateLimit, config.RateBurst))

	server := &Server{
		config:       config,
		registration: registration,
		hub:          hub,
		logger:       logger,
		router:       router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the underlying handler, used by the httptest suites.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// Live event stream
	if s.hub != nil {
		s.router.GET("/ws/events", s.hub.HandleConnection)
	}

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/appointments", s.handleRegister)
		v1.GET("/appointments/:id", s.handleGetAppointment)
		v1.POST("/appointments/:id/decision", s.handleDecide)
		v1.POST("/appointments/:id/check-in", s.handleCheckIn)
		v1.POST("/appointments/:id/donation", s.handleRecordDonation)
		v1.POST("/appointments/:id/deferral", s.handleDefer)
		v1.POST("/appointments/:id/cancel", s.handleCancel)
		v1.POST("/appointments/:id/reregister", s.handleReregister)
		v1.GET("/donors/:id/appointments", s.handleListDonorAppointments)
		v1.POST("/emergencies/:id/transfer-check", s.handleTransferCheck)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}
