package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"Vigil/internal/backend/dependencies"
	"Vigil/internal/backend/handlers"
	"Vigil/pkg/uuidutil"

	"github.com/gin-gonic/gin"
)

type Server struct {
	router     *gin.Engine
	config     *Config
	container  *dependencies.Container
	handlers   *handlers.Handlers
	httpServer *http.Server
}

type Config struct {
	Port int
	Mode string
}

// New создает сервер с dependency injection
func New(config *Config, container *dependencies.Container) *Server {
	switch config.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	server := &Server{
		router:    gin.New(),
		config:    config,
		container: container,
		handlers:  handlers.NewHandlers(container),
	}

	server.setupMiddlewares()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddlewares() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// Logger middleware
	s.router.Use(s.loggerMiddleware())

	// CORS middleware
	s.router.Use(s.corsMiddleware())

	// Request ID middleware
	s.router.Use(s.requestIDMiddleware())
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/ready", s.readyCheck)
	s.router.GET("/metrics", gin.WrapH(s.container.Metrics.Handler()))

	// API v1 group
	api := s.router.Group("/api/v1")
	{
		monitors := api.Group("/monitors")
		{
			monitors.POST("", s.handlers.CreateMonitor)
			monitors.GET("", s.handlers.ListMonitors)
			monitors.GET("/:id", s.handlers.GetMonitor)
			monitors.PUT("/:id", s.handlers.UpdateMonitor)
			monitors.DELETE("/:id", s.handlers.DeleteMonitor)
			monitors.POST("/:id/pause", s.handlers.PauseMonitor)
			monitors.POST("/:id/resume", s.handlers.ResumeMonitor)
			monitors.GET("/:id/heartbeats", s.handlers.GetMonitorHeartbeats)
			monitors.GET("/:id/stats", s.handlers.GetMonitorStats)
		}

		maintenance := api.Group("/maintenance")
		{
			maintenance.POST("", s.handlers.CreateMaintenance)
			maintenance.GET("", s.handlers.ListMaintenance)
			maintenance.GET("/:id", s.handlers.GetMaintenance)
			maintenance.DELETE("/:id", s.handlers.DeleteMaintenance)
			maintenance.POST("/:id/pause", s.handlers.PauseMaintenance)
			maintenance.POST("/:id/resume", s.handlers.ResumeMaintenance)
		}

		notifications := api.Group("/notifications")
		{
			notifications.POST("", s.handlers.CreateNotification)
			notifications.GET("", s.handlers.ListNotifications)
			notifications.GET("/:id", s.handlers.GetNotification)
			notifications.DELETE("/:id", s.handlers.DeleteNotification)
			notifications.POST("/:id/test", s.handlers.TestNotification)
		}
	}

	// Push мониторы, без авторизации: токен в пути
	s.router.GET("/api/push/:token", s.handlers.Push)
	s.router.POST("/api/push/:token", s.handlers.Push)

	// WebSocket routes
	ws := s.router.Group("/ws")
	{
		ws.GET("/monitors/:id", s.handlers.MonitorWebSocket)
	}

	// 404 handler
	s.router.NoRoute(s.notFoundHandler)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   s.container.Config.App.Name,
		"version":   s.container.Config.App.Version,
		"monitors":  s.container.Scheduler.Count(),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) readyCheck(c *gin.Context) {
	status := s.container.Ready(c.Request.Context())
	for _, state := range status {
		if strings.HasPrefix(state, "error") {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":       "error",
				"dependencies": status,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"dependencies": status,
		"timestamp":    time.Now().UTC(),
	})
}

func (s *Server) notFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "not_found",
		"message": "Endpoint not found",
		"path":    c.Request.URL.Path,
	})
}

func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Продолжаем обработку
		c.Next()

		// Логируем после обработки
		latency := time.Since(start)
		clientIP := c.ClientIP()
		method := c.Request.Method
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if query != "" {
			path = path + "?" + query
		}

		logger := s.container.Logger.Info
		if statusCode >= 400 {
			logger = s.container.Logger.Warn
		}
		if statusCode >= 500 {
			logger = s.container.Logger.Error
		}

		logger("HTTP request",
			"status", statusCode,
			"method", method,
			"path", path,
			"ip", clientIP,
			"latency", latency,
			"error", errorMessage,
		)
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuidutil.New()
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	s.container.Logger.Info("Starting HTTP server",
		"port", s.config.Port,
		"mode", s.config.Mode,
		"address", addr,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown выполняет graceful shutdown сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.container.Logger.Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
	}

	if s.container != nil {
		if err := s.container.Close(); err != nil {
			s.container.Logger.Error("Failed to close dependencies", "error", err)
		}
	}

	s.container.Logger.Info("Server shutdown completed")
	return nil
}

// GetRouter возвращает router для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
