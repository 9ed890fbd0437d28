// Package web serves the pinout and device state over HTTP and accepts
// actuation requests by device name.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sweeney/oligo-synth/internal/pinout"
	"github.com/sweeney/oligo-synth/internal/status"
)

// Actuator drives a registered device by name.
type Actuator interface {
	Actuate(name string, engaged bool) error
}

// Server serves the status page and the device API.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	reg        *pinout.Registry
	tracker    *status.Tracker
	act        Actuator
	logger     *zap.Logger
}

// New creates a Server. act may be nil, in which case PUT requests are refused.
func New(addr string, reg *pinout.Registry, tracker *status.Tracker, act Actuator, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		reg:     reg,
		tracker: tracker,
		act:     act,
		logger:  logger,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))

	s.router.GET("/", s.handleIndex)
	s.router.GET("/index.html", s.handleIndex)
	s.router.GET("/index.json", s.handleJSON)

	s.router.GET("/pins", s.listPins)
	s.router.GET("/pins/configurable", s.listConfigurable)
	s.router.GET("/valves", s.listValves)

	devices := s.router.Group("/devices")
	{
		devices.GET("/:name", s.getDevice)
		devices.PUT("/:name", s.setDevice)
	}
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("http request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("http request", fields...)
		default:
			logger.Debug("http request", fields...)
		}
	}
}
