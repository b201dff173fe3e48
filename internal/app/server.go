package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/takutakahashi/bqgate/internal/di"
)

// Server represents the HTTP server
type Server struct {
	echo      *echo.Echo
	container *di.Container
	verbose   bool
	router    *Router
}

// NewServer creates a new server instance
func NewServer(container *di.Container, verbose bool) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Disable Echo's default logger and use custom logging
	e.Logger.SetOutput(io.Discard)

	e.Use(middleware.Recover())

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: allowOrigin,
		AllowMethods:    []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Mcp-Session-Id"},
		MaxAge:          86400,
	}))

	s := &Server{
		echo:      e,
		container: container,
		verbose:   verbose,
	}

	if verbose {
		e.Use(s.loggingMiddleware())
	}

	s.router = NewRouter(e, container.MainController)
	if container.MCPHandler != nil {
		s.router.AddCustomHandler(container.MCPHandler)
	}
	if err := s.router.RegisterRoutes(); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	return s, nil
}

// allowOrigin reads ALLOWED_ORIGINS (comma separated), falling back to localhost for development
func allowOrigin(origin string) (bool, error) {
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowed := strings.HasPrefix(origin, "http://localhost") ||
			strings.HasPrefix(origin, "https://localhost") ||
			strings.HasPrefix(origin, "http://127.0.0.1") ||
			strings.HasPrefix(origin, "https://127.0.0.1")
		return allowed, nil
	}
	for _, allowed := range strings.Split(allowedOrigins, ",") {
		if strings.TrimSpace(allowed) == origin {
			return true, nil
		}
	}
	return false, nil
}

// loggingMiddleware returns Echo middleware for request logging
func (s *Server) loggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()
			err := next(c)
			log.Printf("[SERVER] %s %s from %s (%d, %s)", req.Method, req.URL.Path, req.RemoteAddr, c.Response().Status, time.Since(start).Truncate(time.Millisecond))
			return err
		}
	}
}

// Start starts the token warmer, if any, and serves HTTP until the listener closes
func (s *Server) Start(ctx context.Context, addr string) error {
	if s.container.Warmer != nil {
		if err := s.container.Warmer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start token warmer: %w", err)
		}
		log.Printf("[SERVER] Token warmer started (%s)", s.container.Config.Server.WarmerSchedule)
	}

	log.Printf("[SERVER] Listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the warmer and drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.container.Warmer != nil {
		s.container.Warmer.Stop()
	}
	return s.echo.Shutdown(ctx)
}

// GetEcho returns the echo instance
func (s *Server) GetEcho() *echo.Echo {
	return s.echo
}

// GetContainer returns the DI container
func (s *Server) GetContainer() *di.Container {
	return s.container
}
