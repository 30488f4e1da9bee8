package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/hmmseg/internal/profile"
	"github.com/hrygo/hmmseg/plugin/timeextract"
	"github.com/hrygo/hmmseg/server/middleware"
	apiv1 "github.com/hrygo/hmmseg/server/router/api/v1"
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	logger     *slog.Logger
}

// NewServer wires the JSON API over the given segmenter and extractor.
func NewServer(profile *profile.Profile, segmenter apiv1.Segmenter, extractor timeextract.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomiddleware.Recover())

	service := apiv1.NewAPIV1Service(profile, segmenter, extractor)
	service.Logger = logger
	limiter := middleware.NewRateLimiter(profile.RateLimit, profile.RateBurst)
	service.RegisterRoutes(echoServer, limiter.Middleware())

	return &Server{
		Profile:    profile,
		echoServer: echoServer,
		logger:     logger,
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start listens on the profile's address and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.Profile.Addr, fmt.Sprint(s.Profile.Port))
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}
	s.echoServer.Listener = listener
	s.logger.Info("server listening", slog.String("address", listener.Addr().String()))

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("failed to start echo server", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	s.logger.Info("server stopped properly")
}
