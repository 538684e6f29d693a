package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"faq-assistant/config"
	"faq-assistant/faq"
	"faq-assistant/resolver"
	"faq-assistant/web/handlers"
	"faq-assistant/web/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	router      *gin.Engine
	resolver    *resolver.Resolver
	store       *faq.Store
	corpusSize  int
	rateLimiter *middleware.ClientRateLimiter
	logger      *zap.Logger
	config      *config.Config
}

func NewServer(r *resolver.Resolver, store *faq.Store, corpusSize int, logger *zap.Logger, cfg *config.Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(logger))

	server := &Server{
		router:     router,
		resolver:   r,
		store:      store,
		corpusSize: corpusSize,
		logger:     logger,
		config:     cfg,
		rateLimiter: middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			BurstSize:         cfg.RateLimitBurstSize,
			CleanupInterval:   10 * time.Minute,
		}, logger),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	askHandler := handlers.NewAskHandler(s.resolver, s.config.UseSemantic, s.logger)
	healthHandler := handlers.NewHealthHandler(s.store, s.corpusSize, s.resolver.SemanticAvailable(), s.logger)

	s.router.GET("/healthz", healthHandler.Health)
	s.router.POST("/ask", middleware.RateLimitMiddleware(s.rateLimiter), askHandler.Ask)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))
	defer s.rateLimiter.Stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for context cancellation or a listener failure
	select {
	case err := <-serveErr:
		if err != nil {
			s.logger.Error("Web server failed to start", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
