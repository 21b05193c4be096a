package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/AnTengye/legalanalyzer/config"
	"github.com/AnTengye/legalanalyzer/handler"
	"github.com/AnTengye/legalanalyzer/middleware"
	"github.com/AnTengye/legalanalyzer/pkg/logger"
	"github.com/AnTengye/legalanalyzer/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"max_upload_mb", cfg.Upload.MaxSizeMB,
	)

	if err := run(cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server exited gracefully")
}

func run(cfg *config.Config) error {
	generator, err := service.NewGenerator(cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize llm client: %w", err)
	}
	analyzer, err := service.NewAnalyzer(generator, service.WithTemperature(*cfg.LLM.Temperature))
	if err != nil {
		return fmt.Errorf("failed to initialize analyzer: %w", err)
	}

	// the PDF engine itself starts with the first PDF upload
	extractor := service.NewExtractor(cfg.Extract.PDFWorkers, cfg.Upload.MaxBytes())
	defer extractor.Close()

	store := service.NewSessionStore(cfg.Session, cfg.Upload.MaxBytes(), analyzer, extractor)

	secret := cfg.Session.Secret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		slog.Warn("no session secret configured, sessions will not survive a restart")
	}

	sessionHandler := handler.NewSessionHandler(store, secret)
	documentHandler := handler.NewDocumentHandler(cfg.Upload.MaxBytes())
	analysisHandler := handler.NewAnalysisHandler()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("/health"))
	router.Use(corsMiddleware())
	router.Use(cacheMiddleware())
	router.Use(middleware.RateLimit(cfg.RateLimit.Requests, window, middleware.ByClientIP))

	if dir := cfg.Server.StaticDir; dir != "" {
		slog.Info("serving static files", "directory", dir)
		router.Static("/static", dir)
		router.StaticFile("/", filepath.Join(dir, "index.html"))
	}

	router.GET("/health", sessionHandler.Health)

	api := router.Group("/api")
	{
		api.GET("/sample", documentHandler.Sample)
		api.POST("/sessions", sessionHandler.Create)
	}

	session := api.Group("/session")
	session.Use(middleware.SessionAuth(store, secret))
	{
		session.GET("", sessionHandler.Get)
		session.DELETE("", sessionHandler.Delete)
		session.PUT("/document", documentHandler.SetText)
		session.POST("/document/sample", documentHandler.LoadSample)
		session.POST("/document/upload", documentHandler.Upload)
		session.GET("/analysis", analysisHandler.Get)
		// each trigger is one paid LLM call
		session.POST("/analysis",
			middleware.RateLimit(cfg.RateLimit.AnalysisRequests, window, middleware.BySession),
			analysisHandler.Start,
		)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// long-polling GET analysis holds the response for up to MaxWait
		WriteTimeout: handler.MaxWait + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// cacheMiddleware keeps API responses out of caches. Session state and
// analysis results change on every call.
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
