package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/louayabidi/web-semantique/internal/config"
	"github.com/louayabidi/web-semantique/internal/handler"
	"github.com/louayabidi/web-semantique/internal/lexicon"
	"github.com/louayabidi/web-semantique/internal/metrics"
	"github.com/louayabidi/web-semantique/internal/ontology"
	"github.com/louayabidi/web-semantique/internal/repository"
	"github.com/louayabidi/web-semantique/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Print version info
	log.Printf("Nutrition NL2SPARQL Search")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := config.NewLogger(cfg.Logging)

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	lex, err := lexicon.Load(cfg.Translator.LexiconPath)
	if err != nil {
		log.Fatalf("Failed to load lexicon: %v", err)
	}
	mapping := ontology.Default()
	m := metrics.New(prometheus.DefaultRegisterer)

	analyzer, err := service.NewAnalyzer(cfg.Translator.AnalyzerMode, lex, mapping, service.Limits{
		Default: cfg.Search.DefaultLimit,
		Max:     cfg.Search.MaxLimit,
	})
	if err != nil {
		log.Fatalf("Failed to create analyzer: %v", err)
	}
	scorer := service.NewScorer(cfg.Scoring.WeightName, cfg.Scoring.WeightAttribute, cfg.Scoring.WeightMedical)
	builder := service.NewBuilder(mapping, scorer, logger, m)
	translator, err := service.NewTranslator(analyzer, builder, cfg.Translator.CacheSize, m)
	if err != nil {
		log.Fatalf("Failed to create translator: %v", err)
	}

	logger.Info("translator initialized",
		"analyzer_mode", analyzer.Mode(),
		"lexicon", orEmbedded(cfg.Translator.LexiconPath),
		"cache_size", cfg.Translator.CacheSize,
	)

	store := repository.NewFusekiRepository(&cfg.Fuseki, m)
	logger.Info("triple store configured", "endpoint", store.QueryEndpoint())

	// The search log is optional; without it similar searches and
	// feedback answer 503.
	var history service.SearchLog
	if cfg.PostgreSQL.Enabled {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer repo.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = repo.EnsureSchema(ctx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to prepare search log schema: %v", err)
		}
		history = repo
		logger.Info("connected to PostgreSQL search log")
	} else {
		logger.Warn("search log disabled, set DATABASE_URL or PG_HOST to enable it")
	}

	searchService := service.NewSearchService(store, history, translator, mapping, logger, cfg.Search.MaxLimit)

	// Initialize handlers
	searchHandler := handler.NewSearchHandler(searchService, cfg.Search.MaxLimit)
	feedbackHandler := handler.NewFeedbackHandler(searchService)
	historyHandler := handler.NewHistoryHandler(searchService)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		storeStatus := "ok"
		if err := searchService.Health(c.Request.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
			storeStatus = err.Error()
		}
		c.JSON(code, gin.H{
			"status":        status,
			"service":       "nl2sparql",
			"triple_store":  storeStatus,
			"search_log":    history != nil,
			"analyzer_mode": analyzer.Mode(),
			"version":       Version,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		// Search endpoints
		apiV1.POST("/semantic-search", searchHandler.Search)
		apiV1.POST("/semantic-search/stream", searchHandler.SearchStream) // Streaming search
		apiV1.POST("/translate", searchHandler.Translate)
		apiV1.POST("/sparql", searchHandler.RawQuery)
		apiV1.GET("/search-suggestions", searchHandler.Suggestions)
		apiV1.GET("/search-stats", searchHandler.Stats)

		// Search log endpoints
		apiV1.GET("/searches/:id", historyHandler.Get)
		apiV1.GET("/searches/:id/similar", historyHandler.Similar)
		apiV1.POST("/feedback", feedbackHandler.Submit)
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("starting server", "addr", addr, "api", fmt.Sprintf("http://localhost:%d/api/v1", cfg.Server.Port))

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orEmbedded(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
