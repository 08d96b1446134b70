package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/knowledgescope/concept-resolution-engine/internal/analytics"
	"github.com/knowledgescope/concept-resolution-engine/internal/concept"
	"github.com/knowledgescope/concept-resolution-engine/internal/corpus"
	"github.com/knowledgescope/concept-resolution-engine/internal/fuzzy"
	"github.com/knowledgescope/concept-resolution-engine/internal/resolver"
	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval"
	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval/index"
	"github.com/knowledgescope/concept-resolution-engine/internal/server"
	"github.com/knowledgescope/concept-resolution-engine/pkg/config"
	"github.com/knowledgescope/concept-resolution-engine/pkg/health"
	"github.com/knowledgescope/concept-resolution-engine/pkg/kafka"
	"github.com/knowledgescope/concept-resolution-engine/pkg/logger"
	"github.com/knowledgescope/concept-resolution-engine/pkg/metrics"
	"github.com/knowledgescope/concept-resolution-engine/pkg/middleware"
	pkgredis "github.com/knowledgescope/concept-resolution-engine/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting resolver service", "port", cfg.Server.Port)

	concepts, err := corpus.LoadConcepts(cfg.Corpus.ConceptsPath)
	if err != nil {
		slog.Error("failed to load concepts", "path", cfg.Corpus.ConceptsPath, "error", err)
		os.Exit(1)
	}
	list := concept.NewList(concepts)

	matcher, err := fuzzy.NewMatcher(list, fuzzyConfig(cfg.Fuzzy))
	if err != nil {
		slog.Error("failed to build fuzzy matcher", "error", err)
		os.Exit(1)
	}

	// The document corpus is optional; without it the fulltext layer and
	// the search endpoint are unavailable.
	var engine *retrieval.Engine
	var docCount int
	if cfg.Corpus.DocumentsPath != "" {
		docs, err := corpus.LoadDocuments(cfg.Corpus.DocumentsPath)
		if err != nil {
			slog.Error("failed to load documents", "path", cfg.Corpus.DocumentsPath, "error", err)
			os.Exit(1)
		}
		engine, err = retrieval.NewEngine(docs, retrievalConfig(cfg.Retrieval))
		if err != nil {
			slog.Error("failed to build retrieval engine", "error", err)
			os.Exit(1)
		}
		docCount = len(docs)
	}
	slog.Info("corpus loaded", "concepts", list.Len(), "documents", docCount)

	res := resolver.New(list, matcher, engine, resolver.Config{
		FuzzyThreshold: cfg.Resolver.FuzzyThreshold,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var respCache *server.ResponseCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, response caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		respCache = server.NewResponseCache(redisClient, cfg.Redis)
		slog.Info("response cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.EventsTopic)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("query analytics enabled", "topic", cfg.Kafka.EventsTopic)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.CorpusConcepts.Set(float64(list.Len()))
		m.CorpusDocuments.Set(float64(docCount))
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	checker.Register("resolver", func(ctx context.Context) health.ComponentHealth {
		if list.Len() > 0 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d concepts loaded", list.Len())}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "no concepts"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := server.New(res, matcher, engine, respCache, collector, m)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/resolve", h.Resolve)
	mux.HandleFunc("GET /api/v1/concept", h.Concept)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Resolver.QueryTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID()(chain)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("resolver service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("resolver service stopped")
}

// fuzzyConfig maps the YAML section onto the matcher's config, letting the
// matcher's defaults fill anything the file left at zero.
func fuzzyConfig(c config.FuzzyConfig) fuzzy.Config {
	fc := fuzzy.DefaultConfig()
	if c.JaccardThreshold > 0 {
		fc.JaccardThreshold = c.JaccardThreshold
	}
	if c.NGramSize > 0 {
		fc.NGramSize = c.NGramSize
	}
	if c.MinTermLength > 0 {
		fc.MinTermLength = c.MinTermLength
	}
	if c.MaxLevenshteinLength > 0 {
		fc.MaxLevenshteinLength = c.MaxLevenshteinLength
	}
	if c.CacheCapacity > 0 {
		fc.CacheCapacity = c.CacheCapacity
	}
	if len(c.Abbreviations) > 0 {
		fc.Abbreviations = c.Abbreviations
	}
	return fc
}

func retrievalConfig(c config.RetrievalConfig) retrieval.Config {
	rc := retrieval.DefaultConfig()
	if len(c.FieldBoosts) > 0 {
		weights := make(index.Weights, len(c.FieldBoosts))
		for field, boost := range c.FieldBoosts {
			weights[index.Field(field)] = boost
		}
		rc.FieldWeights = weights
	}
	if len(c.StopWords) > 0 {
		rc.StopWords = c.StopWords
	}
	if c.MinTermLength > 0 {
		rc.MinTermLength = c.MinTermLength
	}
	if c.CacheCapacity > 0 {
		rc.CacheCapacity = c.CacheCapacity
	}
	if c.DefaultLimit > 0 {
		rc.DefaultLimit = c.DefaultLimit
	}
	if c.MinScore > 0 {
		rc.DefaultMinScore = c.MinScore
	}
	if c.SnippetLength > 0 {
		rc.SnippetLength = c.SnippetLength
	}
	return rc
}
