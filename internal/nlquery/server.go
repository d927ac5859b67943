// Package nlquery assembles the query engine service: logging, providers,
// stores, the engine and the HTTP server.
package nlquery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"

	"github.com/kart-io/nlquery/internal/nlquery/biz"
	"github.com/kart-io/nlquery/internal/nlquery/handler"
	"github.com/kart-io/nlquery/internal/nlquery/metrics"
	"github.com/kart-io/nlquery/internal/nlquery/router"
	"github.com/kart-io/nlquery/internal/nlquery/store"
	"github.com/kart-io/nlquery/pkg/llm"
)

// Config is the fully resolved service configuration.
type Config struct {
	Addr string

	LogLevel  string
	LogFormat string

	// Provider names as registered in pkg/llm, plus their option maps.
	CompletionProvider string
	EmbeddingProvider  string
	ProviderOptions    map[string]any

	// Vector index backend: "memory" or "milvus".
	VectorBackend string
	Milvus        store.MilvusConfig

	CacheSize    int
	CacheTTL     time.Duration
	HistorySize  int
	SQLRowLimit  int

	// Optional database to connect at startup.
	DatabaseDSN string
}

// Server is the assembled service.
type Server struct {
	cfg    Config
	http   *http.Server
	engine *biz.Engine
	index  store.VectorIndex
}

// NewServer builds the service from configuration. It initializes the global
// logger, constructs the LLM providers, the vector index, the engine and the
// HTTP router.
func (c Config) NewServer() (*Server, error) {
	logOpt := option.DefaultLogOption()
	if c.LogLevel != "" {
		logOpt.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		logOpt.Format = c.LogFormat
	}
	logOpt.InitialFields = map[string]any{"service.name": "nlquery"}

	log, err := logger.New(logOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(log)

	completer, err := llm.NewCompleter(c.CompletionProvider, c.ProviderOptions)
	if err != nil {
		return nil, err
	}
	embedder, err := llm.NewEmbedder(c.EmbeddingProvider, c.ProviderOptions)
	if err != nil {
		return nil, err
	}

	var index store.VectorIndex
	switch c.VectorBackend {
	case "", "memory":
		index = store.NewMemoryIndex()
	case "milvus":
		milvusIndex, err := store.NewMilvusIndex(context.Background(), &c.Milvus)
		if err != nil {
			return nil, fmt.Errorf("failed to connect milvus: %w", err)
		}
		index = milvusIndex
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", c.VectorBackend)
	}

	engineMetrics := metrics.NewEngineMetrics()
	docs := store.NewDocumentStore(embedder, index)
	engine := biz.NewEngine(biz.EngineConfig{
		SQLPath: biz.NewSQLPath(completer, biz.NewValidator(c.SQLRowLimit), engineMetrics),
		DocPath: biz.NewDocumentPath(embedder, index, docs),
		Cache:   biz.NewResponseCache(c.CacheSize, c.CacheTTL),
		History: biz.NewHistoryLog(c.HistorySize),
		Docs:    docs,
		Metrics: engineMetrics,
	})

	gin.SetMode(gin.ReleaseMode)
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())
	router.Register(ginEngine, handler.NewQueryHandler(engine), handler.NewAdminHandler(engine))

	addr := c.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &Server{
		cfg: c,
		http: &http.Server{
			Addr:              addr,
			Handler:           ginEngine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		index:  index,
	}, nil
}

// Engine exposes the engine, mainly for tests and the startup connection.
func (s *Server) Engine() *biz.Engine {
	return s.engine
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.DatabaseDSN != "" {
		if _, err := s.engine.ConnectDatabase(ctx, s.cfg.DatabaseDSN); err != nil {
			return fmt.Errorf("failed to connect startup database: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if closer, ok := s.index.(interface{ Close(context.Context) error }); ok {
		_ = closer.Close(shutdownCtx)
	}
	return nil
}
