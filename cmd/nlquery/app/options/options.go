// Package options contains flags and options for initializing the nlquery
// server.
package options

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kart-io/nlquery/internal/nlquery"
	"github.com/kart-io/nlquery/internal/nlquery/biz"
	"github.com/kart-io/nlquery/internal/nlquery/store"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	Addr      string `mapstructure:"addr"`
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`

	CompletionProvider string `mapstructure:"completion-provider"`
	EmbeddingProvider  string `mapstructure:"embedding-provider"`
	LLMBaseURL         string `mapstructure:"llm-base-url"`
	LLMAPIKey          string `mapstructure:"llm-api-key"`
	ChatModel          string `mapstructure:"chat-model"`
	EmbedModel         string `mapstructure:"embed-model"`

	VectorBackend    string `mapstructure:"vector-backend"`
	MilvusAddress    string `mapstructure:"milvus-address"`
	MilvusUsername   string `mapstructure:"milvus-username"`
	MilvusPassword   string `mapstructure:"milvus-password"`
	MilvusDatabase   string `mapstructure:"milvus-database"`
	MilvusCollection string `mapstructure:"milvus-collection"`
	MilvusDimension  int    `mapstructure:"milvus-dimension"`

	CacheSize   int           `mapstructure:"cache-size"`
	CacheTTL    time.Duration `mapstructure:"cache-ttl"`
	HistorySize int           `mapstructure:"history-size"`
	SQLRowLimit int           `mapstructure:"sql-row-limit"`

	DatabaseDSN string `mapstructure:"database-dsn"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		Addr:               ":8080",
		LogLevel:           "INFO",
		LogFormat:          "json",
		CompletionProvider: "ollama",
		EmbeddingProvider:  "ollama",
		VectorBackend:      "memory",
		MilvusCollection:   "nlquery_chunks",
		MilvusDimension:    768,
		CacheSize:          biz.DefaultCacheSize,
		CacheTTL:           biz.DefaultCacheTTL,
		HistorySize:        biz.DefaultHistorySize,
		SQLRowLimit:        biz.DefaultRowLimit,
	}
}

// AddFlags adds the server flags to fs.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "addr", o.Addr, "HTTP listen address")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level (DEBUG, INFO, WARN, ERROR)")
	fs.StringVar(&o.LogFormat, "log-format", o.LogFormat, "Log format (json or console)")

	fs.StringVar(&o.CompletionProvider, "completion-provider", o.CompletionProvider, "Completion provider (ollama or openai)")
	fs.StringVar(&o.EmbeddingProvider, "embedding-provider", o.EmbeddingProvider, "Embedding provider (ollama or openai)")
	fs.StringVar(&o.LLMBaseURL, "llm-base-url", o.LLMBaseURL, "Provider base URL override")
	fs.StringVar(&o.LLMAPIKey, "llm-api-key", o.LLMAPIKey, "Provider API key (openai)")
	fs.StringVar(&o.ChatModel, "chat-model", o.ChatModel, "Chat model override")
	fs.StringVar(&o.EmbedModel, "embed-model", o.EmbedModel, "Embedding model override")

	fs.StringVar(&o.VectorBackend, "vector-backend", o.VectorBackend, "Vector index backend (memory or milvus)")
	fs.StringVar(&o.MilvusAddress, "milvus-address", o.MilvusAddress, "Milvus server address")
	fs.StringVar(&o.MilvusUsername, "milvus-username", o.MilvusUsername, "Milvus username")
	fs.StringVar(&o.MilvusPassword, "milvus-password", o.MilvusPassword, "Milvus password")
	fs.StringVar(&o.MilvusDatabase, "milvus-database", o.MilvusDatabase, "Milvus database name")
	fs.StringVar(&o.MilvusCollection, "milvus-collection", o.MilvusCollection, "Milvus collection name")
	fs.IntVar(&o.MilvusDimension, "milvus-dimension", o.MilvusDimension, "Embedding dimension for the Milvus collection")

	fs.IntVar(&o.CacheSize, "cache-size", o.CacheSize, "Maximum cached responses")
	fs.DurationVar(&o.CacheTTL, "cache-ttl", o.CacheTTL, "Cached response time to live")
	fs.IntVar(&o.HistorySize, "history-size", o.HistorySize, "Maximum retained history records")
	fs.IntVar(&o.SQLRowLimit, "sql-row-limit", o.SQLRowLimit, "Row limit appended to unbounded statements")

	fs.StringVar(&o.DatabaseDSN, "database-dsn", o.DatabaseDSN, "Database to connect at startup")
}

// BindEnv binds NLQUERY_* environment variables to the flags so every option
// can be set without a flag.
func (o *ServerOptions) BindEnv(v *viper.Viper, fs *pflag.FlagSet) error {
	v.SetEnvPrefix("NLQUERY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	return v.Unmarshal(o)
}

// Validate checks whether the options are consistent.
func (o *ServerOptions) Validate() error {
	switch o.VectorBackend {
	case "memory":
	case "milvus":
		if o.MilvusAddress == "" {
			return fmt.Errorf("milvus backend requires --milvus-address")
		}
		if o.MilvusDimension <= 0 {
			return fmt.Errorf("milvus backend requires a positive --milvus-dimension")
		}
	default:
		return fmt.Errorf("unknown vector backend: %s", o.VectorBackend)
	}

	if o.CompletionProvider == "openai" || o.EmbeddingProvider == "openai" {
		if o.LLMAPIKey == "" {
			return fmt.Errorf("openai provider requires --llm-api-key")
		}
	}
	return nil
}

// Config builds the resolved server configuration.
func (o *ServerOptions) Config() (*nlquery.Config, error) {
	providerOpts := map[string]any{}
	if o.LLMBaseURL != "" {
		providerOpts["base_url"] = o.LLMBaseURL
	}
	if o.LLMAPIKey != "" {
		providerOpts["api_key"] = o.LLMAPIKey
	}
	if o.ChatModel != "" {
		providerOpts["chat_model"] = o.ChatModel
	}
	if o.EmbedModel != "" {
		providerOpts["embed_model"] = o.EmbedModel
	}

	return &nlquery.Config{
		Addr:               o.Addr,
		LogLevel:           o.LogLevel,
		LogFormat:          o.LogFormat,
		CompletionProvider: o.CompletionProvider,
		EmbeddingProvider:  o.EmbeddingProvider,
		ProviderOptions:    providerOpts,
		VectorBackend:      o.VectorBackend,
		Milvus: store.MilvusConfig{
			Address:    o.MilvusAddress,
			Username:   o.MilvusUsername,
			Password:   o.MilvusPassword,
			Database:   o.MilvusDatabase,
			Collection: o.MilvusCollection,
			Dimension:  o.MilvusDimension,
		},
		CacheSize:   o.CacheSize,
		CacheTTL:    o.CacheTTL,
		HistorySize: o.HistorySize,
		SQLRowLimit: o.SQLRowLimit,
		DatabaseDSN: o.DatabaseDSN,
	}, nil
}
