package options

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	opts := NewServerOptions()
	require.NoError(t, opts.Validate())
}

func TestValidateMilvusRequiresAddress(t *testing.T) {
	opts := NewServerOptions()
	opts.VectorBackend = "milvus"
	assert.ErrorContains(t, opts.Validate(), "milvus-address")

	opts.MilvusAddress = "localhost:19530"
	require.NoError(t, opts.Validate())
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	opts := NewServerOptions()
	opts.VectorBackend = "faiss"
	assert.ErrorContains(t, opts.Validate(), "unknown vector backend")
}

func TestValidateOpenAIRequiresKey(t *testing.T) {
	opts := NewServerOptions()
	opts.CompletionProvider = "openai"
	assert.ErrorContains(t, opts.Validate(), "llm-api-key")

	opts.LLMAPIKey = "k"
	require.NoError(t, opts.Validate())
}

func TestConfigCarriesProviderOptions(t *testing.T) {
	opts := NewServerOptions()
	opts.LLMBaseURL = "http://llm:9999"
	opts.ChatModel = "m1"

	cfg, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, "http://llm:9999", cfg.ProviderOptions["base_url"])
	assert.Equal(t, "m1", cfg.ProviderOptions["chat_model"])
	assert.NotContains(t, cfg.ProviderOptions, "api_key")
	assert.Equal(t, "memory", cfg.VectorBackend)
}

func TestBindEnvOverridesDefaults(t *testing.T) {
	opts := NewServerOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)

	t.Setenv("NLQUERY_ADDR", ":9999")
	t.Setenv("NLQUERY_CACHE_SIZE", "42")

	require.NoError(t, opts.BindEnv(viper.New(), fs))
	assert.Equal(t, ":9999", opts.Addr)
	assert.Equal(t, 42, opts.CacheSize)
}
