package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCompleter struct{}

func (nopCompleter) Complete(context.Context, string) (string, error) { return "ok", nil }
func (nopCompleter) Name() string                                     { return "nop" }

func TestRegistryRoundTrip(t *testing.T) {
	RegisterCompleter("nop-test", func(map[string]any) (Completer, error) {
		return nopCompleter{}, nil
	})

	c, err := NewCompleter("nop-test", nil)
	require.NoError(t, err)
	assert.Equal(t, "nop", c.Name())
}

func TestRegistryUnknownProviders(t *testing.T) {
	_, err := NewCompleter("does-not-exist", nil)
	assert.ErrorContains(t, err, "unknown completion provider")

	_, err = NewEmbedder("does-not-exist", nil)
	assert.ErrorContains(t, err, "unknown embedding provider")
}
