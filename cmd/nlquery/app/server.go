// Package app provides the nlquery server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kart-io/nlquery/cmd/nlquery/app/options"

	// Register the LLM providers.
	_ "github.com/kart-io/nlquery/pkg/llm/ollama"
	_ "github.com/kart-io/nlquery/pkg/llm/openai"
)

const commandDesc = `Natural language query engine.

The server answers natural language questions against a connected relational
database and an indexed document corpus:
  - Query intent classification (SQL, document search or both)
  - LLM-backed SQL generation behind a safety gate
  - Semantic document search over uploaded files
  - Response caching and bounded query history`

// NewCommand creates the root command.
func NewCommand() *cobra.Command {
	opts := options.NewServerOptions()

	cmd := &cobra.Command{
		Use:          "nlquery",
		Short:        "Natural language query engine",
		Long:         commandDesc,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.BindEnv(viper.New(), cmd.Flags()); err != nil {
				return fmt.Errorf("failed to bind configuration: %w", err)
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			return run(opts)
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

func run(opts *options.ServerOptions) error {
	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	server, err := cfg.NewServer()
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return server.Run(setupSignalContext())
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
