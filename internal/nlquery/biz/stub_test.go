package biz

import (
	"context"
	"time"

	"github.com/kart-io/nlquery/internal/model"
)

// stubCompleter returns a canned completion or error.
type stubCompleter struct {
	output string
	err    error
	calls  int
}

func (s *stubCompleter) Complete(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.output, s.err
}

func (s *stubCompleter) Name() string { return "stub" }

// stubEmbedder maps known texts to fixed vectors, everything else to fallback.
type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := s.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = s.fallback
		}
	}
	return out, nil
}

func (s *stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *stubEmbedder) Name() string { return "stub" }

// stubExecutor records the statement it ran and returns canned rows.
type stubExecutor struct {
	rows    []model.Row
	err     error
	lastSQL string
}

func (s *stubExecutor) Execute(_ context.Context, sql string) ([]model.Row, time.Duration, error) {
	s.lastSQL = sql
	return s.rows, time.Millisecond, s.err
}
