package store

import (
	"context"
	"strings"
)

// MockEmbeddingEngine implements embedding.Engine for testing.
type MockEmbeddingEngine struct {
	EmbedFunc      func(ctx context.Context, text string) ([]float32, error)
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	DimensionsFunc func() int
	NameFunc       func() string

	batches int
}

func (m *MockEmbeddingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	// Return a dummy vector of length 4 by default
	return []float32{0.1, 0.2, 0.3, 0.4}, nil
}

func (m *MockEmbeddingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches++
	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func (m *MockEmbeddingEngine) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.Embed(ctx, text)
}

func (m *MockEmbeddingEngine) Dimensions() int {
	if m.DimensionsFunc != nil {
		return m.DimensionsFunc()
	}
	return 4
}

func (m *MockEmbeddingEngine) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock-embedding-engine"
}

// keywordEngine maps texts onto fixed axes by keyword so that similarity
// ordering is predictable.
func keywordEngine() *MockEmbeddingEngine {
	axes := []string{"resume", "interview", "salary", "network"}
	return &MockEmbeddingEngine{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			lower := strings.ToLower(text)
			vec := make([]float32, len(axes))
			for i, kw := range axes {
				vec[i] = float32(strings.Count(lower, kw))
			}
			return vec, nil
		},
	}
}
