package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// genaiMaxBatch is the most inputs one EmbedContent call accepts.
const genaiMaxBatch = 100

// GenAIEngine embeds text with the Gemini embedding models. Documents use
// the configured task type; queries always use RETRIEVAL_QUERY.
type GenAIEngine struct {
	client   *genai.Client
	model    string
	taskType string
}

// NewGenAIEngine creates a Gemini API engine. The key is required.
func NewGenAIEngine(ctx context.Context, apiKey, model, taskType string) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding: GOOGLE_API_KEY is required for the genai provider")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: genai client: %w", err)
	}
	return &GenAIEngine{client: client, model: model, taskType: normalizeTaskType(taskType)}, nil
}

func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.one(ctx, text, e.taskType)
}

func (e *GenAIEngine) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.one(ctx, text, SelectTaskType(KindQuery))
}

// EmbedBatch splits texts into API-sized requests.
func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += genaiMaxBatch {
		end := min(start+genaiMaxBatch, len(texts))
		vecs, err := e.call(ctx, texts[start:end], e.taskType)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Dimensions is the default output width of gemini-embedding-001.
func (e *GenAIEngine) Dimensions() int { return 768 }

func (e *GenAIEngine) Name() string { return "genai:" + e.model }

func (e *GenAIEngine) one(ctx context.Context, text, taskType string) ([]float32, error) {
	vecs, err := e.call(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *GenAIEngine) call(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	res, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: taskType})
	if err != nil {
		return nil, fmt.Errorf("embedding: genai %s: %w", e.model, err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding: genai returned %d vectors for %d inputs", len(res.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		vecs[i] = emb.Values
	}
	return vecs, nil
}
