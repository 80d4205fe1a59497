// Package gemini provides text embeddings backed by Google's Gemini API.
package gemini

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultModel = "gemini-embedding-001"

// Embedder generates embedding vectors for retrieval. Documents and
// queries use different task types, which measurably improves ranking.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Close() error
}

type genaiEmbedder struct {
	client *genai.Client
	model  string
}

// NewEmbedder creates an Embedder backed by the Gemini API.
func NewEmbedder(ctx context.Context, apiKey, model string) (Embedder, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}

	return &genaiEmbedder{client: client, model: model}, nil
}

func (e *genaiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents,
		&genai.EmbedContentConfig{
			TaskType: "RETRIEVAL_DOCUMENT",
		},
	)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: embed documents")
	}
	if len(result.Embeddings) != len(texts) {
		return nil, eris.Errorf("gemini: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

func (e *genaiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents,
		&genai.EmbedContentConfig{
			TaskType: "RETRIEVAL_QUERY",
		},
	)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: embed query")
	}
	if len(result.Embeddings) == 0 {
		return nil, eris.New("gemini: no embeddings returned")
	}

	return result.Embeddings[0].Values, nil
}

func (e *genaiEmbedder) Close() error {
	// *genai.Client has no Close method; nothing to release.
	return nil
}
