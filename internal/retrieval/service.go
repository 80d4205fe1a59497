// Package retrieval chunks documents, embeds the chunks, and answers
// similarity queries with a substring fallback for short or jargon-heavy
// queries where embedding similarity degrades.
package retrieval

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturesight/dealdesk/internal/config"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/store"
	"github.com/venturesight/dealdesk/pkg/gemini"
)

// fallbackMinHits is the vector-hit count below which the substring
// fallback kicks in.
const fallbackMinHits = 2

// chunkSource tags chunks created from deck text.
const chunkSource = "deck"

// Service is the retrieval layer over the chunk store.
type Service struct {
	store    store.Store
	embedder gemini.Embedder
	cfg      config.RetrievalConfig
}

// New creates a retrieval Service.
func New(st store.Store, embedder gemini.Embedder, cfg config.RetrievalConfig) *Service {
	return &Service{store: st, embedder: embedder, cfg: cfg}
}

// Ingest replaces a document's chunks: the text is split, each chunk is
// embedded, and the batch is bulk-inserted. Embedding failures drop the
// affected chunk rather than failing the ingestion.
func (s *Service) Ingest(ctx context.Context, documentID, text string) error {
	if err := s.store.DeleteChunks(ctx, documentID); err != nil {
		return eris.Wrapf(err, "retrieval: clear chunks for %s", documentID)
	}

	parts := SplitText(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if len(parts) == 0 {
		return nil
	}

	embeddings := s.embedAll(ctx, parts)

	chunks := make([]model.Chunk, 0, len(parts))
	for i, part := range parts {
		if embeddings[i] == nil {
			continue
		}
		chunks = append(chunks, model.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Content:    part,
			Embedding:  embeddings[i],
			Source:     chunkSource,
		})
	}
	if len(chunks) == 0 {
		return eris.Errorf("retrieval: all %d chunks failed to embed for %s", len(parts), documentID)
	}

	if err := s.store.InsertChunks(ctx, chunks); err != nil {
		return eris.Wrapf(err, "retrieval: insert chunks for %s", documentID)
	}

	zap.L().Info("retrieval: document ingested",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunks)),
		zap.Int("dropped", len(parts)-len(chunks)),
	)
	return nil
}

// embedAll embeds every part, batch first. If the batch call fails it
// falls back to per-chunk embedding so one bad chunk cannot sink the
// whole document. A nil entry marks a dropped chunk.
func (s *Service) embedAll(ctx context.Context, parts []string) [][]float32 {
	vectors, err := s.embedder.EmbedDocuments(ctx, parts)
	if err == nil {
		return vectors
	}
	zap.L().Warn("retrieval: batch embedding failed, falling back to per-chunk", zap.Error(err))

	out := make([][]float32, len(parts))
	for i, part := range parts {
		single, err := s.embedder.EmbedDocuments(ctx, []string{part})
		if err != nil || len(single) == 0 {
			zap.L().Warn("retrieval: dropping chunk after embed failure",
				zap.Int("chunk", i),
				zap.Error(err),
			)
			continue
		}
		out[i] = single[0]
	}
	return out
}

// Search returns the most similar chunks for a query across the given
// documents. Fewer than two similarity hits above the threshold trigger a
// substring fallback merged in by chunk id. A failed query embedding
// degrades to the substring search alone.
func (s *Service) Search(ctx context.Context, query string, documentIDs []string, limit int, threshold float64) ([]model.Chunk, error) {
	if query == "" {
		return nil, eris.New("retrieval: query is empty")
	}
	if len(documentIDs) == 0 {
		return nil, eris.New("retrieval: at least one document id is required")
	}
	if limit <= 0 {
		limit = s.cfg.Limit
	}
	if threshold <= 0 {
		threshold = s.cfg.Threshold
	}

	var hits []model.Chunk
	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		zap.L().Warn("retrieval: query embedding failed, substring search only", zap.Error(err))
	} else {
		hits, err = s.similaritySearch(ctx, queryVec, documentIDs, limit, threshold)
		if err != nil {
			return nil, err
		}
	}

	if len(hits) >= fallbackMinHits {
		return hits, nil
	}

	merged, err := s.substringFallback(ctx, query, documentIDs, hits, limit)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *Service) similaritySearch(ctx context.Context, queryVec []float32, documentIDs []string, limit int, threshold float64) ([]model.Chunk, error) {
	var hits []model.Chunk
	for _, docID := range documentIDs {
		chunks, err := s.store.ListChunks(ctx, docID)
		if err != nil {
			return nil, eris.Wrapf(err, "retrieval: list chunks for %s", docID)
		}
		for _, c := range chunks {
			if len(c.Embedding) == 0 {
				continue
			}
			c.Similarity = CosineSimilarity(queryVec, c.Embedding)
			if c.Similarity >= threshold {
				hits = append(hits, c)
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Service) substringFallback(ctx context.Context, query string, documentIDs []string, hits []model.Chunk, limit int) ([]model.Chunk, error) {
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		seen[h.ID] = true
	}

	for _, docID := range documentIDs {
		if len(hits) >= limit {
			break
		}
		matches, err := s.store.SearchChunkText(ctx, docID, query, limit)
		if err != nil {
			return nil, eris.Wrapf(err, "retrieval: substring search for %s", docID)
		}
		for _, m := range matches {
			if seen[m.ID] || len(hits) >= limit {
				continue
			}
			seen[m.ID] = true
			hits = append(hits, m)
		}
	}
	return hits, nil
}

// CosineSimilarity computes the cosine similarity of two vectors. Vectors
// of different lengths or zero magnitude score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
