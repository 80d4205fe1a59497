// Package server exposes the deal pipeline over HTTP: uploads, documents,
// analyses, chat, thesis and retrieval search.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturesight/dealdesk/internal/assistant"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/resilience"
	"github.com/venturesight/dealdesk/internal/store"
)

// Pipeline is the document pipeline surface the API exposes.
type Pipeline interface {
	Upload(ctx context.Context, userID, filename string, content []byte) (*model.Document, error)
	Get(ctx context.Context, documentID string) (*model.Document, error)
	List(ctx context.Context, filter store.DocumentFilter) ([]model.Document, error)
	UpdateNotes(ctx context.Context, documentID, notes string) error
	Archive(ctx context.Context, documentID string) error
	Delete(ctx context.Context, documentID string) error
	TriggerAnalysis(ctx context.Context, documentID string) error
	GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error)
}

// Assistant is the chat surface.
type Assistant interface {
	Respond(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatReply, error)
	Conversations(ctx context.Context, userID string) ([]model.Conversation, error)
	History(ctx context.Context, userID, conversationID string) ([]model.Message, error)
}

// ThesisManager is the thesis surface.
type ThesisManager interface {
	Get(ctx context.Context, userID string) (*model.Thesis, error)
	Update(ctx context.Context, userID string, t *model.Thesis) (*model.Thesis, error)
}

// Retriever answers deck content searches.
type Retriever interface {
	Search(ctx context.Context, query string, documentIDs []string, limit int, threshold float64) ([]model.Chunk, error)
}

// Server is the HTTP API.
type Server struct {
	pipeline  Pipeline
	assistant Assistant
	thesis    ThesisManager
	retrieval Retriever
	breakers  *resilience.ServiceBreakers
	router    chi.Router
}

// New creates a Server with its routes mounted. breakers may be nil; when
// set, the health endpoint reports per-provider circuit states.
func New(p Pipeline, a Assistant, th ThesisManager, ret Retriever, breakers *resilience.ServiceBreakers) *Server {
	s := &Server{
		pipeline:  p,
		assistant: a,
		thesis:    th,
		retrieval: ret,
		breakers:  breakers,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/decks", s.handleUpload)
		r.Get("/decks", s.handleListDecks)
		r.Get("/decks/{id}", s.handleGetDeck)
		r.Delete("/decks/{id}", s.handleDeleteDeck)
		r.Put("/decks/{id}/notes", s.handleUpdateNotes)
		r.Post("/decks/{id}/archive", s.handleArchiveDeck)
		r.Post("/decks/{id}/analyze", s.handleTriggerAnalysis)
		r.Get("/decks/{id}/analysis", s.handleGetAnalysis)

		r.Post("/chat", s.handleChat)
		r.Get("/conversations", s.handleListConversations)
		r.Get("/conversations/{id}/messages", s.handleConversationMessages)

		r.Get("/thesis", s.handleGetThesis)
		r.Put("/thesis", s.handlePutThesis)

		r.Get("/search", s.handleSearch)
	})

	s.router = r
	return s
}

// Handler returns the mounted router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server: shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("server: listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// userIDKey carries the authenticated user through the request context.
type contextKey string

const userIDKey contextKey = "user_id"

// requireUser resolves the caller identity from the X-User-ID header.
// Upstream auth terminates before this service; the header is the trusted
// identity it forwards.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userFrom(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
