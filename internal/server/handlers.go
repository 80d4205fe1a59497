package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/venturesight/dealdesk/internal/assistant"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/store"
)

// maxUploadMemory bounds the multipart parser's in-memory buffer; larger
// files spill to disk.
const maxUploadMemory = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.breakers != nil {
		upstreams := map[string]string{}
		for name, state := range s.breakers.States() {
			upstreams[name] = state.String()
		}
		body["upstreams"] = upstreams
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	doc, err := s.pipeline.Upload(r.Context(), userFrom(r), header.Filename, content)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, doc)
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	filter := store.DocumentFilter{
		UserID:          userFrom(r),
		Status:          model.Status(r.URL.Query().Get("status")),
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	docs, err := s.pipeline.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Raw text stays out of list responses.
	for i := range docs {
		docs[i].RawText = ""
	}
	respondJSON(w, http.StatusOK, map[string]any{"decks": docs})
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ownedDocument(w, r)
	if doc == nil || err != nil {
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ownedDocument(w, r)
	if doc == nil || err != nil {
		return
	}
	if err := s.pipeline.Delete(r.Context(), doc.ID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ownedDocument(w, r)
	if doc == nil || err != nil {
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.pipeline.UpdateNotes(r.Context(), doc.ID, body.Notes); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleArchiveDeck(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ownedDocument(w, r)
	if doc == nil || err != nil {
		return
	}
	if err := s.pipeline.Archive(r.Context(), doc.ID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

func (s *Server) handleTriggerAnalysis(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ownedDocument(w, r)
	if doc == nil || err != nil {
		return
	}
	if err := s.pipeline.TriggerAnalysis(r.Context(), doc.ID); err != nil {
		if strings.Contains(err.Error(), "already") {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "analyzing"})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ownedDocument(w, r)
	if doc == nil || err != nil {
		return
	}
	analysis, err := s.pipeline.GetAnalysis(r.Context(), doc.ID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req assistant.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = userFrom(r)

	reply, err := s.assistant.Respond(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.assistant.Conversations(r.Context(), userFrom(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.assistant.History(r.Context(), userFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleGetThesis(w http.ResponseWriter, r *http.Request) {
	th, err := s.thesis.Get(r.Context(), userFrom(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, th)
}

func (s *Server) handlePutThesis(w http.ResponseWriter, r *http.Request) {
	var th model.Thesis
	if err := json.NewDecoder(r.Body).Decode(&th); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := s.thesis.Update(r.Context(), userFrom(r), &th)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	docIDs := r.URL.Query()["deck_id"]
	if len(docIDs) == 0 {
		docs, err := s.pipeline.List(r.Context(), store.DocumentFilter{UserID: userFrom(r)})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, d := range docs {
			docIDs = append(docIDs, d.ID)
		}
	}
	if len(docIDs) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{"chunks": []model.Chunk{}})
		return
	}

	limit := 0
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = n
	}
	chunks, err := s.retrieval.Search(r.Context(), query, docIDs, limit, 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

// ownedDocument loads the {id} document and enforces ownership. It writes
// the error response itself; a nil document means the handler is done.
func (s *Server) ownedDocument(w http.ResponseWriter, r *http.Request) (*model.Document, error) {
	doc, err := s.pipeline.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil || doc == nil {
		respondError(w, http.StatusNotFound, "document not found")
		return nil, err
	}
	if doc.UserID != userFrom(r) {
		respondError(w, http.StatusNotFound, "document not found")
		return nil, nil
	}
	return doc, nil
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
