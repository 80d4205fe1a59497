// Package pipeline drives a pitch deck from upload to analyzed: text
// extraction, metadata extraction, dedup and merge, retrieval ingestion,
// and the council trigger.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturesight/dealdesk/internal/config"
	"github.com/venturesight/dealdesk/internal/extract"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/store"
	"github.com/venturesight/dealdesk/internal/textex"
)

// MetadataExtractor pulls structured metadata out of deck text.
type MetadataExtractor interface {
	Metadata(ctx context.Context, deckText string, allowedIndustries []string) (*extract.Metadata, error)
}

// Ingester feeds extracted text into the retrieval index.
type Ingester interface {
	Ingest(ctx context.Context, documentID, text string) error
}

// Analyzer runs the analyst council over a document.
type Analyzer interface {
	Analyze(ctx context.Context, doc *model.Document, thesis model.Thesis) error
}

// Service is the document pipeline.
type Service struct {
	store    store.Store
	textex   textex.Extractor
	metadata MetadataExtractor
	ingester Ingester
	analyzer Analyzer
	runner   *Runner
	cfg      config.UploadConfig
}

// New creates a pipeline Service.
func New(
	st store.Store,
	tx textex.Extractor,
	metadata MetadataExtractor,
	ingester Ingester,
	analyzer Analyzer,
	runner *Runner,
	cfg config.UploadConfig,
) *Service {
	return &Service{
		store:    st,
		textex:   tx,
		metadata: metadata,
		ingester: ingester,
		analyzer: analyzer,
		runner:   runner,
		cfg:      cfg,
	}
}

// Upload validates and registers a deck, then schedules background
// processing. A re-upload of identical bytes by the same user returns the
// existing document untouched.
func (s *Service) Upload(ctx context.Context, userID, filename string, content []byte) (*model.Document, error) {
	if userID == "" {
		return nil, eris.New("pipeline: user id is required")
	}
	if err := s.validateUpload(filename, content); err != nil {
		return nil, err
	}

	fingerprint := model.Fingerprint(content)
	existing, err := s.store.GetDocumentByFingerprint(ctx, userID, fingerprint)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fingerprint lookup")
	}
	if existing != nil {
		zap.L().Info("pipeline: duplicate upload, returning existing document",
			zap.String("document_id", existing.ID),
			zap.String("filename", filename),
		)
		return existing, nil
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:          uuid.NewString(),
		UserID:      userID,
		Filename:    filename,
		Name:        extract.FallbackName("", filename),
		Status:      model.StatusPending,
		Fingerprint: fingerprint,
		UploadedAt:  now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, eris.Wrap(err, "pipeline: create document")
	}

	s.runner.Submit("process:"+doc.ID, func(taskCtx context.Context) {
		if err := s.Process(taskCtx, doc.ID, content); err != nil {
			zap.L().Error("pipeline: background processing failed",
				zap.String("document_id", doc.ID),
				zap.Error(err),
			)
		}
	})
	return doc, nil
}

func (s *Service) validateUpload(filename string, content []byte) error {
	if len(content) == 0 {
		return eris.New("pipeline: file is empty")
	}
	maxBytes := int64(s.cfg.MaxSizeMB) << 20
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return eris.Errorf("pipeline: file exceeds %d MB limit", s.cfg.MaxSizeMB)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range s.cfg.Extensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}
	return eris.Errorf("pipeline: unsupported file type %q", ext)
}

// Process runs the synchronous pipeline stages for an uploaded document:
// text extraction, metadata, name-based merge, retrieval ingestion, and
// the analysis trigger. Metadata and ingestion failures degrade; a
// document with no extractable text fails.
func (s *Service) Process(ctx context.Context, documentID string, content []byte) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return eris.Wrap(err, "pipeline: load document")
	}
	if doc == nil {
		return eris.Errorf("pipeline: document not found: %s", documentID)
	}

	s.setStatus(ctx, doc.ID, model.StatusProcessing)

	text, err := s.textex.Extract(ctx, doc.Filename, content)
	if err != nil || strings.TrimSpace(text) == "" {
		s.setStatus(ctx, doc.ID, model.StatusFailed)
		if err != nil {
			return eris.Wrapf(err, "pipeline: extract text from %s", doc.Filename)
		}
		return eris.Errorf("pipeline: no usable text in %s", doc.Filename)
	}
	doc.RawText = text

	s.applyMetadata(ctx, doc)

	doc, err = s.mergeByName(ctx, doc)
	if err != nil {
		return err
	}

	doc.Status = model.StatusProcessing
	if err := s.store.UpdateDocumentExtraction(ctx, doc); err != nil {
		s.setStatus(ctx, doc.ID, model.StatusFailed)
		return eris.Wrap(err, "pipeline: persist extraction")
	}

	// Retrieval ingestion is best-effort: search degrades, analysis does not.
	if err := s.ingester.Ingest(ctx, doc.ID, text); err != nil {
		zap.L().Warn("pipeline: retrieval ingestion failed",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}

	return s.TriggerAnalysis(ctx, doc.ID)
}

// applyMetadata fills the document's name and enrichment from the LLM
// extraction, falling back to the first-line / filename heuristic when the
// extraction fails or returns no name.
func (s *Service) applyMetadata(ctx context.Context, doc *model.Document) {
	var sectors []string
	if th, err := s.store.GetThesis(ctx, doc.UserID); err == nil && th != nil {
		sectors = th.TargetSectors
	}

	meta, err := s.metadata.Metadata(ctx, doc.RawText, sectors)
	if err != nil {
		zap.L().Warn("pipeline: metadata extraction failed, using fallback name",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		doc.Name = extract.FallbackName(doc.RawText, doc.Filename)
		return
	}

	doc.Enrichment = meta.Enrichment
	if meta.StartupName != "" {
		doc.Name = meta.StartupName
	} else {
		doc.Name = extract.FallbackName(doc.RawText, doc.Filename)
	}
}

// mergeByName folds a fresh upload into an existing non-archived document
// with the same startup name: the existing record absorbs the new text,
// fingerprint and enrichment, and the fresh record is removed.
func (s *Service) mergeByName(ctx context.Context, doc *model.Document) (*model.Document, error) {
	existing, err := s.store.GetDocumentByName(ctx, doc.UserID, doc.Name, doc.ID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: name lookup")
	}
	if existing == nil {
		return doc, nil
	}

	zap.L().Info("pipeline: merging upload into existing deal",
		zap.String("existing_id", existing.ID),
		zap.String("uploaded_id", doc.ID),
		zap.String("name", doc.Name),
	)

	existing.Filename = doc.Filename
	existing.RawText = doc.RawText
	existing.Fingerprint = doc.Fingerprint
	existing.Name = doc.Name
	existing.Enrichment = model.MergeEnrichment(existing.Enrichment, doc.Enrichment)

	if err := s.store.DeleteDocument(ctx, doc.ID); err != nil {
		return nil, eris.Wrap(err, "pipeline: remove superseded upload")
	}
	return existing, nil
}

// TriggerAnalysis marks a document analyzing and runs the council in the
// background. A document already being analyzed is rejected.
func (s *Service) TriggerAnalysis(ctx context.Context, documentID string) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return eris.Wrap(err, "pipeline: load document")
	}
	if doc == nil {
		return eris.Errorf("pipeline: document not found: %s", documentID)
	}
	if doc.Status == model.StatusAnalyzing {
		return eris.Errorf("pipeline: document %s is already being analyzed", documentID)
	}
	if strings.TrimSpace(doc.RawText) == "" {
		return eris.Errorf("pipeline: document %s has no extracted text", documentID)
	}

	if err := s.store.SetDocumentStatus(ctx, documentID, model.StatusAnalyzing); err != nil {
		return eris.Wrap(err, "pipeline: mark analyzing")
	}

	accepted := s.runner.Submit("analyze:"+documentID, func(taskCtx context.Context) {
		thesis := s.loadThesis(taskCtx, doc.UserID)
		if err := s.analyzer.Analyze(taskCtx, doc, thesis); err != nil {
			zap.L().Error("pipeline: analysis failed",
				zap.String("document_id", documentID),
				zap.Error(err),
			)
		}
	})
	if !accepted {
		return eris.Errorf("pipeline: analysis already running for %s", documentID)
	}
	return nil
}

func (s *Service) loadThesis(ctx context.Context, userID string) model.Thesis {
	th, err := s.store.GetThesis(ctx, userID)
	if err != nil {
		zap.L().Warn("pipeline: thesis lookup failed", zap.Error(err))
		return model.Thesis{UserID: userID}
	}
	if th == nil {
		return model.Thesis{UserID: userID}
	}
	return *th
}

// GetAnalysis returns the stored analysis with the consensus enrichment
// refreshed from the document's live record, so field edits made after the
// council ran are reflected.
func (s *Service) GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load document")
	}
	if doc == nil {
		return nil, eris.Errorf("pipeline: document not found: %s", documentID)
	}

	analysis, err := s.store.GetAnalysis(ctx, documentID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load analysis")
	}
	if analysis == nil {
		return nil, eris.Errorf("pipeline: no analysis for document %s", documentID)
	}

	analysis.Consensus.Enrichment = model.MergeEnrichment(analysis.Consensus.Enrichment, doc.Enrichment)
	if analysis.Consensus.StartupName == "" {
		analysis.Consensus.StartupName = doc.Name
	}
	return analysis, nil
}

// Get returns a single document.
func (s *Service) Get(ctx context.Context, documentID string) (*model.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load document")
	}
	if doc == nil {
		return nil, eris.Errorf("pipeline: document not found: %s", documentID)
	}
	return doc, nil
}

// List returns documents matching the filter.
func (s *Service) List(ctx context.Context, filter store.DocumentFilter) ([]model.Document, error) {
	docs, err := s.store.ListDocuments(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list documents")
	}
	return docs, nil
}

// UpdateNotes replaces the free-form notes on a document.
func (s *Service) UpdateNotes(ctx context.Context, documentID, notes string) error {
	if err := s.store.UpdateDocumentNotes(ctx, documentID, notes); err != nil {
		return eris.Wrap(err, "pipeline: update notes")
	}
	return nil
}

// Archive moves a document to archived. Archived documents are excluded
// from dedup and merge lookups but keep their analysis.
func (s *Service) Archive(ctx context.Context, documentID string) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return eris.Wrap(err, "pipeline: load document")
	}
	if doc == nil {
		return eris.Errorf("pipeline: document not found: %s", documentID)
	}
	if err := s.store.SetDocumentStatus(ctx, documentID, model.StatusArchived); err != nil {
		return eris.Wrap(err, "pipeline: archive document")
	}
	return nil
}

// Delete removes a document and everything derived from it.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return eris.Wrap(err, "pipeline: delete document")
	}
	zap.L().Info("pipeline: document deleted", zap.String("document_id", documentID))
	return nil
}

func (s *Service) setStatus(ctx context.Context, documentID string, status model.Status) {
	if err := s.store.SetDocumentStatus(ctx, documentID, status); err != nil {
		zap.L().Warn("pipeline: status update failed",
			zap.String("document_id", documentID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
