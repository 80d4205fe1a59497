// Package thesis manages the per-user investment thesis that grounds the
// council and the assistant.
package thesis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturesight/dealdesk/internal/model"
)

// Store is the slice of the document store the thesis service touches.
type Store interface {
	GetThesis(ctx context.Context, userID string) (*model.Thesis, error)
	UpsertThesis(ctx context.Context, t *model.Thesis) error
}

// Service reads and writes the investment thesis.
type Service struct {
	store Store
}

// New creates a thesis Service.
func New(st Store) *Service {
	return &Service{store: st}
}

// Get returns the user's thesis. A user who never saved one gets an empty
// thesis rather than an error, so callers can always render it.
func (s *Service) Get(ctx context.Context, userID string) (*model.Thesis, error) {
	if userID == "" {
		return nil, eris.New("thesis: user id is required")
	}
	t, err := s.store.GetThesis(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "thesis: get")
	}
	if t == nil {
		return &model.Thesis{UserID: userID}, nil
	}
	return t, nil
}

// Update validates and upserts the thesis for the given user. The user id
// on the thesis is overwritten so a request body cannot write into another
// user's row.
func (s *Service) Update(ctx context.Context, userID string, t *model.Thesis) (*model.Thesis, error) {
	if userID == "" {
		return nil, eris.New("thesis: user id is required")
	}
	if t == nil {
		return nil, eris.New("thesis: thesis is required")
	}
	if t.CheckSizeMin < 0 || t.CheckSizeMax < 0 {
		return nil, eris.New("thesis: check sizes must be non-negative")
	}
	if t.CheckSizeMax > 0 && t.CheckSizeMin > t.CheckSizeMax {
		return nil, eris.New("thesis: check size minimum exceeds maximum")
	}

	t.UserID = userID
	t.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertThesis(ctx, t); err != nil {
		return nil, eris.Wrap(err, "thesis: upsert")
	}

	zap.L().Info("thesis: updated",
		zap.String("user_id", userID),
		zap.Int("target_sectors", len(t.TargetSectors)),
	)
	return t, nil
}
