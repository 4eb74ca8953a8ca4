package project

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
)

// OpenDispute freezes an in-progress project until an admin resolves it.
func (s *Service) OpenDispute(ctx context.Context, projectID, userID uuid.UUID, reason string) (*models.Dispute, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("reason is required")
	}
	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsParticipant(userID) {
		return nil, apperr.Forbidden("only project participants can open a dispute")
	}
	if p.Status != models.ProjectInProgress {
		return nil, apperr.Validation("only in-progress projects can be disputed")
	}

	p.Status = models.ProjectDispute
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}

	d := &models.Dispute{ProjectID: p.ID, InitiatorID: userID, Reason: reason}
	if err := s.extras.CreateDispute(ctx, d); err != nil {
		return nil, apperr.Persistence(err, "failed to create dispute")
	}
	return d, nil
}

type ResolveInput struct {
	Outcome    models.DisputeStatus `json:"outcome" validate:"required,oneof=resolved rejected"`
	Resolution string               `json:"resolution" validate:"required"`
	Status     models.ProjectStatus `json:"status" validate:"omitempty,oneof=Completed Cancelled"`
}

// ResolveDispute closes a dispute. A rejected dispute puts the project back in
// progress; a resolved one ends it as Completed unless Status says Cancelled.
func (s *Service) ResolveDispute(ctx context.Context, adminID, disputeID uuid.UUID, in ResolveInput) (*models.Dispute, error) {
	if err := v.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	d, err := s.extras.GetDispute(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("dispute not found")
		}
		return nil, apperr.Persistence(err, "failed to load dispute")
	}
	if d.Status != models.DisputeOpen {
		return nil, apperr.Validation("dispute is already closed")
	}

	p, err := s.load(ctx, d.ProjectID)
	if err != nil {
		return nil, err
	}
	if in.Outcome == models.DisputeRejected {
		p.Status = models.ProjectInProgress
	} else {
		p.Status = models.ProjectCompleted
		if in.Status == models.ProjectCancelled {
			p.Status = models.ProjectCancelled
		}
		p.IsAssigned = false
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}

	now := time.Now()
	d.Status = in.Outcome
	d.Resolution = in.Resolution
	d.ResolvedBy = &adminID
	d.ResolvedAt = &now
	if err := s.extras.SaveDispute(ctx, d); err != nil {
		return nil, apperr.Persistence(err, "failed to save dispute")
	}
	return d, nil
}
