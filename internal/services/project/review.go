package project

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
)

type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// CreateReview lets one party of a completed project rate the other, once.
func (s *Service) CreateReview(ctx context.Context, projectID, reviewerID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if err := v.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsParticipant(reviewerID) {
		return nil, apperr.Forbidden("only project participants can leave a review")
	}
	if p.Status != models.ProjectCompleted || p.SelectedFreelancer == nil {
		return nil, apperr.Validation("only completed projects can be reviewed")
	}

	reviewee := p.ClientID
	if reviewerID == p.ClientID {
		reviewee = *p.SelectedFreelancer
	}
	rv := &models.Review{
		ProjectID:  p.ID,
		ReviewerID: reviewerID,
		RevieweeID: reviewee,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
	}
	if err := s.extras.CreateReview(ctx, rv); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation("you have already reviewed this project")
		}
		return nil, apperr.Persistence(err, "failed to save review")
	}
	return rv, nil
}

func (s *Service) ListReviews(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	out, err := s.extras.ListReviewsFor(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list reviews")
	}
	return out, nil
}
