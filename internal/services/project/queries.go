package project

import (
	"context"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
)

func (s *Service) List(ctx context.Context, f repositories.ProjectFilter) ([]models.Project, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("invalid status")
	}
	out, err := s.projects.List(ctx, f)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list projects")
	}
	return out, nil
}

// Applicants returns the users who applied, in application order.
func (s *Service) Applicants(ctx context.Context, projectID uuid.UUID) ([]models.User, error) {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListByIDs(ctx, p.Applicants)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to load applicants")
	}
	return users, nil
}

func (s *Service) ListForClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error) {
	out, err := s.projects.ListByClient(ctx, clientID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list projects")
	}
	return out, nil
}

func (s *Service) ListOngoingForClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error) {
	out, err := s.projects.ListByClientAndStatus(ctx, clientID, models.ProjectInProgress)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list projects")
	}
	return out, nil
}

func (s *Service) ListApplied(ctx context.Context, freelancerID uuid.UUID) ([]models.Project, error) {
	out, err := s.projects.ListByApplicant(ctx, freelancerID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list projects")
	}
	return out, nil
}

func (s *Service) ListAssigned(ctx context.Context, freelancerID uuid.UUID) ([]models.Project, error) {
	out, err := s.projects.ListAssignedTo(ctx, freelancerID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list projects")
	}
	return out, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	out, err := s.projects.Categories(ctx)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list categories")
	}
	return out, nil
}
