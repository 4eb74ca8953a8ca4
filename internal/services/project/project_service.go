package project

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
)

var v = validator.New()

type Service struct {
	projects *repositories.ProjectRepository
	users    *repositories.UserRepository
	extras   *repositories.ProfileRepository
}

func NewService(projects *repositories.ProjectRepository, users *repositories.UserRepository, extras *repositories.ProfileRepository) *Service {
	return &Service{projects: projects, users: users, extras: extras}
}

type CreateInput struct {
	Title          string     `json:"title" validate:"required,max=200"`
	Description    string     `json:"description" validate:"required"`
	Budget         int64      `json:"budget" validate:"gte=0"`
	SkillsRequired []string   `json:"skills_required" validate:"dive,required"`
	Deadline       *time.Time `json:"deadline"`
	Category       string     `json:"category" validate:"max=80"`
}

func (s *Service) Create(ctx context.Context, clientID uuid.UUID, in CreateInput) (*models.Project, error) {
	if err := v.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	p := &models.Project{
		ClientID:       clientID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Budget:         in.Budget,
		SkillsRequired: datatypes.NewJSONSlice(normalizeSkills(in.SkillsRequired)),
		Deadline:       in.Deadline,
		Category:       strings.TrimSpace(in.Category),
		Status:         models.ProjectOpen,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, apperr.Persistence(err, "failed to create project")
	}
	return p, nil
}

// Update edits the posting fields. The assignment fields are owned by the
// lifecycle operations below.
func (s *Service) Update(ctx context.Context, actorID, projectID uuid.UUID, in CreateInput) (*models.Project, error) {
	if err := v.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.ClientID != actorID {
		return nil, apperr.Forbidden("only the project owner can edit it")
	}
	if p.Confirm {
		return nil, apperr.Forbidden("project is confirmed and can no longer be edited")
	}

	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	p.Budget = in.Budget
	p.SkillsRequired = datatypes.NewJSONSlice(normalizeSkills(in.SkillsRequired))
	p.Deadline = in.Deadline
	p.Category = strings.TrimSpace(in.Category)

	return p, s.save(ctx, p)
}

func (s *Service) Get(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	return s.load(ctx, projectID)
}

// Apply appends userID to the applicants of the project.
func (s *Service) Apply(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Persistence(err, "failed to load user")
	}
	if p.Status == models.ProjectInProgress {
		return nil, apperr.Validation("project is already in progress")
	}
	if p.HasApplicant(userID) {
		return nil, apperr.Validation("you have already applied to this project")
	}

	p.Applicants = append(p.Applicants, userID)
	return p, s.save(ctx, p)
}

func (s *Service) Unapply(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.IsSelected(userID) {
		return nil, apperr.Forbidden("the selected freelancer cannot unapply, withdraw instead")
	}
	idx := slices.Index(p.Applicants, userID)
	if idx < 0 {
		return nil, apperr.Validation("you have not applied to this project")
	}

	p.Applicants = slices.Delete(p.Applicants, idx, idx+1)
	return p, s.save(ctx, p)
}

// SetStatus moves the project to status. In Progress assigns freelancerID,
// which must be a current applicant.
func (s *Service) SetStatus(ctx context.Context, actorID, projectID uuid.UUID, status models.ProjectStatus, freelancerID *uuid.UUID) (*models.Project, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid status")
	}
	if status == models.ProjectInProgress && (freelancerID == nil || *freelancerID == uuid.Nil) {
		return nil, apperr.Validation("selectedFreelancerId is required to start a project")
	}

	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.ClientID != actorID {
		return nil, apperr.Forbidden("only the project owner can change its status")
	}

	switch status {
	case models.ProjectInProgress:
		if !p.HasApplicant(*freelancerID) {
			return nil, apperr.NotFound("applicant not found")
		}
		if p.Confirm && !p.IsSelected(*freelancerID) {
			return nil, apperr.Forbidden("assignment is confirmed and cannot be changed")
		}
		if !p.IsSelected(*freelancerID) {
			now := time.Now()
			id := *freelancerID
			p.SelectedFreelancer = &id
			p.AcceptedAt = &now
		}
		p.IsAssigned = true
	case models.ProjectOpen:
		if p.Confirm {
			return nil, apperr.Forbidden("assignment is confirmed and cannot be undone")
		}
		p.SelectedFreelancer = nil
		p.AcceptedAt = nil
		p.IsAssigned = false
	case models.ProjectCompleted:
		p.IsAssigned = false
	}

	p.Status = status
	return p, s.save(ctx, p)
}

// Confirm is the selected freelancer's acknowledgment of the assignment.
func (s *Service) Confirm(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Project, error) {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsSelected(freelancerID) {
		return nil, apperr.Forbidden("only the selected freelancer can confirm this project")
	}
	if p.Confirm {
		return p, nil
	}

	now := time.Now()
	p.Confirm = true
	p.ConfirmedAt = &now
	return p, s.save(ctx, p)
}

func (s *Service) UndoAccept(ctx context.Context, actorID, projectID uuid.UUID) (*models.Project, error) {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.ClientID != actorID {
		return nil, apperr.Forbidden("only the project owner can undo the acceptance")
	}
	if p.Confirm {
		return nil, apperr.Forbidden("project is confirmed and cannot be undone")
	}

	p.SelectedFreelancer = nil
	p.AcceptedAt = nil
	p.IsAssigned = false
	p.Status = models.ProjectOpen
	return p, s.save(ctx, p)
}

// Withdraw releases the selected freelancer. The status is left as it was.
func (s *Service) Withdraw(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Project, error) {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsSelected(freelancerID) {
		return nil, apperr.Forbidden("only the selected freelancer can withdraw")
	}

	p.SelectedFreelancer = nil
	p.Confirm = false
	p.IsAssigned = false
	p.AcceptedAt = nil
	p.ConfirmedAt = nil
	return p, s.save(ctx, p)
}

func (s *Service) Delete(ctx context.Context, actorID, projectID uuid.UUID) error {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	if p.ClientID != actorID {
		return apperr.Forbidden("only the project owner can delete it")
	}
	if p.Confirm {
		return apperr.Forbidden("project is confirmed and cannot be deleted")
	}

	if err := s.projects.Delete(ctx, p.ID, p.Version); err != nil {
		return storeErr(err, "failed to delete project")
	}
	return nil
}

// MarkCompleted forces the project to Completed. It backs the chat-closed sync.
func (s *Service) MarkCompleted(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	p.Status = models.ProjectCompleted
	p.IsAssigned = false
	return p, s.save(ctx, p)
}

func (s *Service) load(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("project not found")
		}
		return nil, apperr.Persistence(err, "failed to load project")
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p *models.Project) error {
	if err := s.projects.Update(ctx, p); err != nil {
		return storeErr(err, "failed to save project")
	}
	return nil
}

func storeErr(err error, msg string) error {
	if errors.Is(err, repositories.ErrConflict) {
		return apperr.Conflict("project was modified by another request, reload and retry")
	}
	return apperr.Persistence(err, msg)
}

func normalizeSkills(in []string) []string {
	out := make([]string, 0, len(in))
	for _, sk := range in {
		sk = strings.TrimSpace(sk)
		if sk != "" && !slices.Contains(out, sk) {
			out = append(out, sk)
		}
	}
	return out
}
