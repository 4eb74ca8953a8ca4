package job

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
)

var v = validator.New()

// patchable maps the field names accepted by PatchField to their columns.
var patchable = map[string]string{
	"title":               "title",
	"company":             "company",
	"location":            "location",
	"type":                "type",
	"salary":              "salary",
	"description":         "description",
	"requirements":        "requirements",
	"benefits":            "benefits",
	"email":               "email",
	"experience":          "experience",
	"experienceLevel":     "experience_level",
	"remoteOption":        "remote_option",
	"applicationDeadline": "application_deadline",
}

type Service struct {
	jobs *repositories.JobRepository
}

func NewService(jobs *repositories.JobRepository) *Service {
	return &Service{jobs: jobs}
}

type CreateInput struct {
	Title               string     `json:"title" validate:"required,max=200"`
	Company             string     `json:"company" validate:"required,max=200"`
	Location            string     `json:"location"`
	Type                string     `json:"type" validate:"max=30"`
	Salary              string     `json:"salary"`
	Description         string     `json:"description" validate:"required"`
	Requirements        string     `json:"requirements"`
	Benefits            string     `json:"benefits"`
	ApplicationDeadline *time.Time `json:"applicationDeadline"`
	ExperienceLevel     string     `json:"experienceLevel"`
	RemoteOption        string     `json:"remoteOption"`
	Experience          string     `json:"experience"`
	Email               string     `json:"email" validate:"omitempty,email"`
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.Job, error) {
	if err := v.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	j := &models.Job{
		OwnerID:             ownerID,
		Email:               strings.TrimSpace(in.Email),
		Title:               strings.TrimSpace(in.Title),
		Company:             strings.TrimSpace(in.Company),
		Location:            in.Location,
		Type:                in.Type,
		Salary:              in.Salary,
		Description:         in.Description,
		Requirements:        in.Requirements,
		Benefits:            in.Benefits,
		ApplicationDeadline: in.ApplicationDeadline,
		ExperienceLevel:     in.ExperienceLevel,
		RemoteOption:        in.RemoteOption,
		Experience:          in.Experience,
	}
	if err := s.jobs.Create(ctx, j); err != nil {
		return nil, apperr.Persistence(err, "failed to create job")
	}
	return j, nil
}

func (s *Service) List(ctx context.Context) ([]models.Job, error) {
	out, err := s.jobs.List(ctx)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list jobs")
	}
	return out, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Job, error) {
	out, err := s.jobs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list jobs")
	}
	return out, nil
}

// PatchField sets one whitelisted field of a job owned by ownerID.
func (s *Service) PatchField(ctx context.Context, ownerID, jobID uuid.UUID, field, value string) (*models.Job, error) {
	column, ok := patchable[field]
	if !ok {
		return nil, apperr.Validation("field cannot be updated: " + field)
	}
	j, err := s.owned(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	var val interface{} = value
	switch column {
	case "title", "company", "description":
		if strings.TrimSpace(value) == "" {
			return nil, apperr.Validation(field + " cannot be empty")
		}
	case "email":
		if value != "" && v.Var(value, "email") != nil {
			return nil, apperr.Validation("invalid email")
		}
	case "application_deadline":
		deadline, err := parseDate(value)
		if err != nil {
			return nil, apperr.Validation("applicationDeadline must be a date (YYYY-MM-DD or RFC3339)")
		}
		val = deadline
	}

	if err := s.jobs.UpdateColumn(ctx, j.ID, column, val); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, apperr.Persistence(err, "failed to update job")
	}
	return s.load(ctx, j.ID)
}

func (s *Service) Delete(ctx context.Context, ownerID, jobID uuid.UUID) error {
	j, err := s.owned(ctx, ownerID, jobID)
	if err != nil {
		return err
	}
	if err := s.jobs.Delete(ctx, j.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("job not found")
		}
		return apperr.Persistence(err, "failed to delete job")
	}
	return nil
}

func (s *Service) owned(ctx context.Context, ownerID, jobID uuid.UUID) (*models.Job, error) {
	j, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.OwnerID != ownerID {
		return nil, apperr.Forbidden("only the job owner can change it")
	}
	return j, nil
}

func (s *Service) load(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, apperr.Persistence(err, "failed to load job")
	}
	return j, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
