package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
)

const maxPhotoSize = 2 * 1024 * 1024

var v = validator.New()

type Service struct {
	profiles      *repositories.ProfileRepository
	users         *repositories.UserRepository
	uploadDir     string
	publicBaseURL string
}

func NewService(profiles *repositories.ProfileRepository, users *repositories.UserRepository, uploadDir, publicBaseURL string) *Service {
	return &Service{
		profiles:      profiles,
		users:         users,
		uploadDir:     uploadDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

type Input struct {
	Title       string                   `json:"title" validate:"max=120"`
	Bio         string                   `json:"bio" validate:"max=5000"`
	Location    string                   `json:"location" validate:"max=120"`
	Skills      []string                 `json:"skills" validate:"max=50,dive,required,max=50"`
	SocialLinks map[string]string        `json:"social_links" validate:"max=10,dive,url"`
	Experience  []models.ExperienceEntry `json:"experience" validate:"max=30,dive"`
	Education   []models.EducationEntry  `json:"education" validate:"max=30,dive"`
}

// PublicProfile is a user as shown to other users.
type PublicProfile struct {
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile"`
}

// Get returns the profile of userID. Users without a profile yet get an
// empty one.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*PublicProfile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Persistence(err, "failed to load user")
	}
	p, err := s.findOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &PublicProfile{User: u, Profile: p}, nil
}

func (s *Service) Upsert(ctx context.Context, userID uuid.UUID, in Input) (*models.Profile, error) {
	if err := v.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	p, err := s.findOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}

	p.Title = strings.TrimSpace(in.Title)
	p.Bio = strings.TrimSpace(in.Bio)
	p.Location = strings.TrimSpace(in.Location)
	p.Skills = datatypes.NewJSONSlice(trimAll(in.Skills))
	if in.SocialLinks == nil {
		in.SocialLinks = map[string]string{}
	}
	p.SocialLinks = datatypes.NewJSONType(in.SocialLinks)
	p.Experience = datatypes.NewJSONSlice(in.Experience)
	p.Education = datatypes.NewJSONSlice(in.Education)

	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, apperr.Persistence(err, "failed to save profile")
	}
	return p, nil
}

// SavePhoto stores an uploaded photo under the upload dir through save and
// points the profile at it.
func (s *Service) SavePhoto(ctx context.Context, userID uuid.UUID, filename string, size int64, save func(dst string) error) (*models.Profile, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".webp" {
		return nil, apperr.Validation("photo must be jpg, jpeg, png or webp")
	}
	if size > maxPhotoSize {
		return nil, apperr.Validation("photo max size is 2MB")
	}

	dir := filepath.Join(s.uploadDir, "profiles", userID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Persistence(errors.Wrap(err, "create upload dir"), "failed to store photo")
	}
	name := uuid.NewString() + ext
	if err := save(filepath.Join(dir, name)); err != nil {
		return nil, apperr.Persistence(errors.Wrap(err, "save upload"), "failed to store photo")
	}

	p, err := s.findOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.PhotoURL = fmt.Sprintf("%s/uploads/profiles/%s/%s", s.publicBaseURL, userID, name)
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, apperr.Persistence(err, "failed to save profile")
	}
	return p, nil
}

type TestimonialInput struct {
	Content string `json:"content" validate:"required,max=1000"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
}

func (s *Service) CreateTestimonial(ctx context.Context, userID uuid.UUID, in TestimonialInput) (*models.Testimonial, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := v.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Persistence(err, "failed to load user")
	}

	name := u.Name
	if name == "" {
		name = u.Username
	}
	t := &models.Testimonial{UserID: u.ID, Name: name, Content: in.Content, Rating: in.Rating}
	if err := s.profiles.CreateTestimonial(ctx, t); err != nil {
		return nil, apperr.Persistence(err, "failed to save testimonial")
	}
	return t, nil
}

func (s *Service) ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	out, err := s.profiles.ListTestimonials(ctx, limit)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list testimonials")
	}
	return out, nil
}

func (s *Service) findOrEmpty(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, repositories.ErrNotFound):
		return &models.Profile{
			UserID:      userID,
			Skills:      datatypes.JSONSlice[string]{},
			SocialLinks: datatypes.NewJSONType(map[string]string{}),
			Experience:  datatypes.JSONSlice[models.ExperienceEntry]{},
			Education:   datatypes.JSONSlice[models.EducationEntry]{},
		}, nil
	default:
		return nil, apperr.Persistence(err, "failed to load profile")
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
