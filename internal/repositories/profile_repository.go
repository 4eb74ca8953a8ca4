package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
)

// ProfileRepository also stores reviews, disputes and testimonials; they are
// small satellite records around users and projects.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProfileRepository) Save(ctx context.Context, p *models.Profile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProfileRepository) CreateReview(ctx context.Context, rv *models.Review) error {
	return r.db.WithContext(ctx).Create(rv).Error
}

func (r *ProfileRepository) ListReviewsFor(ctx context.Context, revieweeID uuid.UUID) ([]models.Review, error) {
	var out []models.Review
	err := r.db.WithContext(ctx).
		Preload("Reviewer").
		Where("reviewee_id = ?", revieweeID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *ProfileRepository) CreateDispute(ctx context.Context, d *models.Dispute) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *ProfileRepository) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *ProfileRepository) SaveDispute(ctx context.Context, d *models.Dispute) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *ProfileRepository) CreateTestimonial(ctx context.Context, t *models.Testimonial) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *ProfileRepository) ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error) {
	var out []models.Testimonial
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
