package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

type ProjectFilter struct {
	Status   models.ProjectStatus
	Category string
}

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Update writes every column of p if nobody else wrote the row since p was
// read. On success p.Version is bumped; on ErrConflict p is left untouched.
func (r *ProjectRepository) Update(ctx context.Context, p *models.Project) error {
	current := p.Version
	p.Version = current + 1

	res := r.db.WithContext(ctx).
		Model(p).
		Where("version = ?", current).
		Select("*").
		Omit("ID", "CreatedAt", "Client").
		Updates(p)
	if res.Error != nil {
		p.Version = current
		return res.Error
	}
	if res.RowsAffected == 0 {
		p.Version = current
		return ErrConflict
	}
	return nil
}

// Delete removes the project read at version.
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID, version int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND version = ?", id, version).
		Delete(&models.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *ProjectRepository) List(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	q := r.db.WithContext(ctx).Model(&models.Project{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	var out []models.Project
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *ProjectRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *ProjectRepository) ListByClientAndStatus(ctx context.Context, clientID uuid.UUID, status models.ProjectStatus) ([]models.Project, error) {
	var out []models.Project
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND status = ?", clientID, status).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListByApplicant returns projects whose applicants list contains userID.
func (r *ProjectRepository) ListByApplicant(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	err := r.db.WithContext(ctx).
		Where(datatypes.JSONArrayQuery("applicants").Contains(userID.String())).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *ProjectRepository) ListAssignedTo(ctx context.Context, freelancerID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	err := r.db.WithContext(ctx).
		Where("selected_freelancer = ?", freelancerID).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}

// Categories lists the distinct categories of projects still open for applications.
func (r *ProjectRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("status = ? AND category <> ''", models.ProjectOpen).
		Distinct("category").
		Order("category").
		Pluck("category", &categories).
		Error
	return categories, err
}
