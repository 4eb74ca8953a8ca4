package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateOnce inserts c unless a chat already exists for c.ProjectID, in which
// case the existing chat is returned with created=false.
func (r *ChatRepository) CreateOnce(ctx context.Context, c *models.Chat) (*models.Chat, bool, error) {
	err := r.db.WithContext(ctx).Create(c).Error
	if err == nil {
		return c, true, nil
	}
	if !stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}
	existing, err := r.GetByProjectID(ctx, c.ProjectID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	var c models.Chat
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *ChatRepository) GetByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Chat, error) {
	var c models.Chat
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *ChatRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	var out []models.Chat
	err := r.db.WithContext(ctx).
		Where("client_id = ? OR freelancer_id = ?", userID, userID).
		Order("last_message_at DESC NULLS LAST").
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// UpdateState persists the freelancer, status and close flags guarded by the
// chat version.
func (r *ChatRepository) UpdateState(ctx context.Context, c *models.Chat) error {
	res := r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]interface{}{
			"freelancer_id":         c.FreelancerID,
			"status":                c.Status,
			"client_close_flag":     c.ClientCloseFlag,
			"freelancer_close_flag": c.FreelancerCloseFlag,
			"version":               gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	c.Version++
	return nil
}

// AppendMessage stores msg as the next message of c. The chat row is bumped
// with a version check in the same transaction, so two writers that read the
// same chat cannot both claim the same sequence number.
func (r *ChatRepository) AppendMessage(ctx context.Context, c *models.Chat, msg *models.ChatMessage) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Chat{}).
			Where("id = ? AND version = ?", c.ID, c.Version).
			Updates(map[string]interface{}{
				"message_count":   gorm.Expr("message_count + 1"),
				"last_message_at": now,
				"version":         gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		msg.ChatID = c.ID
		msg.Seq = c.MessageCount + 1
		msg.CreatedAt = now
		return tx.Create(msg).Error
	})
	if err != nil {
		return err
	}

	c.MessageCount++
	c.LastMessageAt = &now
	c.Version++
	return nil
}

func (r *ChatRepository) Messages(ctx context.Context, chatID uuid.UUID) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("seq ASC").
		Find(&out).Error
	return out, err
}
