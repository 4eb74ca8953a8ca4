package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
)

// maxAppendAttempts bounds the retries when another writer bumped the chat
// between our read and our append.
const maxAppendAttempts = 5

// Publisher delivers a stored message to the sockets watching the chat.
type Publisher interface {
	PublishMessage(ctx context.Context, chatID uuid.UUID, msg *models.ChatMessage) error
}

// ProjectCompleter moves a project to Completed.
type ProjectCompleter interface {
	MarkCompleted(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
}

type Service struct {
	chats     *repositories.ChatRepository
	projects  *repositories.ProjectRepository
	completer ProjectCompleter
	publisher Publisher
}

func NewService(chats *repositories.ChatRepository, projects *repositories.ProjectRepository, completer ProjectCompleter, publisher Publisher) *Service {
	return &Service{chats: chats, projects: projects, completer: completer, publisher: publisher}
}

type MessageInput struct {
	Text          string             `json:"text"`
	Type          models.MessageType `json:"type"`
	AttachmentURL string             `json:"attachmentUrl"`
}

// CreateRoom returns the chat of the project, creating it on first call.
// created reports whether this call inserted it. A project reassigned since
// the chat was opened gets its chat handed to the new freelancer.
func (s *Service) CreateRoom(ctx context.Context, actorID, projectID uuid.UUID) (c *models.Chat, created bool, err error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, false, err
	}
	if p.SelectedFreelancer == nil {
		return nil, false, apperr.Validation("project has no selected freelancer")
	}
	if !p.IsParticipant(actorID) {
		return nil, false, apperr.Forbidden("only project participants can open its chat")
	}

	existing, err := s.chats.GetByProjectID(ctx, projectID)
	switch {
	case err == nil:
		if existing.FreelancerID != *p.SelectedFreelancer {
			if err := s.rebind(ctx, existing, *p.SelectedFreelancer); err != nil {
				return nil, false, err
			}
		}
		return existing, false, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, false, apperr.Persistence(err, "failed to load chat")
	}

	c, created, err = s.chats.CreateOnce(ctx, &models.Chat{
		ProjectID:    p.ID,
		ClientID:     p.ClientID,
		FreelancerID: *p.SelectedFreelancer,
	})
	if err != nil {
		return nil, false, apperr.Persistence(err, "failed to create chat")
	}
	if created {
		slog.Info("chat room created", "chatId", c.ID, "projectId", p.ID)
	}
	return c, created, nil
}

// rebind moves the chat to freelancerID and reopens it.
func (s *Service) rebind(ctx context.Context, c *models.Chat, freelancerID uuid.UUID) error {
	prev := c.FreelancerID
	c.FreelancerID = freelancerID
	c.Status = models.ChatActive
	c.ClientCloseFlag = false
	c.FreelancerCloseFlag = false

	if err := s.chats.UpdateState(ctx, c); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return apperr.Conflict("chat was modified by another request, reload and retry")
		}
		return apperr.Persistence(err, "failed to reassign chat")
	}
	slog.Info("chat room reassigned", "chatId", c.ID, "from", prev, "to", freelancerID)
	return nil
}

// SendMessage is the only write path for chat messages. HTTP and the
// websocket relay both go through it.
func (s *Service) SendMessage(ctx context.Context, chatID, senderID uuid.UUID, in MessageInput) (*models.ChatMessage, error) {
	text := strings.TrimSpace(in.Text)
	if in.Type == "" {
		in.Type = models.MessageText
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation("invalid message type")
	}
	if text == "" {
		return nil, apperr.Validation("message text is required")
	}
	if in.Type != models.MessageText && strings.TrimSpace(in.AttachmentURL) == "" {
		return nil, apperr.Validation("attachmentUrl is required for file and image messages")
	}

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		c, err := s.load(ctx, chatID)
		if err != nil {
			return nil, err
		}
		if err := s.authorize(ctx, c, senderID); err != nil {
			return nil, err
		}
		if c.Status == models.ChatClosed {
			return nil, apperr.Validation("chat is closed")
		}

		msg := &models.ChatMessage{
			SenderID:      senderID,
			Text:          text,
			Type:          in.Type,
			AttachmentURL: strings.TrimSpace(in.AttachmentURL),
		}
		err = s.chats.AppendMessage(ctx, c, msg)
		if errors.Is(err, repositories.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, apperr.Persistence(err, "failed to store message")
		}

		if s.publisher != nil {
			if err := s.publisher.PublishMessage(ctx, c.ID, msg); err != nil {
				slog.Warn("could not publish chat message", "chatId", c.ID, "err", err)
			}
		}
		return msg, nil
	}
	return nil, apperr.Conflict("chat is busy, please retry")
}

func (s *Service) GetInfo(ctx context.Context, chatID, viewerID uuid.UUID) (*models.Chat, error) {
	c, err := s.load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, c, viewerID); err != nil {
		return nil, err
	}
	return c, nil
}

// authorize admits the chat's client, and its freelancer only while the
// project still has them selected.
func (s *Service) authorize(ctx context.Context, c *models.Chat, userID uuid.UUID) error {
	if userID == c.ClientID {
		return nil
	}
	if userID == c.FreelancerID {
		p, err := s.project(ctx, c.ProjectID)
		if err != nil {
			return err
		}
		if p.IsSelected(userID) {
			return nil
		}
	}
	return apperr.Forbidden("you are not a participant of this chat")
}

func (s *Service) GetMessages(ctx context.Context, chatID, viewerID uuid.UUID) ([]models.ChatMessage, error) {
	if _, err := s.GetInfo(ctx, chatID, viewerID); err != nil {
		return nil, err
	}
	msgs, err := s.chats.Messages(ctx, chatID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to load messages")
	}
	return msgs, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	out, err := s.chats.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list chats")
	}
	return out, nil
}

// Close records that userID is done with the chat. The chat closes once both
// sides have done so.
func (s *Service) Close(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error) {
	c, err := s.GetInfo(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if userID == c.ClientID {
		c.ClientCloseFlag = true
	} else {
		c.FreelancerCloseFlag = true
	}
	if c.ClientCloseFlag && c.FreelancerCloseFlag {
		c.Status = models.ChatClosed
	}

	if err := s.chats.UpdateState(ctx, c); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, apperr.Conflict("chat was modified by another request, reload and retry")
		}
		return nil, apperr.Persistence(err, "failed to close chat")
	}
	return c, nil
}

// ProjectStatusSync completes the project of a closed chat.
func (s *Service) ProjectStatusSync(ctx context.Context, chatID, actorID uuid.UUID) (*models.Project, error) {
	c, err := s.GetInfo(ctx, chatID, actorID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ChatClosed {
		return nil, apperr.Validation("chat is not closed")
	}
	return s.completer.MarkCompleted(ctx, c.ProjectID)
}

func (s *Service) load(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	c, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("chat not found")
		}
		return nil, apperr.Persistence(err, "failed to load chat")
	}
	return c, nil
}

func (s *Service) project(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("project not found")
		}
		return nil, apperr.Persistence(err, "failed to load project")
	}
	return p, nil
}
