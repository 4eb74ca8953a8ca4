// internal/models/chat.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatStatus string

const (
	ChatActive ChatStatus = "active"
	ChatClosed ChatStatus = "closed"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageFile  MessageType = "file"
	MessageImage MessageType = "image"
)

func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageFile || t == MessageImage
}

// Chat is the room opened for an assigned project. One per project.
type Chat struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"project_id"`

	ClientID     uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;index" json:"freelancer_id"`

	Status              ChatStatus `gorm:"type:varchar(10);not null" json:"status"`
	ClientCloseFlag     bool       `json:"client_close_flag"`
	FreelancerCloseFlag bool       `json:"freelancer_close_flag"`

	MessageCount  int64      `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at"`
	Version       int64      `gorm:"not null" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []ChatMessage `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ChatActive
	}
	c.Version = 1
	return
}

// ChatMessage is append-only; Seq gives the order inside a chat.
type ChatMessage struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID        uuid.UUID   `gorm:"type:uuid;uniqueIndex:idx_chat_seq;not null" json:"chat_id"`
	Seq           int64       `gorm:"uniqueIndex:idx_chat_seq;not null" json:"seq"`
	SenderID      uuid.UUID   `gorm:"type:uuid;index" json:"sender_id"`
	Text          string      `gorm:"type:text" json:"text"`
	Type          MessageType `gorm:"type:varchar(10);default:'text'" json:"type"`
	AttachmentURL string      `json:"attachment_url,omitempty"`
	CreatedAt     time.Time   `json:"timestamp"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
