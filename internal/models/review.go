package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_review_project_reviewer;not null" json:"project_id"`
	ReviewerID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_review_project_reviewer;not null" json:"reviewer_id"`
	RevieweeID uuid.UUID `gorm:"type:uuid;index;not null" json:"reviewee_id"`

	Rating  int    `gorm:"not null" json:"rating"` // 1-5
	Comment string `gorm:"type:text" json:"comment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
	DisputeRejected DisputeStatus = "rejected"
)

type Dispute struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID     `gorm:"type:uuid;index;not null" json:"project_id"`
	InitiatorID uuid.UUID     `gorm:"type:uuid;index;not null" json:"initiator_id"`
	Reason      string        `gorm:"type:text;not null" json:"reason"`
	Status      DisputeStatus `gorm:"type:varchar(20);not null" json:"status"`
	Resolution  string        `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedBy  *uuid.UUID    `gorm:"type:uuid" json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Dispute) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DisputeOpen
	}
	return
}

type Testimonial struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Name    string    `json:"name"`
	Content string    `gorm:"type:text;not null" json:"content"`
	Rating  int       `json:"rating"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *Testimonial) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
