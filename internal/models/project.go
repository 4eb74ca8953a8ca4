package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "Open"
	ProjectPending    ProjectStatus = "Pending"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectCompleted  ProjectStatus = "Completed"
	ProjectCancelled  ProjectStatus = "Cancelled"
	ProjectDispute    ProjectStatus = "Dispute"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectOpen, ProjectPending, ProjectInProgress, ProjectCompleted, ProjectCancelled, ProjectDispute:
		return true
	}
	return false
}

type Project struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	Title          string                      `gorm:"not null" json:"title"`
	Description    string                      `gorm:"type:text" json:"description"`
	Budget         int64                       `json:"budget"`
	SkillsRequired datatypes.JSONSlice[string] `json:"skills_required"`
	Deadline       *time.Time                  `json:"deadline"`
	Category       string                      `gorm:"index" json:"category"`

	Status ProjectStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	// Applicants keeps application order.
	Applicants         datatypes.JSONSlice[uuid.UUID] `json:"applicants"`
	SelectedFreelancer *uuid.UUID                     `gorm:"type:uuid;index" json:"selected_freelancer"`
	IsAssigned         bool                           `json:"is_assigned"`
	Confirm            bool                           `json:"confirm"`
	AcceptedAt         *time.Time                     `json:"accepted_at"`
	ConfirmedAt        *time.Time                     `json:"confirmed_at"`

	Version int64 `gorm:"not null" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProjectOpen
	}
	if p.Applicants == nil {
		p.Applicants = datatypes.JSONSlice[uuid.UUID]{}
	}
	if p.SkillsRequired == nil {
		p.SkillsRequired = datatypes.JSONSlice[string]{}
	}
	p.Version = 1
	return
}

func (p *Project) HasApplicant(userID uuid.UUID) bool {
	return slices.Contains(p.Applicants, userID)
}

func (p *Project) IsSelected(userID uuid.UUID) bool {
	return p.SelectedFreelancer != nil && *p.SelectedFreelancer == userID
}

// IsParticipant reports whether userID is the owner or the selected freelancer.
func (p *Project) IsParticipant(userID uuid.UUID) bool {
	return p.ClientID == userID || p.IsSelected(userID)
}
