package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Job is a job-board posting. It has no lifecycle.
type Job struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Email   string    `json:"email"`

	Title               string     `gorm:"not null" json:"title"`
	Company             string     `json:"company"`
	Location            string     `json:"location"`
	Type                string     `gorm:"type:varchar(30)" json:"type"`
	Salary              string     `json:"salary"`
	Description         string     `gorm:"type:text" json:"description"`
	Requirements        string     `gorm:"type:text" json:"requirements"`
	Benefits            string     `gorm:"type:text" json:"benefits"`
	ApplicationDeadline *time.Time `json:"application_deadline"`
	ExperienceLevel     string     `json:"experience_level"`
	RemoteOption        string     `json:"remote_option"`
	Experience          string     `json:"experience"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}
