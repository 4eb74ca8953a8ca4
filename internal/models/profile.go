// internal/models/profile.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExperienceEntry struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	From        string `json:"from"`
	To          string `json:"to,omitempty"`
	Description string `json:"description,omitempty"`
}

type EducationEntry struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Field  string `json:"field,omitempty"`
	From   string `json:"from"`
	To     string `json:"to,omitempty"`
}

// Profile holds free-form professional metadata, one per user.
type Profile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Title    string `gorm:"type:varchar(120)" json:"title"`
	Bio      string `gorm:"type:text" json:"bio"`
	Location string `gorm:"type:varchar(120)" json:"location"`
	PhotoURL string `gorm:"type:text" json:"photo_url"`

	Skills      datatypes.JSONSlice[string]           `json:"skills"`
	SocialLinks datatypes.JSONType[map[string]string] `json:"social_links"`
	Experience  datatypes.JSONSlice[ExperienceEntry]  `json:"experience"`
	Education   datatypes.JSONSlice[EducationEntry]   `json:"education"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
