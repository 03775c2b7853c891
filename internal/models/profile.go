package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is one registered user. Rows are created by the account flows only.
type Profile struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName  string    `gorm:"size:100" json:"display_name"`
	AvatarURL    string    `json:"avatar_url"`         // emoji or image URL
	PasswordHash string    `gorm:"not null" json:"-"`  // bcrypt
	GoogleID     string    `gorm:"index" json:"-"`     // set after Google sign-in
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Name falls back to the local part of the email when no display name is set.
func (p *Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	for i := 0; i < len(p.Email); i++ {
		if p.Email[i] == '@' {
			return p.Email[:i]
		}
	}
	return p.Email
}
