package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PollShare is a short human-shareable code pointing at a poll.
type PollShare struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	PollID    string     `gorm:"size:36;not null;index" json:"poll_id"`
	Poll      Poll       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Code      string     `gorm:"size:16;uniqueIndex;not null" json:"code"`
	IsActive  bool       `gorm:"not null" json:"is_active"`
	OwnerID   string     `gorm:"size:36;not null;index" json:"owner_id"`
	Owner     Profile    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *PollShare) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Usable reports whether the share still resolves at now.
func (s *PollShare) Usable(now time.Time) bool {
	return s.IsActive && (s.ExpiresAt == nil || s.ExpiresAt.After(now))
}
