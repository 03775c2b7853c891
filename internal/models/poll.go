package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PollStatus string

const (
	PollStatusActive   PollStatus = "active"
	PollStatusInactive PollStatus = "inactive"
	PollStatusExpired  PollStatus = "expired"
)

func (s PollStatus) Valid() bool {
	switch s {
	case PollStatusActive, PollStatusInactive, PollStatusExpired:
		return true
	}
	return false
}

type Poll struct {
	ID                 string       `gorm:"primaryKey;size:36" json:"id"`
	Title              string       `gorm:"size:200;not null" json:"title"`
	Description        string       `gorm:"type:text" json:"description,omitempty"`
	Status             PollStatus   `gorm:"size:16;not null;index" json:"status"`
	IsPublic           bool         `gorm:"not null" json:"is_public"`
	AllowMultipleVotes bool         `gorm:"not null" json:"allow_multiple_votes"`
	ExpiresAt          *time.Time   `gorm:"index" json:"expires_at,omitempty"`
	OwnerID            string       `gorm:"size:36;not null;index" json:"owner_id"`
	Owner              Profile      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Options            []PollOption `gorm:"foreignKey:PollID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"options,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`

	// Filled by list queries, not stored.
	TotalVotes int64 `gorm:"-" json:"total_votes"`
}

func (p *Poll) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ExpiredAt reports whether the poll's expiry instant is at or before now.
func (p *Poll) ExpiredAt(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// OwnedBy reports whether profileID owns the poll. An empty id never owns anything.
func (p *Poll) OwnedBy(profileID string) bool {
	return profileID != "" && p.OwnerID == profileID
}

// PollOption is one selectable choice. DisplayOrder values need not be contiguous.
type PollOption struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	PollID       string    `gorm:"size:36;not null;index" json:"poll_id"`
	Text         string    `gorm:"size:200;not null" json:"text"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (o *PollOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
