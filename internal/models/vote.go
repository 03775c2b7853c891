package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote is one recorded choice of one option. Rows are never updated.
//
// idx_vote_identity blocks the same identity picking the same option twice.
// idx_vote_ballot holds the voter id for authenticated votes on single-vote
// polls and NULL otherwise, so the datastore rejects a second ballot even when
// two submissions race past the application check.
type Vote struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	PollID     string     `gorm:"size:36;not null;index;uniqueIndex:idx_vote_identity,priority:1;uniqueIndex:idx_vote_ballot,priority:1" json:"poll_id"`
	Poll       Poll       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	OptionID   string     `gorm:"size:36;not null;index;uniqueIndex:idx_vote_identity,priority:2" json:"option_id"`
	Option     PollOption `gorm:"foreignKey:OptionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	VoterID    *string    `gorm:"size:36;index;uniqueIndex:idx_vote_identity,priority:3" json:"voter_id"`
	Voter      *Profile   `gorm:"foreignKey:VoterID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	VoterName  *string    `gorm:"size:100" json:"voter_name"`
	VoterEmail *string    `gorm:"size:255" json:"voter_email"`
	BallotKey  *string    `gorm:"size:36;uniqueIndex:idx_vote_ballot,priority:2" json:"-"`
	IPHash     string     `gorm:"size:32" json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// OptionResult is one row of a poll's aggregated results.
type OptionResult struct {
	OptionID   string  `json:"option_id"`
	OptionText string  `json:"option_text"`
	VoteCount  int64   `json:"vote_count"`
	Percentage float64 `json:"percentage"`
}
