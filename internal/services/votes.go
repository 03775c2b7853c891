package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/rnrnshn/alx-polly/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxVoterNameLength = 100

// VoteInput is a ballot as submitted by a client.
type VoteInput struct {
	OptionIDs  []string
	VoterName  string
	VoterEmail string
	ClientIP   string
}

// SubmitVote records one vote row per chosen option. Checks run in a fixed
// order and the first failure wins: visibility, status, expiry, option
// membership, single-choice arity, voter contact, then the prior-ballot
// lookup. The ballot index catches the race the lookup cannot, and the
// identity index rejects a voter picking the same option twice.
func (s *PollService) SubmitVote(ctx context.Context, caller *models.Profile, pollID string, in VoteInput) ([]models.Vote, error) {
	poll, err := s.findPoll(ctx, pollID, false)
	if err != nil {
		return nil, err
	}
	if !CanView(poll, caller) {
		return nil, ErrNotFound
	}
	if err := VoteBlocker(poll, s.now()); err != nil {
		return nil, err
	}

	requested := uniqueIDs(in.OptionIDs)
	if len(requested) == 0 {
		return nil, ErrInvalidOptions
	}

	conn := s.db.WithContext(ctx)
	var valid []string
	err = conn.Model(&models.PollOption{}).
		Where("poll_id = ? AND id IN ?", poll.ID, requested).
		Pluck("id", &valid).Error
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	if len(valid) != len(requested) {
		return nil, ErrInvalidOptions
	}
	if !poll.AllowMultipleVotes && len(requested) > 1 {
		return nil, fmt.Errorf("%w: this poll accepts a single choice", ErrInvalidOptions)
	}
	name, email, err := cleanVoterContact(in.VoterName, in.VoterEmail)
	if err != nil {
		return nil, err
	}

	var voterID, ballotKey *string
	if caller != nil {
		id := caller.ID
		voterID = &id
		if !poll.AllowMultipleVotes {
			var prior int64
			err := conn.Model(&models.Vote{}).
				Where("poll_id = ? AND voter_id = ?", poll.ID, id).
				Count(&prior).Error
			if err != nil {
				return nil, fmt.Errorf("check prior votes: %w", err)
			}
			if prior > 0 {
				return nil, ErrAlreadyVoted
			}
			ballotKey = &id
		}
	}

	ipHash := s.hashIP(in.ClientIP)
	votes := make([]models.Vote, len(requested))
	for i, optionID := range requested {
		votes[i] = models.Vote{
			PollID:     poll.ID,
			OptionID:   optionID,
			VoterID:    voterID,
			VoterName:  name,
			VoterEmail: email,
			BallotKey:  ballotKey,
			IPHash:     ipHash,
		}
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&votes).Error
	})
	if err != nil {
		// Only signed-in rows carry a voter id, so only they can collide on
		// idx_vote_ballot or idx_vote_identity.
		if errors.Is(err, gorm.ErrDuplicatedKey) && voterID != nil {
			return nil, ErrAlreadyVoted
		}
		return nil, writeFailed(err)
	}
	if poll.IsPublic {
		// cached list pages carry vote totals
		s.invalidateLists()
	}

	logrus.WithFields(logrus.Fields{
		"poll_id":       poll.ID,
		"options":       len(votes),
		"authenticated": voterID != nil,
	}).Info("vote recorded")
	return votes, nil
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func cleanVoterContact(name, email string) (*string, *string, error) {
	var namePtr, emailPtr *string

	name = strings.TrimSpace(name)
	if name != "" {
		if utf8.RuneCountInString(name) > maxVoterNameLength {
			return nil, nil, validationError("voter name must be at most %d characters", maxVoterNameLength)
		}
		namePtr = &name
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, nil, validationError("voter email is not a valid address")
		}
		emailPtr = &email
	}
	return namePtr, emailPtr, nil
}

// hashIP keys the client address with the server salt so raw addresses are
// never stored.
func (s *PollService) hashIP(ip string) string {
	if ip == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(s.voterSalt))
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}
