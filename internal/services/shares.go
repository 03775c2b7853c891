package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rnrnshn/alx-polly/internal/models"
	"github.com/rnrnshn/alx-polly/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	shareCodeLength   = 8
	shareCodeAttempts = 5
)

// CreateShare mints a short code for a poll the caller owns. ttl <= 0 means
// the code never expires.
func (s *PollService) CreateShare(ctx context.Context, caller *models.Profile, pollID string, ttl time.Duration) (*models.PollShare, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	poll, err := s.findPoll(ctx, pollID, false)
	if err != nil {
		return nil, err
	}
	if !CanEdit(poll, caller) {
		return nil, ErrNotOwner
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := s.now().Add(ttl)
		expiresAt = &t
	}

	conn := s.db.WithContext(ctx)
	for attempt := 0; attempt < shareCodeAttempts; attempt++ {
		share := &models.PollShare{
			PollID:    poll.ID,
			Code:      utils.RandomCode(shareCodeLength),
			IsActive:  true,
			OwnerID:   caller.ID,
			ExpiresAt: expiresAt,
		}
		err := conn.Omit(clause.Associations).Create(share).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return nil, writeFailed(err)
		}
		logrus.WithFields(logrus.Fields{"poll_id": poll.ID, "code": share.Code}).Info("share created")
		return share, nil
	}
	return nil, writeFailed(fmt.Errorf("no free share code after %d attempts", shareCodeAttempts))
}

// ResolveShare maps a code to its poll id. Inactive and expired codes resolve
// like unknown ones.
func (s *PollService) ResolveShare(ctx context.Context, code string) (*models.PollShare, error) {
	var share models.PollShare
	err := s.db.WithContext(ctx).First(&share, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load share: %w", err)
	}
	if !share.Usable(s.now()) {
		return nil, ErrShareNotFound
	}
	return &share, nil
}

// DeactivateShare turns a code off. Only the share's owner may do this.
func (s *PollService) DeactivateShare(ctx context.Context, caller *models.Profile, code string) error {
	if caller == nil {
		return ErrUnauthenticated
	}

	conn := s.db.WithContext(ctx)
	var share models.PollShare
	err := conn.First(&share, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrShareNotFound
	}
	if err != nil {
		return fmt.Errorf("load share: %w", err)
	}
	if share.OwnerID != caller.ID {
		return ErrNotOwner
	}

	if err := conn.Model(&models.PollShare{}).Where("id = ?", share.ID).Update("is_active", false).Error; err != nil {
		return writeFailed(err)
	}
	return nil
}

// ListShares returns every code minted for a poll, newest first.
func (s *PollService) ListShares(ctx context.Context, caller *models.Profile, pollID string) ([]models.PollShare, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	poll, err := s.findPoll(ctx, pollID, false)
	if err != nil {
		return nil, err
	}
	if !CanEdit(poll, caller) {
		return nil, ErrNotOwner
	}

	shares := []models.PollShare{}
	err = s.db.WithContext(ctx).
		Where("poll_id = ?", poll.ID).
		Order("created_at DESC").
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}
