package services

import (
	"context"
	"time"

	"github.com/rnrnshn/alx-polly/internal/models"

	"github.com/sirupsen/logrus"
)

// ExpiryService closes polls whose expiry has passed and tells their owners.
// Votes are refused at the expiry instant regardless of when the sweep runs.
type ExpiryService struct {
	polls    *PollService
	mail     *MailService
	interval time.Duration
}

func NewExpiryService(polls *PollService, mail *MailService, interval time.Duration) *ExpiryService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpiryService{polls: polls, mail: mail, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *ExpiryService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ExpiryService) runOnce(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logrus.WithError(err).Error("expiry sweep failed")
		}
		return
	}
	if n > 0 {
		logrus.WithField("closed", n).Info("expired polls closed")
	}
}

// Sweep flips due active polls to expired and returns how many it closed.
// A poll closed concurrently by another sweeper is skipped.
func (s *ExpiryService) Sweep(ctx context.Context) (int, error) {
	now := s.polls.now()
	conn := s.polls.db.WithContext(ctx)

	var due []models.Poll
	err := conn.Preload("Owner").
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.PollStatusActive, now).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range due {
		poll := &due[i]
		res := conn.Model(&models.Poll{}).
			Where("id = ? AND status = ?", poll.ID, models.PollStatusActive).
			Updates(map[string]interface{}{"status": models.PollStatusExpired, "updated_at": now})
		if res.Error != nil {
			logrus.WithFields(logrus.Fields{"poll_id": poll.ID, "error": res.Error}).Warn("failed to expire poll")
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		closed++

		if s.mail == nil {
			continue
		}
		results, total, err := s.polls.tally(ctx, poll.ID)
		if err != nil {
			logrus.WithFields(logrus.Fields{"poll_id": poll.ID, "error": err}).Warn("failed to tally expired poll")
			continue
		}
		if err := s.mail.SendPollClosed(poll.Owner.Email, poll, total, results); err != nil {
			logrus.WithFields(logrus.Fields{"poll_id": poll.ID, "error": err}).Warn("failed to mail poll owner")
		}
	}

	if closed > 0 {
		s.polls.invalidateLists()
	}
	return closed, nil
}
