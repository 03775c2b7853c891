package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rnrnshn/alx-polly/internal/models"
	"github.com/rnrnshn/alx-polly/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxTitleLength  = 200
	MaxOptionLength = 200
	MinOptions      = 2
	MaxOptions      = 20
	PollsPerPage    = 30

	// Cache keys for public list pages start with this prefix.
	PublicListCachePrefix = "polls:public:"
)

// PollService runs the poll lifecycle, vote submission, results and share
// flows against the datastore.
type PollService struct {
	db        *gorm.DB
	voterSalt string
	now       func() time.Time
}

func NewPollService(db *gorm.DB, voterSalt string) *PollService {
	return &PollService{
		db:        db,
		voterSalt: voterSalt,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Now is the service clock.
func (s *PollService) Now() time.Time {
	return s.now()
}

// PollInput is the create/update payload after transport decoding.
type PollInput struct {
	Title              string
	Description        string
	IsPublic           bool
	AllowMultipleVotes bool
	ExpiresAt          *time.Time
	Options            []string

	// Update only; empty keeps the current status.
	Status models.PollStatus
	// Update only; ignores IsPublic and keeps the stored visibility.
	KeepVisibility bool
}

// UpdateResult reports the edited poll and how many votes the edit discarded
// by removing options.
type UpdateResult struct {
	Poll           *models.Poll
	DiscardedVotes int64
}

// PollPage is one page of a poll listing.
type PollPage struct {
	Polls      []models.Poll
	Page       int
	TotalPages int
	Total      int64
}

func cleanOptions(raw []string) ([]string, error) {
	options := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, o := range raw {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if utf8.RuneCountInString(o) > MaxOptionLength {
			return nil, validationError("options must be at most %d characters", MaxOptionLength)
		}
		if seen[o] {
			return nil, validationError("duplicate option %q", o)
		}
		seen[o] = true
		options = append(options, o)
	}
	if len(options) < MinOptions {
		return nil, validationError("a poll needs at least %d options", MinOptions)
	}
	if len(options) > MaxOptions {
		return nil, validationError("a poll can have at most %d options", MaxOptions)
	}
	return options, nil
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationError("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", validationError("title must be at most %d characters", MaxTitleLength)
	}
	return title, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func buildOptions(pollID string, texts []string) []models.PollOption {
	opts := make([]models.PollOption, len(texts))
	for i, text := range texts {
		opts[i] = models.PollOption{PollID: pollID, Text: text, DisplayOrder: i + 1}
	}
	return opts
}

func orderedOptions(tx *gorm.DB) *gorm.DB {
	return tx.Order("display_order ASC, created_at ASC")
}

func (s *PollService) findPoll(ctx context.Context, id string, withOptions bool) (*models.Poll, error) {
	q := s.db.WithContext(ctx)
	if withOptions {
		q = q.Preload("Options", orderedOptions)
	}

	var poll models.Poll
	err := q.First(&poll, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load poll: %w", err)
	}
	return &poll, nil
}

func (s *PollService) invalidateLists() {
	utils.GetCache().DeletePrefix(PublicListCachePrefix)
}

// CreatePoll inserts the poll and its options. Options failing to insert roll
// the poll row back and surface as ErrOptionsWriteFailed.
func (s *PollService) CreatePoll(ctx context.Context, caller *models.Profile, in PollInput) (*models.Poll, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}

	conn := s.db.WithContext(ctx)
	var owner models.Profile
	if err := conn.First(&owner, "id = ?", caller.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileMissing
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	options, err := cleanOptions(in.Options)
	if err != nil {
		return nil, err
	}
	expiresAt := utcPtr(in.ExpiresAt)
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return nil, validationError("expires_at must be in the future")
	}

	poll := &models.Poll{
		Title:              title,
		Description:        strings.TrimSpace(in.Description),
		Status:             models.PollStatusActive,
		IsPublic:           in.IsPublic,
		AllowMultipleVotes: in.AllowMultipleVotes,
		ExpiresAt:          expiresAt,
		OwnerID:            owner.ID,
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(poll).Error; err != nil {
			return writeFailed(err)
		}
		opts := buildOptions(poll.ID, options)
		if err := tx.Create(&opts).Error; err != nil {
			logrus.WithFields(logrus.Fields{"poll_id": poll.ID, "error": err}).
				Warn("option insert failed, discarding poll")
			return fmt.Errorf("%w: %v", ErrOptionsWriteFailed, err)
		}
		poll.Options = opts
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLists()
	logrus.WithFields(logrus.Fields{
		"poll_id": poll.ID,
		"owner":   owner.ID,
		"options": len(options),
	}).Info("poll created")
	return poll, nil
}

// GetPoll returns a poll with its ordered options if the caller may see it.
// Private polls look absent to everyone but their owner.
func (s *PollService) GetPoll(ctx context.Context, caller *models.Profile, id string) (*models.Poll, error) {
	var poll models.Poll
	err := s.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Preload("Owner").
		First(&poll, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load poll: %w", err)
	}
	if !CanView(&poll, caller) {
		return nil, ErrNotFound
	}
	return &poll, nil
}

// UpdatePoll rewrites the scalar fields and reconciles the option list by
// text: unchanged options keep their identity and votes, dropped options are
// deleted together with their votes, new texts are inserted.
func (s *PollService) UpdatePoll(ctx context.Context, caller *models.Profile, id string, in PollInput) (*UpdateResult, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}

	poll, err := s.findPoll(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !CanEdit(poll, caller) {
		return nil, ErrNotOwner
	}

	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	options, err := cleanOptions(in.Options)
	if err != nil {
		return nil, err
	}
	expiresAt := utcPtr(in.ExpiresAt)
	if expiresAt != nil && !sameInstant(expiresAt, poll.ExpiresAt) && !expiresAt.After(s.now()) {
		return nil, validationError("expires_at must be in the future")
	}
	public := in.IsPublic
	if in.KeepVisibility {
		public = poll.IsPublic
	}
	status := poll.Status
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, validationError("unknown status %q", in.Status)
		}
		status = in.Status
	}

	now := s.now()
	var discarded int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Poll{}).Where("id = ?", poll.ID).Updates(map[string]interface{}{
			"title":                title,
			"description":          strings.TrimSpace(in.Description),
			"is_public":            public,
			"allow_multiple_votes": in.AllowMultipleVotes,
			"expires_at":           expiresAt,
			"status":               status,
			"updated_at":           now,
		}).Error
		if err != nil {
			return writeFailed(err)
		}

		var existing []models.PollOption
		if err := orderedOptions(tx.Where("poll_id = ?", poll.ID)).Find(&existing).Error; err != nil {
			return writeFailed(err)
		}
		byText := make(map[string]string, len(existing))
		for _, o := range existing {
			if _, dup := byText[o.Text]; !dup {
				byText[o.Text] = o.ID
			}
		}

		kept := make(map[string]bool, len(existing))
		var fresh []models.PollOption
		for i, text := range options {
			if optID, ok := byText[text]; ok {
				kept[optID] = true
				err := tx.Model(&models.PollOption{}).Where("id = ?", optID).
					Updates(map[string]interface{}{"display_order": i + 1, "updated_at": now}).Error
				if err != nil {
					return fmt.Errorf("%w: %v", ErrOptionsWriteFailed, err)
				}
				continue
			}
			fresh = append(fresh, models.PollOption{PollID: poll.ID, Text: text, DisplayOrder: i + 1})
		}

		var removed []string
		for _, o := range existing {
			if !kept[o.ID] {
				removed = append(removed, o.ID)
			}
		}
		if len(removed) > 0 {
			res := tx.Where("option_id IN ?", removed).Delete(&models.Vote{})
			if res.Error != nil {
				return fmt.Errorf("%w: %v", ErrOptionsWriteFailed, res.Error)
			}
			discarded = res.RowsAffected
			if err := tx.Where("id IN ?", removed).Delete(&models.PollOption{}).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrOptionsWriteFailed, err)
			}
		}
		if len(fresh) > 0 {
			if err := tx.Create(&fresh).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrOptionsWriteFailed, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.findPoll(ctx, poll.ID, true)
	if err != nil {
		return nil, err
	}

	s.invalidateLists()
	fields := logrus.Fields{"poll_id": poll.ID, "owner": caller.ID}
	if discarded > 0 {
		fields["discarded_votes"] = discarded
		logrus.WithFields(fields).Warn("poll edit removed options and their votes")
	} else {
		logrus.WithFields(fields).Info("poll updated")
	}
	return &UpdateResult{Poll: updated, DiscardedVotes: discarded}, nil
}

// DeletePoll removes the poll with its options, votes and shares.
func (s *PollService) DeletePoll(ctx context.Context, caller *models.Profile, id string) error {
	if caller == nil {
		return ErrUnauthenticated
	}

	poll, err := s.findPoll(ctx, id, false)
	if err != nil {
		return err
	}
	if !CanEdit(poll, caller) {
		return ErrNotOwner
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", poll.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", poll.ID).Delete(&models.PollShare{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", poll.ID).Delete(&models.PollOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Poll{}, "id = ?", poll.ID).Error
	})
	if err != nil {
		return writeFailed(err)
	}

	s.invalidateLists()
	logrus.WithFields(logrus.Fields{"poll_id": poll.ID, "owner": caller.ID}).Info("poll deleted")
	return nil
}

// ListPublic returns a page of public polls, newest first.
func (s *PollService) ListPublic(ctx context.Context, page int) (*PollPage, error) {
	if page < 1 {
		page = 1
	}
	conn := s.db.WithContext(ctx)

	var total int64
	if err := conn.Model(&models.Poll{}).Where("is_public = ?", true).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count polls: %w", err)
	}
	totalPages := int(math.Ceil(float64(total) / float64(PollsPerPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var polls []models.Poll
	err := conn.Preload("Owner").
		Where("is_public = ?", true).
		Order("created_at DESC").
		Limit(PollsPerPage).
		Offset((page - 1) * PollsPerPage).
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	if err := s.fillVoteCounts(ctx, polls); err != nil {
		return nil, err
	}

	return &PollPage{Polls: polls, Page: page, TotalPages: totalPages, Total: total}, nil
}

// ListOwned returns every poll the caller owns, newest first.
func (s *PollService) ListOwned(ctx context.Context, caller *models.Profile) ([]models.Poll, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}

	var polls []models.Poll
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", caller.ID).
		Order("created_at DESC").
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	if err := s.fillVoteCounts(ctx, polls); err != nil {
		return nil, err
	}
	return polls, nil
}

// RecentPublic returns up to limit public polls, most recently updated first.
func (s *PollService) RecentPublic(ctx context.Context, limit int) ([]models.Poll, error) {
	var polls []models.Poll
	err := s.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("updated_at DESC").
		Limit(limit).
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return polls, nil
}

// fillVoteCounts sets TotalVotes on each poll with one grouped query.
func (s *PollService) fillVoteCounts(ctx context.Context, polls []models.Poll) error {
	if len(polls) == 0 {
		return nil
	}

	ids := make([]string, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
	}

	type countRow struct {
		PollID string
		Count  int64
	}
	var rows []countRow
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Select("poll_id, COUNT(*) AS count").
		Where("poll_id IN ?", ids).
		Group("poll_id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("count votes: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.PollID] = r.Count
	}
	for i := range polls {
		polls[i].TotalVotes = counts[polls[i].ID]
	}
	return nil
}
