package services

import (
	"context"
	"fmt"
	"math"

	"github.com/rnrnshn/alx-polly/internal/db"
	"github.com/rnrnshn/alx-polly/internal/models"
)

// PollResults is the aggregated tally of a poll.
type PollResults struct {
	PollID     string                `json:"poll_id"`
	TotalVotes int64                 `json:"total_votes"`
	Results    []models.OptionResult `json:"results"`
}

// Percentage is count/total*100 rounded to two decimals, 0 when nothing was cast.
func Percentage(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}

// Results aggregates a visible poll's votes per option, options in display
// order. Results are computed on every call.
func (s *PollService) Results(ctx context.Context, caller *models.Profile, pollID string) (*PollResults, error) {
	poll, err := s.findPoll(ctx, pollID, false)
	if err != nil {
		return nil, err
	}
	if !CanView(poll, caller) {
		return nil, ErrNotFound
	}

	rows, total, err := s.tally(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	return &PollResults{PollID: poll.ID, TotalVotes: total, Results: rows}, nil
}

// tally runs the stored get_poll_results function on postgres and an
// equivalent grouped query elsewhere.
func (s *PollService) tally(ctx context.Context, pollID string) ([]models.OptionResult, int64, error) {
	conn := s.db.WithContext(ctx)
	rows := []models.OptionResult{}

	if db.IsPostgres(conn) {
		err := conn.Raw(
			"SELECT option_id, option_text, vote_count, percentage FROM get_poll_results(?)", pollID,
		).Scan(&rows).Error
		if err != nil {
			return nil, 0, fmt.Errorf("aggregate results: %w", err)
		}
		var total int64
		for _, r := range rows {
			total += r.VoteCount
		}
		return rows, total, nil
	}

	var total int64
	if err := conn.Model(&models.Vote{}).Where("poll_id = ?", pollID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count votes: %w", err)
	}

	err := conn.Table("poll_options AS o").
		Select("o.id AS option_id, o.text AS option_text, COUNT(v.id) AS vote_count").
		Joins("LEFT JOIN votes v ON v.option_id = o.id").
		Where("o.poll_id = ?", pollID).
		Group("o.id, o.text, o.display_order, o.created_at").
		Order("o.display_order ASC, o.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("aggregate results: %w", err)
	}
	for i := range rows {
		rows[i].Percentage = Percentage(rows[i].VoteCount, total)
	}
	return rows, total, nil
}
