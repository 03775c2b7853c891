package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rnrnshn/alx-polly/internal/models"
	"github.com/rnrnshn/alx-polly/internal/testutil"
	"github.com/rnrnshn/alx-polly/internal/utils"
)

func TestSubmitVote_Anonymous(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{}, "A", "B")

	votes, err := svc.SubmitVote(ctx, nil, poll.ID, VoteInput{
		OptionIDs:  []string{poll.Options[0].ID},
		VoterName:  " Ana ",
		VoterEmail: "Ana@Example.com",
		ClientIP:   "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	if len(votes) != 1 {
		t.Fatalf("expected 1 vote, got %d", len(votes))
	}
	v := votes[0]
	if v.VoterID != nil || v.BallotKey != nil {
		t.Errorf("anonymous vote carries an identity")
	}
	if v.VoterName == nil || *v.VoterName != "Ana" {
		t.Errorf("voter name not stored trimmed")
	}
	if v.VoterEmail == nil || *v.VoterEmail != "ana@example.com" {
		t.Errorf("voter email not normalised")
	}
	if len(v.IPHash) != 32 || v.IPHash == "203.0.113.7" {
		t.Errorf("unexpected ip hash %q", v.IPHash)
	}

	// anonymous ballots are not de-duplicated
	if _, err := svc.SubmitVote(ctx, nil, poll.ID, VoteInput{OptionIDs: []string{poll.Options[0].ID}, ClientIP: "203.0.113.7"}); err != nil {
		t.Errorf("second anonymous vote rejected: %v", err)
	}
	if n := testutil.CountVotes(t, conn, poll.ID); n != 2 {
		t.Errorf("expected 2 votes, got %d", n)
	}
}

func TestSubmitVote_Rejections(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	voter := testutil.CreateTestProfile(t, conn, "voter@example.com")
	past := time.Now().Add(-time.Minute)

	open := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{}, "A", "B")
	other := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{}, "X", "Y")
	private := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Private: true}, "A", "B")
	inactive := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Status: models.PollStatusInactive}, "A", "B")
	expiredStatus := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Status: models.PollStatusExpired}, "A", "B")
	pastDue := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Expires: &past}, "A", "B")

	tests := []struct {
		name    string
		caller  *models.Profile
		pollID  string
		options []string
		email   string
		want    error
	}{
		{"unknown poll", voter, "missing", []string{"x"}, "", ErrNotFound},
		{"private poll", voter, private.ID, []string{private.Options[0].ID}, "", ErrNotFound},
		{"inactive poll", voter, inactive.ID, []string{inactive.Options[0].ID}, "", ErrPollInactive},
		{"expired status", voter, expiredStatus.ID, []string{expiredStatus.Options[0].ID}, "", ErrPollInactive},
		{"past expiry", voter, pastDue.ID, []string{pastDue.Options[0].ID}, "", ErrPollExpired},
		{"no options", voter, open.ID, nil, "", ErrInvalidOptions},
		{"foreign option", voter, open.ID, []string{other.Options[0].ID}, "", ErrInvalidOptions},
		{"two on single choice", voter, open.ID, []string{open.Options[0].ID, open.Options[1].ID}, "", ErrInvalidOptions},
		{"status beats bad options", voter, inactive.ID, []string{"nope"}, "", ErrPollInactive},
		{"bad email", nil, open.ID, []string{open.Options[0].ID}, "not-an-email", ErrValidation},
		{"unknown poll beats bad email", nil, "missing", []string{"x"}, "not-an-email", ErrNotFound},
		{"inactive beats bad email", nil, inactive.ID, []string{inactive.Options[0].ID}, "not-an-email", ErrPollInactive},
		{"past expiry beats bad email", nil, pastDue.ID, []string{pastDue.Options[0].ID}, "not-an-email", ErrPollExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitVote(ctx, tt.caller, tt.pollID, VoteInput{OptionIDs: tt.options, VoterEmail: tt.email})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	var n int64
	conn.Model(&models.Vote{}).Count(&n)
	if n != 0 {
		t.Errorf("rejected votes were stored: %d", n)
	}
}

func TestSubmitVote_SingleChoiceOncePerVoter(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	voter := testutil.CreateTestProfile(t, conn, "voter@example.com")
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{}, "A", "B")
	a, b := poll.Options[0], poll.Options[1]

	votes, err := svc.SubmitVote(ctx, voter, poll.ID, VoteInput{OptionIDs: []string{a.ID, a.ID}})
	if err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	if len(votes) != 1 || votes[0].VoterID == nil || *votes[0].VoterID != voter.ID {
		t.Fatalf("expected one vote bound to the voter")
	}

	if _, err := svc.SubmitVote(ctx, voter, poll.ID, VoteInput{OptionIDs: []string{b.ID}}); !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("expected ErrAlreadyVoted, got %v", err)
	}
	if n := testutil.CountVotes(t, conn, poll.ID); n != 1 {
		t.Errorf("expected 1 vote, got %d", n)
	}
}

func TestSubmitVote_BallotIndexCatchesRace(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	voter := testutil.CreateTestProfile(t, conn, "voter@example.com")
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{}, "A", "B")

	// A ballot that landed between the prior-vote lookup and the insert.
	key := voter.ID
	racing := models.Vote{PollID: poll.ID, OptionID: poll.Options[0].ID, BallotKey: &key}
	if err := conn.Omit("Poll", "Option", "Voter").Create(&racing).Error; err != nil {
		t.Fatalf("seed vote failed: %v", err)
	}

	_, err := svc.SubmitVote(ctx, voter, poll.ID, VoteInput{OptionIDs: []string{poll.Options[1].ID}})
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("expected ErrAlreadyVoted from the ballot index, got %v", err)
	}
	if n := testutil.CountVotes(t, conn, poll.ID); n != 1 {
		t.Errorf("expected 1 vote, got %d", n)
	}
}

func TestSubmitVote_MultipleChoice(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	voter := testutil.CreateTestProfile(t, conn, "voter@example.com")
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Multiple: true}, "A", "B", "C")
	a, b, c := poll.Options[0], poll.Options[1], poll.Options[2]

	votes, err := svc.SubmitVote(ctx, voter, poll.ID, VoteInput{OptionIDs: []string{a.ID, b.ID}})
	if err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	if len(votes) != 2 {
		t.Errorf("expected 2 vote rows, got %d", len(votes))
	}

	if _, err := svc.SubmitVote(ctx, voter, poll.ID, VoteInput{OptionIDs: []string{a.ID}}); !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("same option twice: expected ErrAlreadyVoted, got %v", err)
	}
	if _, err := svc.SubmitVote(ctx, voter, poll.ID, VoteInput{OptionIDs: []string{c.ID}}); err != nil {
		t.Errorf("new option on multi-choice poll rejected: %v", err)
	}
	if n := testutil.CountVotes(t, conn, poll.ID); n != 3 {
		t.Errorf("expected 3 votes, got %d", n)
	}
}

func TestSubmitVote_OwnerVotesOnPrivatePoll(t *testing.T) {
	svc, conn := newTestService(t)
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Private: true}, "A", "B")

	if _, err := svc.SubmitVote(context.Background(), owner, poll.ID, VoteInput{OptionIDs: []string{poll.Options[0].ID}}); err != nil {
		t.Errorf("owner vote on private poll rejected: %v", err)
	}
}

func TestSubmitVote_ClearsCachedListPages(t *testing.T) {
	svc, conn := newTestService(t)
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{}, "A", "B")

	key := PublicListCachePrefix + "page:1"
	cache := utils.GetCache()
	cache.Set(key, &PollPage{Page: 1}, time.Minute)

	if _, err := svc.SubmitVote(context.Background(), nil, poll.ID, VoteInput{OptionIDs: []string{poll.Options[0].ID}}); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	if cache.Get(key) != nil {
		t.Error("list page still cached after a vote changed its totals")
	}
}

func TestHashIP(t *testing.T) {
	a := NewPollService(nil, "salt-a")
	b := NewPollService(nil, "salt-b")

	if a.hashIP("") != "" {
		t.Error("empty address should hash to empty")
	}
	if a.hashIP("10.0.0.1") != a.hashIP("10.0.0.1") {
		t.Error("hash is not stable")
	}
	if a.hashIP("10.0.0.1") == b.hashIP("10.0.0.1") {
		t.Error("hash ignores the salt")
	}
}
