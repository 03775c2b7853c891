package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rnrnshn/alx-polly/internal/models"
	"github.com/rnrnshn/alx-polly/internal/testutil"

	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*PollService, *gorm.DB) {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	return NewPollService(conn, "test-salt"), conn
}

func optionTexts(p *models.Poll) []string {
	out := make([]string, len(p.Options))
	for i, o := range p.Options {
		out[i] = o.Text
	}
	return out
}

func TestCreatePoll(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")

	poll, err := svc.CreatePoll(ctx, owner, PollInput{
		Title:    "  Favourite language?  ",
		IsPublic: true,
		Options:  []string{" Go ", "", "Rust", "Zig"},
	})
	if err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}
	if poll.Title != "Favourite language?" {
		t.Errorf("title not trimmed: %q", poll.Title)
	}
	if poll.Status != models.PollStatusActive {
		t.Errorf("expected active status, got %s", poll.Status)
	}

	got, err := svc.GetPoll(ctx, nil, poll.ID)
	if err != nil {
		t.Fatalf("GetPoll failed: %v", err)
	}
	if strings.Join(optionTexts(got), ",") != "Go,Rust,Zig" {
		t.Errorf("unexpected options %v", optionTexts(got))
	}
	for i, o := range got.Options {
		if o.DisplayOrder != i+1 {
			t.Errorf("option %q has order %d, want %d", o.Text, o.DisplayOrder, i+1)
		}
	}
	if got.Owner.ID != owner.ID {
		t.Errorf("owner not preloaded")
	}
}

func TestCreatePoll_Errors(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	past := time.Now().Add(-time.Hour)

	many := make([]string, MaxOptions+1)
	for i := range many {
		many[i] = fmt.Sprintf("option %d", i)
	}

	tests := []struct {
		name   string
		caller *models.Profile
		in     PollInput
		want   error
	}{
		{"anonymous", nil, PollInput{Title: "t", Options: []string{"a", "b"}}, ErrUnauthenticated},
		{"unknown profile", &models.Profile{ID: "ghost"}, PollInput{Title: "t", Options: []string{"a", "b"}}, ErrProfileMissing},
		{"blank title", owner, PollInput{Title: "  ", Options: []string{"a", "b"}}, ErrValidation},
		{"long title", owner, PollInput{Title: strings.Repeat("x", MaxTitleLength+1), Options: []string{"a", "b"}}, ErrValidation},
		{"one option", owner, PollInput{Title: "t", Options: []string{"a", " "}}, ErrValidation},
		{"duplicate option", owner, PollInput{Title: "t", Options: []string{"a", "a "}}, ErrValidation},
		{"too many options", owner, PollInput{Title: "t", Options: many}, ErrValidation},
		{"past expiry", owner, PollInput{Title: "t", Options: []string{"a", "b"}, ExpiresAt: &past}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePoll(ctx, tt.caller, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	var n int64
	conn.Model(&models.Poll{}).Count(&n)
	if n != 0 {
		t.Errorf("failed creates left %d polls behind", n)
	}
}

func TestGetPoll_Visibility(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	other := testutil.CreateTestProfile(t, conn, "other@example.com")
	private := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Private: true}, "a", "b")

	if _, err := svc.GetPoll(ctx, nil, private.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("anonymous read of private poll: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetPoll(ctx, other, private.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("non-owner read of private poll: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetPoll(ctx, owner, private.ID); err != nil {
		t.Errorf("owner read failed: %v", err)
	}
	if _, err := svc.GetPoll(ctx, owner, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestUpdatePoll_ReconcilesOptions(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Multiple: true}, "A", "B", "C")
	a, b := poll.Options[0], poll.Options[1]

	if _, err := svc.SubmitVote(ctx, nil, poll.ID, VoteInput{OptionIDs: []string{a.ID, b.ID}}); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	if _, err := svc.SubmitVote(ctx, nil, poll.ID, VoteInput{OptionIDs: []string{b.ID}}); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}

	res, err := svc.UpdatePoll(ctx, owner, poll.ID, PollInput{
		Title:              "Renamed",
		IsPublic:           true,
		AllowMultipleVotes: true,
		Options:            []string{"C", "A", "D"},
	})
	if err != nil {
		t.Fatalf("UpdatePoll failed: %v", err)
	}

	if res.DiscardedVotes != 2 {
		t.Errorf("expected 2 discarded votes, got %d", res.DiscardedVotes)
	}
	if res.Poll.Title != "Renamed" {
		t.Errorf("title not updated: %q", res.Poll.Title)
	}
	if strings.Join(optionTexts(res.Poll), ",") != "C,A,D" {
		t.Errorf("unexpected options after edit: %v", optionTexts(res.Poll))
	}
	if res.Poll.Options[1].ID != a.ID {
		t.Errorf("unchanged option lost its identity")
	}
	if n := testutil.CountVotes(t, conn, poll.ID); n != 1 {
		t.Errorf("expected the vote on A to survive, have %d votes", n)
	}
}

func TestUpdatePoll_Errors(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	other := testutil.CreateTestProfile(t, conn, "other@example.com")
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{}, "A", "B")
	valid := PollInput{Title: "t", Options: []string{"A", "B"}}

	if _, err := svc.UpdatePoll(ctx, nil, poll.ID, valid); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.UpdatePoll(ctx, other, poll.ID, valid); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.UpdatePoll(ctx, owner, "missing", valid); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	bad := valid
	bad.Status = "archived"
	if _, err := svc.UpdatePoll(ctx, owner, poll.ID, bad); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown status, got %v", err)
	}

	closed := valid
	closed.Status = models.PollStatusInactive
	res, err := svc.UpdatePoll(ctx, owner, poll.ID, closed)
	if err != nil {
		t.Fatalf("UpdatePoll failed: %v", err)
	}
	if res.Poll.Status != models.PollStatusInactive {
		t.Errorf("expected inactive, got %s", res.Poll.Status)
	}
}

func TestUpdatePoll_KeepsPastExpiry(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	past := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Expires: &past}, "A", "B")

	_, err := svc.UpdatePoll(ctx, owner, poll.ID, PollInput{Title: "t", Options: []string{"A", "B"}, ExpiresAt: &past})
	if err != nil {
		t.Errorf("resubmitting the stored expiry should be allowed: %v", err)
	}

	earlier := past.Add(-time.Hour)
	_, err = svc.UpdatePoll(ctx, owner, poll.ID, PollInput{Title: "t", Options: []string{"A", "B"}, ExpiresAt: &earlier})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("moving expiry into the past: expected ErrValidation, got %v", err)
	}
}

func TestDeletePoll(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	other := testutil.CreateTestProfile(t, conn, "other@example.com")
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{}, "A", "B")

	if _, err := svc.SubmitVote(ctx, other, poll.ID, VoteInput{OptionIDs: []string{poll.Options[0].ID}}); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	if _, err := svc.CreateShare(ctx, owner, poll.ID, 0); err != nil {
		t.Fatalf("CreateShare failed: %v", err)
	}

	if err := svc.DeletePoll(ctx, other, poll.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if err := svc.DeletePoll(ctx, owner, poll.ID); err != nil {
		t.Fatalf("DeletePoll failed: %v", err)
	}
	if _, err := svc.GetPoll(ctx, owner, poll.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted poll still readable: %v", err)
	}

	var options, shares int64
	conn.Model(&models.PollOption{}).Where("poll_id = ?", poll.ID).Count(&options)
	conn.Model(&models.PollShare{}).Where("poll_id = ?", poll.ID).Count(&shares)
	if options != 0 || shares != 0 || testutil.CountVotes(t, conn, poll.ID) != 0 {
		t.Errorf("delete left rows behind: options=%d shares=%d", options, shares)
	}
}

func TestListPublic(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")

	for i := 0; i < PollsPerPage+2; i++ {
		testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{}, "A", "B")
	}
	testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Private: true}, "A", "B")

	first, err := svc.ListPublic(ctx, 1)
	if err != nil {
		t.Fatalf("ListPublic failed: %v", err)
	}
	if len(first.Polls) != PollsPerPage || first.TotalPages != 2 || first.Total != int64(PollsPerPage+2) {
		t.Errorf("unexpected first page: %d polls, %d pages, total %d", len(first.Polls), first.TotalPages, first.Total)
	}

	second, err := svc.ListPublic(ctx, 2)
	if err != nil {
		t.Fatalf("ListPublic failed: %v", err)
	}
	if len(second.Polls) != 2 {
		t.Errorf("expected 2 polls on page 2, got %d", len(second.Polls))
	}
	for _, p := range append(first.Polls, second.Polls...) {
		if !p.IsPublic {
			t.Errorf("private poll %s listed publicly", p.ID)
		}
	}
}

func TestListOwned(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	other := testutil.CreateTestProfile(t, conn, "other@example.com")

	mine := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{Private: true}, "A", "B")
	testutil.CreateTestPoll(t, conn, other, testutil.PollOpts{}, "A", "B")
	if _, err := svc.SubmitVote(ctx, owner, mine.ID, VoteInput{OptionIDs: []string{mine.Options[1].ID}}); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}

	if _, err := svc.ListOwned(ctx, nil); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	polls, err := svc.ListOwned(ctx, owner)
	if err != nil {
		t.Fatalf("ListOwned failed: %v", err)
	}
	if len(polls) != 1 || polls[0].ID != mine.ID {
		t.Fatalf("expected only the owner's poll, got %d", len(polls))
	}
	if polls[0].TotalVotes != 1 {
		t.Errorf("expected 1 vote counted, got %d", polls[0].TotalVotes)
	}
}

func TestUpdatePoll_ReplacingEveryOptionClearsVotes(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateTestProfile(t, conn, "owner@example.com")
	poll := testutil.CreateTestPoll(t, conn, owner, testutil.PollOpts{}, "A", "B")

	for _, o := range poll.Options {
		if _, err := svc.SubmitVote(ctx, nil, poll.ID, VoteInput{OptionIDs: []string{o.ID}}); err != nil {
			t.Fatalf("SubmitVote failed: %v", err)
		}
	}

	res, err := svc.UpdatePoll(ctx, owner, poll.ID, PollInput{Title: "t", IsPublic: true, Options: []string{"X", "Y"}})
	if err != nil {
		t.Fatalf("UpdatePoll failed: %v", err)
	}
	if res.DiscardedVotes != 2 {
		t.Errorf("expected 2 discarded votes, got %d", res.DiscardedVotes)
	}

	results, err := svc.Results(ctx, owner, poll.ID)
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if results.TotalVotes != 0 {
		t.Errorf("expected no votes after replacing every option, got %d", results.TotalVotes)
	}
	for _, r := range results.Results {
		if r.VoteCount != 0 {
			t.Errorf("option %q still has %d votes", r.OptionText, r.VoteCount)
		}
	}
}
