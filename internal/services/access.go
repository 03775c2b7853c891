package services

import (
	"time"

	"github.com/rnrnshn/alx-polly/internal/models"
)

// Authorization rules live here and nowhere else; the datastore is treated as
// a plain store.

func callerID(caller *models.Profile) string {
	if caller == nil {
		return ""
	}
	return caller.ID
}

// CanView: public polls are readable by anyone, private ones only by their owner.
func CanView(poll *models.Poll, caller *models.Profile) bool {
	return poll.IsPublic || poll.OwnedBy(callerID(caller))
}

// CanEdit: owners may always mutate their own polls.
func CanEdit(poll *models.Poll, caller *models.Profile) bool {
	return poll.OwnedBy(callerID(caller))
}

// VoteBlocker returns the reason a visible poll cannot take votes at now, if any.
func VoteBlocker(poll *models.Poll, now time.Time) error {
	if poll.Status != models.PollStatusActive {
		return ErrPollInactive
	}
	if poll.ExpiredAt(now) {
		return ErrPollExpired
	}
	return nil
}
