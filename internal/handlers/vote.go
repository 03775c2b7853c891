package handlers

import (
	"net/http"

	"github.com/rnrnshn/alx-polly/internal/middleware"
	"github.com/rnrnshn/alx-polly/internal/services"
	"github.com/rnrnshn/alx-polly/internal/utils"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	polls *services.PollService
}

func NewVoteHandler(polls *services.PollService) *VoteHandler {
	return &VoteHandler{polls: polls}
}

type voteForm struct {
	OptionIDs  []string `form:"option_ids"`
	VoterName  string   `form:"voter_name"`
	VoterEmail string   `form:"voter_email"`
}

// Vote handles the vote form on the poll page. Failures re-render the page
// with the reason.
func (h *VoteHandler) Vote(c *gin.Context) {
	id := c.Param("id")
	var form voteForm
	if err := c.ShouldBind(&form); err != nil {
		RenderError(c, http.StatusBadRequest, "Invalid vote submission")
		return
	}

	ctx := c.Request.Context()
	caller := middleware.CurrentProfile(c)
	_, err := h.polls.SubmitVote(ctx, caller, id, services.VoteInput{
		OptionIDs:  form.OptionIDs,
		VoterName:  form.VoterName,
		VoterEmail: form.VoterEmail,
		ClientIP:   c.ClientIP(),
	})
	if err == nil {
		redirect(c, "/polls/"+id+"?voted=1")
		return
	}

	status, message := describe(err)
	logFailure(c, status, err)
	if status == http.StatusNotFound || status >= http.StatusInternalServerError {
		RenderError(c, status, message)
		return
	}

	poll, perr := h.polls.GetPoll(ctx, caller, id)
	if perr != nil {
		RenderError(c, status, message)
		return
	}
	results, rerr := h.polls.Results(ctx, caller, id)
	if rerr != nil {
		RenderError(c, status, message)
		return
	}
	data := gin.H{
		"Title":           poll.Title,
		"Poll":            poll,
		"DescriptionHTML": utils.RenderMarkdown(poll.Description),
		"Results":         results,
		"IsOwner":         services.CanEdit(poll, caller),
		"VoteError":       message,
	}
	if blocked := services.VoteBlocker(poll, h.polls.Now()); blocked != nil {
		data["Closed"] = blocked.Error()
	}
	Render(c, status, "poll/detail.html", data)
}
