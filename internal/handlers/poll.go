package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rnrnshn/alx-polly/internal/middleware"
	"github.com/rnrnshn/alx-polly/internal/models"
	"github.com/rnrnshn/alx-polly/internal/services"
	"github.com/rnrnshn/alx-polly/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	publicListTTL = time.Minute

	// Layout of <input type="datetime-local">.
	formTimeLayout = "2006-01-02T15:04"
)

type PollHandler struct {
	polls *services.PollService
}

func NewPollHandler(polls *services.PollService) *PollHandler {
	return &PollHandler{polls: polls}
}

// publicPage serves public list pages through the shared LRU cache.
func publicPage(ctx context.Context, polls *services.PollService, page int) (*services.PollPage, error) {
	key := services.PublicListCachePrefix + "page:" + strconv.Itoa(page)
	cache := utils.GetCache()
	if cached, ok := cache.Get(key).(*services.PollPage); ok {
		return cached, nil
	}

	result, err := polls.ListPublic(ctx, page)
	if err != nil {
		return nil, err
	}
	cache.Set(key, result, publicListTTL)
	return result, nil
}

// List renders the home page: public polls, newest first.
func (h *PollHandler) List(c *gin.Context) {
	page := utils.PageParam(c.Query("page"))
	result, err := publicPage(c.Request.Context(), h.polls, page)
	if err != nil {
		renderFailure(c, err)
		return
	}

	Render(c, http.StatusOK, "poll/list.html", gin.H{
		"Title":      "Polls",
		"Polls":      result.Polls,
		"Page":       result.Page,
		"TotalPages": result.TotalPages,
		"HasPrev":    result.Page > 1,
		"HasNext":    result.Page < result.TotalPages,
	})
}

// Dashboard lists the signed-in user's polls.
func (h *PollHandler) Dashboard(c *gin.Context) {
	polls, err := h.polls.ListOwned(c.Request.Context(), middleware.CurrentProfile(c))
	if err != nil {
		renderFailure(c, err)
		return
	}
	Render(c, http.StatusOK, "dashboard/overview.html", gin.H{
		"Title": "My polls",
		"Polls": polls,
	})
}

// pollForm is what the create/edit pages post.
type pollForm struct {
	Title              string   `form:"title"`
	Description        string   `form:"description"`
	IsPublic           bool     `form:"is_public"`
	AllowMultipleVotes bool     `form:"allow_multiple_votes"`
	ExpiresAt          string   `form:"expires_at"`
	Options            []string `form:"options"`
	Status             string   `form:"status"`
}

func (f pollForm) input() (services.PollInput, error) {
	in := services.PollInput{
		Title:              f.Title,
		Description:        f.Description,
		IsPublic:           f.IsPublic,
		AllowMultipleVotes: f.AllowMultipleVotes,
		Options:            f.Options,
		Status:             models.PollStatus(f.Status),
	}
	if s := strings.TrimSpace(f.ExpiresAt); s != "" {
		t, err := time.ParseInLocation(formTimeLayout, s, time.UTC)
		if err != nil {
			return in, errors.New("expiry must be a date and time")
		}
		in.ExpiresAt = &t
	}
	return in, nil
}

func formFromPoll(p *models.Poll) pollForm {
	f := pollForm{
		Title:              p.Title,
		Description:        p.Description,
		IsPublic:           p.IsPublic,
		AllowMultipleVotes: p.AllowMultipleVotes,
		Status:             string(p.Status),
	}
	if p.ExpiresAt != nil {
		f.ExpiresAt = p.ExpiresAt.UTC().Format(formTimeLayout)
	}
	for _, o := range p.Options {
		f.Options = append(f.Options, o.Text)
	}
	return f
}

// withBlankOptions pads the option inputs so the form always offers a few
// empty slots.
func withBlankOptions(opts []string) []string {
	out := append([]string{}, opts...)
	for len(out) < services.MinOptions+2 {
		out = append(out, "")
	}
	return out
}

func (h *PollHandler) renderForm(c *gin.Context, status int, pollID string, form pollForm, errMsg string) {
	title := "New poll"
	action := "/polls"
	if pollID != "" {
		title = "Edit poll"
		action = "/polls/" + pollID + "/edit"
	}
	form.Options = withBlankOptions(form.Options)
	Render(c, status, "poll/form.html", gin.H{
		"Title":  title,
		"Action": action,
		"PollID": pollID,
		"Form":   form,
		"Error":  errMsg,
	})
}

func (h *PollHandler) ShowCreate(c *gin.Context) {
	h.renderForm(c, http.StatusOK, "", pollForm{IsPublic: true}, "")
}

func (h *PollHandler) Create(c *gin.Context) {
	var form pollForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderForm(c, http.StatusBadRequest, "", form, "Invalid form submission")
		return
	}
	in, err := form.input()
	if err != nil {
		h.renderForm(c, http.StatusBadRequest, "", form, err.Error())
		return
	}

	poll, err := h.polls.CreatePoll(c.Request.Context(), middleware.CurrentProfile(c), in)
	if err != nil {
		status, message := describe(err)
		logFailure(c, status, err)
		h.renderForm(c, status, "", form, message)
		return
	}
	redirect(c, "/polls/"+poll.ID)
}

// Detail shows a poll with its vote form and current results.
func (h *PollHandler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	caller := middleware.CurrentProfile(c)

	poll, err := h.polls.GetPoll(ctx, caller, c.Param("id"))
	if err != nil {
		renderFailure(c, err)
		return
	}
	results, err := h.polls.Results(ctx, caller, poll.ID)
	if err != nil {
		renderFailure(c, err)
		return
	}

	data := gin.H{
		"Title":           poll.Title,
		"Poll":            poll,
		"DescriptionHTML": utils.RenderMarkdown(poll.Description),
		"Results":         results,
		"IsOwner":         services.CanEdit(poll, caller),
		"Success":         c.Query("voted") == "1",
		"ShareCode":       c.Query("share"),
	}
	if blocked := services.VoteBlocker(poll, h.polls.Now()); blocked != nil {
		data["Closed"] = blocked.Error()
	}
	Render(c, http.StatusOK, "poll/detail.html", data)
}

func (h *PollHandler) ShowEdit(c *gin.Context) {
	caller := middleware.CurrentProfile(c)
	poll, err := h.polls.GetPoll(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		renderFailure(c, err)
		return
	}
	if !services.CanEdit(poll, caller) {
		renderFailure(c, services.ErrNotOwner)
		return
	}
	h.renderForm(c, http.StatusOK, poll.ID, formFromPoll(poll), "")
}

func (h *PollHandler) Update(c *gin.Context) {
	id := c.Param("id")
	var form pollForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderForm(c, http.StatusBadRequest, id, form, "Invalid form submission")
		return
	}
	in, err := form.input()
	if err != nil {
		h.renderForm(c, http.StatusBadRequest, id, form, err.Error())
		return
	}

	if _, err := h.polls.UpdatePoll(c.Request.Context(), middleware.CurrentProfile(c), id, in); err != nil {
		status, message := describe(err)
		if status == http.StatusNotFound || status == http.StatusForbidden {
			renderFailure(c, err)
			return
		}
		logFailure(c, status, err)
		h.renderForm(c, status, id, form, message)
		return
	}
	redirect(c, "/polls/"+id)
}

// Delete is called by HTMX from the dashboard and the detail page.
func (h *PollHandler) Delete(c *gin.Context) {
	if err := h.polls.DeletePoll(c.Request.Context(), middleware.CurrentProfile(c), c.Param("id")); err != nil {
		status, message := describe(err)
		logFailure(c, status, err)
		c.String(status, message)
		return
	}
	HtmxRedirect(c, "/dashboard")
}
