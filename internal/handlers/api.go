package handlers

import (
	"net/http"
	"time"

	"github.com/rnrnshn/alx-polly/internal/middleware"
	"github.com/rnrnshn/alx-polly/internal/models"
	"github.com/rnrnshn/alx-polly/internal/services"
	"github.com/rnrnshn/alx-polly/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// APIHandler serves the JSON API under /api. Every response carries the
// {success, ...} envelope.
type APIHandler struct {
	polls    *services.PollService
	accounts *services.AccountService
}

func NewAPIHandler(polls *services.PollService, accounts *services.AccountService) *APIHandler {
	return &APIHandler{polls: polls, accounts: accounts}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type pollRequest struct {
	Title              string     `json:"title" binding:"required,max=200"`
	Description        string     `json:"description"`
	IsPublic           *bool      `json:"is_public"`
	AllowMultipleVotes bool       `json:"allow_multiple_votes"`
	ExpiresAt          *time.Time `json:"expires_at"`
	Options            []string   `json:"options" binding:"required,max=20,dive,max=200"`
	Status             string     `json:"status" binding:"omitempty,oneof=active inactive expired"`
}

// input defaults a missing is_public to public on create; updates keep the
// stored value instead.
func (r pollRequest) input() services.PollInput {
	public := true
	if r.IsPublic != nil {
		public = *r.IsPublic
	}
	return services.PollInput{
		Title:              r.Title,
		Description:        r.Description,
		IsPublic:           public,
		AllowMultipleVotes: r.AllowMultipleVotes,
		ExpiresAt:          r.ExpiresAt,
		Options:            r.Options,
		Status:             models.PollStatus(r.Status),
		KeepVisibility:     r.IsPublic == nil,
	}
}

type voteRequest struct {
	OptionIDs  []string `json:"option_ids"`
	VoterName  string   `json:"voter_name"`
	VoterEmail string   `json:"voter_email"`
}

type shareRequest struct {
	ExpiresInHours int `json:"expires_in_hours" binding:"min=0"`
}

func (h *APIHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonBadRequest(c, "email and a password of at least 6 characters are required")
		return
	}

	profile, err := h.accounts.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		jsonFailure(c, err)
		return
	}
	if err := middleware.SignIn(c, profile); err != nil {
		logrus.WithError(err).Error("failed to save session")
	}
	jsonSuccess(c, http.StatusCreated, gin.H{"profile": profile})
}

func (h *APIHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonBadRequest(c, "email and password are required")
		return
	}

	profile, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		jsonFailure(c, err)
		return
	}
	if err := middleware.SignIn(c, profile); err != nil {
		logrus.WithError(err).Error("failed to save session")
	}
	jsonSuccess(c, http.StatusOK, gin.H{"profile": profile})
}

func (h *APIHandler) Logout(c *gin.Context) {
	if err := middleware.SignOut(c); err != nil {
		logrus.WithError(err).Error("failed to clear session")
	}
	jsonSuccess(c, http.StatusOK, nil)
}

func (h *APIHandler) Me(c *gin.Context) {
	jsonSuccess(c, http.StatusOK, gin.H{"profile": middleware.CurrentProfile(c)})
}

func (h *APIHandler) ListPolls(c *gin.Context) {
	result, err := publicPage(c.Request.Context(), h.polls, utils.PageParam(c.Query("page")))
	if err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusOK, gin.H{
		"polls":       result.Polls,
		"page":        result.Page,
		"total_pages": result.TotalPages,
		"total":       result.Total,
	})
}

func (h *APIHandler) MyPolls(c *gin.Context) {
	polls, err := h.polls.ListOwned(c.Request.Context(), middleware.CurrentProfile(c))
	if err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusOK, gin.H{"polls": polls})
}

func (h *APIHandler) CreatePoll(c *gin.Context) {
	var req pollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonBadRequest(c, "title and options are required")
		return
	}

	poll, err := h.polls.CreatePoll(c.Request.Context(), middleware.CurrentProfile(c), req.input())
	if err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusCreated, gin.H{"poll": poll})
}

func (h *APIHandler) GetPoll(c *gin.Context) {
	poll, err := h.polls.GetPoll(c.Request.Context(), middleware.CurrentProfile(c), c.Param("id"))
	if err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusOK, gin.H{"poll": poll})
}

func (h *APIHandler) UpdatePoll(c *gin.Context) {
	var req pollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonBadRequest(c, "title and options are required")
		return
	}

	res, err := h.polls.UpdatePoll(c.Request.Context(), middleware.CurrentProfile(c), c.Param("id"), req.input())
	if err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusOK, gin.H{
		"poll":            res.Poll,
		"discarded_votes": res.DiscardedVotes,
	})
}

func (h *APIHandler) DeletePoll(c *gin.Context) {
	if err := h.polls.DeletePoll(c.Request.Context(), middleware.CurrentProfile(c), c.Param("id")); err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusOK, nil)
}

func (h *APIHandler) SubmitVote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonBadRequest(c, "option_ids must be a list of option ids")
		return
	}

	votes, err := h.polls.SubmitVote(c.Request.Context(), middleware.CurrentProfile(c), c.Param("id"), services.VoteInput{
		OptionIDs:  req.OptionIDs,
		VoterName:  req.VoterName,
		VoterEmail: req.VoterEmail,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		jsonFailure(c, err)
		return
	}

	ids := make([]string, len(votes))
	for i, v := range votes {
		ids[i] = v.ID
	}
	jsonSuccess(c, http.StatusCreated, gin.H{"vote_ids": ids})
}

func (h *APIHandler) Results(c *gin.Context) {
	res, err := h.polls.Results(c.Request.Context(), middleware.CurrentProfile(c), c.Param("id"))
	if err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusOK, gin.H{
		"poll_id":     res.PollID,
		"total_votes": res.TotalVotes,
		"results":     res.Results,
	})
}

func (h *APIHandler) CreateShare(c *gin.Context) {
	var req shareRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			jsonBadRequest(c, "expires_in_hours must be a non-negative number")
			return
		}
	}

	ttl := time.Duration(req.ExpiresInHours) * time.Hour
	share, err := h.polls.CreateShare(c.Request.Context(), middleware.CurrentProfile(c), c.Param("id"), ttl)
	if err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusCreated, gin.H{"share": share})
}

func (h *APIHandler) ListShares(c *gin.Context) {
	shares, err := h.polls.ListShares(c.Request.Context(), middleware.CurrentProfile(c), c.Param("id"))
	if err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusOK, gin.H{"shares": shares})
}

func (h *APIHandler) ResolveShare(c *gin.Context) {
	share, err := h.polls.ResolveShare(c.Request.Context(), c.Param("code"))
	if err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusOK, gin.H{"poll_id": share.PollID})
}

func (h *APIHandler) DeactivateShare(c *gin.Context) {
	if err := h.polls.DeactivateShare(c.Request.Context(), middleware.CurrentProfile(c), c.Param("code")); err != nil {
		jsonFailure(c, err)
		return
	}
	jsonSuccess(c, http.StatusOK, nil)
}
