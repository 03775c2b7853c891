package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/rnrnshn/alx-polly/internal/middleware"
	"github.com/rnrnshn/alx-polly/internal/services"
	"github.com/rnrnshn/alx-polly/internal/utils"

	"github.com/gin-gonic/gin"
)

type ShareHandler struct {
	polls *services.PollService
}

func NewShareHandler(polls *services.PollService) *ShareHandler {
	return &ShareHandler{polls: polls}
}

// Create mints a share code from the poll page and shows it there.
func (h *ShareHandler) Create(c *gin.Context) {
	id := c.Param("id")
	ttl := time.Duration(utils.StringToInt(c.PostForm("expires_in_hours"))) * time.Hour

	share, err := h.polls.CreateShare(c.Request.Context(), middleware.CurrentProfile(c), id, ttl)
	if err != nil {
		renderFailure(c, err)
		return
	}
	redirect(c, "/polls/"+id+"?share="+url.QueryEscape(share.Code))
}

// Resolve sends a share link visitor to the poll page.
func (h *ShareHandler) Resolve(c *gin.Context) {
	share, err := h.polls.ResolveShare(c.Request.Context(), c.Param("code"))
	if err != nil {
		renderFailure(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/polls/"+share.PollID)
}
