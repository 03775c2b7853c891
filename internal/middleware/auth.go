package middleware

import (
	"errors"
	"net/http"

	"github.com/rnrnshn/alx-polly/internal/models"
	"github.com/rnrnshn/alx-polly/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	CheckUserKey     = "user"
	SessionProfileID = "profile_id"
)

// AuthRequired redirects page requests without a signed-in profile to /login.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentProfile(c) == nil {
			if c.GetHeader("HX-Request") == "true" {
				c.Header("HX-Redirect", "/login")
				c.AbortWithStatus(http.StatusOK)
				return
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// APIAuthRequired rejects API requests without a signed-in profile.
func APIAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentProfile(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   services.ErrUnauthenticated.Error(),
			})
			return
		}
		c.Next()
	}
}

// LoadUser resolves the session's profile and stores it on the context.
// A session pointing at a deleted profile is cleared.
func LoadUser(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(SessionProfileID).(string)
		if ok && id != "" {
			profile, err := accounts.Get(c.Request.Context(), id)
			switch {
			case err == nil:
				c.Set(CheckUserKey, profile)
			case errors.Is(err, services.ErrProfileMissing):
				session.Delete(SessionProfileID)
				if err := session.Save(); err != nil {
					logrus.WithError(err).Warn("failed to clear stale session")
				}
			}
		}
		c.Next()
	}
}

// CurrentProfile returns the signed-in profile or nil.
func CurrentProfile(c *gin.Context) *models.Profile {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Profile)
	return p
}

// SignIn binds the session to a profile.
func SignIn(c *gin.Context, profile *models.Profile) error {
	session := sessions.Default(c)
	session.Set(SessionProfileID, profile.ID)
	c.Set(CheckUserKey, profile)
	return session.Save()
}

// SignOut clears the session.
func SignOut(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}
