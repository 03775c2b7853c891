package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rnrnshn/alx-polly/internal/config"
	"github.com/rnrnshn/alx-polly/internal/middleware"
	"github.com/rnrnshn/alx-polly/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateKey   = "oauth_state"
	googleUserInfo  = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleLoginPath = "/auth/google/callback"
)

// NewGoogleOAuth builds the Google OAuth config, or nil when no client is
// configured.
func NewGoogleOAuth(cfg config.Config) *oauth2.Config {
	if !cfg.GoogleEnabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  strings.TrimRight(cfg.SiteURL, "/") + googleLoginPath,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// generateStateToken returns a random state token.
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GoogleLogin starts the Google OAuth flow.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.oauth == nil {
		RenderError(c, http.StatusNotFound, "Google sign-in is not enabled")
		return
	}

	state, err := generateStateToken()
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Failed to start Google sign-in")
		return
	}

	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		logrus.WithError(err).Error("failed to save session")
		RenderError(c, http.StatusInternalServerError, "Failed to start Google sign-in")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthCodeURL(state))
}

// GoogleCallback finishes the OAuth flow and signs the profile in.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.oauth == nil {
		RenderError(c, http.StatusNotFound, "Google sign-in is not enabled")
		return
	}

	session := sessions.Default(c)
	savedState, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	if err := session.Save(); err != nil {
		logrus.WithError(err).Error("failed to save session")
	}

	if savedState == "" || c.Query("state") != savedState {
		h.renderLogin(c, http.StatusBadRequest, gin.H{"Error": "Invalid sign-in state, please try again"})
		return
	}

	code := c.Query("code")
	if code == "" {
		h.renderLogin(c, http.StatusBadRequest, gin.H{"Error": "Google did not return an authorization code"})
		return
	}

	ctx := c.Request.Context()
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		logrus.WithError(err).Warn("google token exchange failed")
		h.renderLogin(c, http.StatusBadGateway, gin.H{"Error": "Failed to sign in with Google"})
		return
	}

	info, err := h.fetchGoogleUser(ctx, token)
	if err != nil {
		logrus.WithError(err).Warn("google userinfo request failed")
		h.renderLogin(c, http.StatusBadGateway, gin.H{"Error": "Failed to read your Google profile"})
		return
	}

	profile, err := h.accounts.GoogleProfile(ctx, *info)
	if err != nil {
		status, message := describe(err)
		logFailure(c, status, err)
		h.renderLogin(c, status, gin.H{"Error": message})
		return
	}

	if err := middleware.SignIn(c, profile); err != nil {
		logrus.WithError(err).Error("failed to save session")
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *AuthHandler) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*services.GoogleUserInfo, error) {
	resp, err := h.oauth.Client(ctx, token).Get(googleUserInfo)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var info services.GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
