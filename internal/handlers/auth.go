package handlers

import (
	"net/http"

	"github.com/rnrnshn/alx-polly/internal/middleware"
	"github.com/rnrnshn/alx-polly/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const captchaSessionKey = "captcha_answer"

type AuthHandler struct {
	accounts       *services.AccountService
	captchaService *services.CaptchaService
	oauth          *oauth2.Config
}

// NewAuthHandler wires the page-based auth flows. oauth may be nil when
// Google sign-in is not configured.
func NewAuthHandler(accounts *services.AccountService, captcha *services.CaptchaService, oauth *oauth2.Config) *AuthHandler {
	return &AuthHandler{
		accounts:       accounts,
		captchaService: captcha,
		oauth:          oauth,
	}
}

// renderRegister shows the sign-up page with a fresh captcha question.
func (h *AuthHandler) renderRegister(c *gin.Context, status int, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set(captchaSessionKey, answer)
	if err := session.Save(); err != nil {
		logrus.WithError(err).Error("failed to save session")
	}

	data["Title"] = "Sign up"
	data["Captcha"] = question
	data["GoogleEnabled"] = h.oauth != nil
	Render(c, status, "auth/register.html", data)
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = "Log in"
	data["GoogleEnabled"] = h.oauth != nil
	Render(c, status, "auth/login.html", data)
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, nil)
}

func (h *AuthHandler) Register(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	displayName := c.PostForm("display_name")
	form := gin.H{"Email": email, "DisplayName": displayName}

	session := sessions.Default(c)
	expected := session.Get(captchaSessionKey)
	session.Delete(captchaSessionKey)
	if !h.captchaService.Verify(expected, c.PostForm("captcha")) {
		form["Error"] = "Incorrect answer to the captcha"
		h.renderRegister(c, http.StatusBadRequest, form)
		return
	}

	profile, err := h.accounts.Register(c.Request.Context(), email, password, displayName)
	if err != nil {
		status, message := describe(err)
		logFailure(c, status, err)
		form["Error"] = message
		h.renderRegister(c, status, form)
		return
	}

	if err := middleware.SignIn(c, profile); err != nil {
		logrus.WithError(err).Error("failed to save session")
	}
	redirect(c, "/dashboard")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	profile, err := h.accounts.Authenticate(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		status, message := describe(err)
		logFailure(c, status, err)
		h.renderLogin(c, status, gin.H{"Error": message, "Email": email})
		return
	}

	if err := middleware.SignIn(c, profile); err != nil {
		logrus.WithError(err).Error("failed to save session")
	}
	redirect(c, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := middleware.SignOut(c); err != nil {
		logrus.WithError(err).Error("failed to clear session")
	}
	c.Redirect(http.StatusFound, "/")
}
