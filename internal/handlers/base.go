package handlers

import (
	"errors"
	"net/http"

	"github.com/rnrnshn/alx-polly/internal/middleware"
	"github.com/rnrnshn/alx-polly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Render helper to inject common variables like the current user.
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if p := middleware.CurrentProfile(c); p != nil {
		obj["CurrentUser"] = p
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// HtmxRedirect lets HTMX follow a redirect on the client side.
func HtmxRedirect(c *gin.Context, path string) {
	c.Header("HX-Redirect", path)
	c.Status(http.StatusOK)
}

// redirect answers HTMX requests with HX-Redirect and plain forms with a 303.
func redirect(c *gin.Context, path string) {
	if c.GetHeader("HX-Request") == "true" {
		HtmxRedirect(c, path)
		return
	}
	c.Redirect(http.StatusSeeOther, path)
}

func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message})
}

// failure pairs an error sentinel with its HTTP status. Detailed messages are
// only shown for input errors; the rest expose the sentinel text.
type failure struct {
	err    error
	status int
	detail bool
}

var failures = []failure{
	{services.ErrValidation, http.StatusBadRequest, true},
	{services.ErrInvalidOptions, http.StatusBadRequest, true},
	{services.ErrUnauthenticated, http.StatusUnauthorized, false},
	{services.ErrProfileMissing, http.StatusUnauthorized, false},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, false},
	{services.ErrNotOwner, http.StatusForbidden, false},
	{services.ErrNotFound, http.StatusNotFound, false},
	{services.ErrShareNotFound, http.StatusNotFound, false},
	{services.ErrPollInactive, http.StatusConflict, false},
	{services.ErrPollExpired, http.StatusConflict, false},
	{services.ErrAlreadyVoted, http.StatusConflict, false},
	{services.ErrEmailTaken, http.StatusConflict, false},
	{services.ErrOptionsWriteFailed, http.StatusInternalServerError, false},
	{services.ErrWriteFailed, http.StatusInternalServerError, false},
}

// describe maps a service error to a status code and a user-facing message.
func describe(err error) (int, string) {
	for _, f := range failures {
		if errors.Is(err, f.err) {
			if f.detail {
				return f.status, err.Error()
			}
			return f.status, f.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func logFailure(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"error": err,
		}).Error("request failed")
	}
}

// renderFailure shows a service error on the error page.
func renderFailure(c *gin.Context, err error) {
	status, message := describe(err)
	logFailure(c, status, err)
	if status == http.StatusUnauthorized {
		redirect(c, "/login")
		return
	}
	RenderError(c, status, message)
}

// jsonFailure writes the {success:false,error} envelope.
func jsonFailure(c *gin.Context, err error) {
	status, message := describe(err)
	logFailure(c, status, err)
	c.JSON(status, gin.H{"success": false, "error": message})
}

func jsonBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

// jsonSuccess writes the {success:true,...} envelope.
func jsonSuccess(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}
