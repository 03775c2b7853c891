package router

import (
	"net/http"

	"github.com/rnrnshn/alx-polly/internal/handlers"
	"github.com/rnrnshn/alx-polly/internal/middleware"
	"github.com/rnrnshn/alx-polly/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const SessionName = "polly_session"

// Deps are the services the routes are built on.
type Deps struct {
	Polls    *services.PollService
	Accounts *services.AccountService
	Captcha  *services.CaptchaService
	OAuth    *oauth2.Config // nil disables Google sign-in
	SiteURL  string
}

// New builds an engine with recovery, request logging, cookie sessions and
// the current-user loader, then registers every route. Templates are set by
// the caller.
func New(sessionSecret string, secure bool, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(SessionName, store))
	r.Use(middleware.LoadUser(d.Accounts))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Captcha, d.OAuth)
	pollHandler := handlers.NewPollHandler(d.Polls)
	voteHandler := handlers.NewVoteHandler(d.Polls)
	shareHandler := handlers.NewShareHandler(d.Polls)
	apiHandler := handlers.NewAPIHandler(d.Polls, d.Accounts)
	seoHandler := handlers.NewSEOHandler(d.Polls, d.SiteURL)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)

	// Public pages
	r.GET("/", pollHandler.List)
	r.GET("/polls/:id", pollHandler.Detail)
	r.POST("/polls/:id/vote", voteHandler.Vote)
	r.GET("/s/:code", shareHandler.Resolve)

	r.GET("/signup", authHandler.ShowRegister)
	r.POST("/signup", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.GET("/auth/google/login", authHandler.GoogleLogin)
	r.GET("/auth/google/callback", authHandler.GoogleCallback)

	// Signed-in pages
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/polls/new", pollHandler.ShowCreate)
		authorized.POST("/polls", pollHandler.Create)
		authorized.GET("/polls/:id/edit", pollHandler.ShowEdit)
		authorized.POST("/polls/:id/edit", pollHandler.Update)
		authorized.DELETE("/polls/:id", pollHandler.Delete)
		authorized.POST("/polls/:id/share", shareHandler.Create)
		authorized.GET("/dashboard", pollHandler.Dashboard)
	}

	// JSON API
	api := r.Group("/api")
	{
		api.POST("/auth/register", apiHandler.Register)
		api.POST("/auth/login", apiHandler.Login)
		api.POST("/auth/logout", apiHandler.Logout)

		api.GET("/polls", apiHandler.ListPolls)
		api.GET("/polls/:id", apiHandler.GetPoll)
		api.POST("/polls/:id/votes", apiHandler.SubmitVote)
		api.GET("/polls/:id/results", apiHandler.Results)
		api.GET("/shares/:code", apiHandler.ResolveShare)
	}

	apiAuth := r.Group("/api")
	apiAuth.Use(middleware.APIAuthRequired())
	{
		apiAuth.GET("/me", apiHandler.Me)
		apiAuth.GET("/polls/mine", apiHandler.MyPolls)
		apiAuth.POST("/polls", apiHandler.CreatePoll)
		apiAuth.PUT("/polls/:id", apiHandler.UpdatePoll)
		apiAuth.DELETE("/polls/:id", apiHandler.DeletePoll)
		apiAuth.POST("/polls/:id/shares", apiHandler.CreateShare)
		apiAuth.GET("/polls/:id/shares", apiHandler.ListShares)
		apiAuth.DELETE("/shares/:code", apiHandler.DeactivateShare)
	}
}
