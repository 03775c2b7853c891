package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rnrnshn/alx-polly/internal/config"
	"github.com/rnrnshn/alx-polly/internal/db"
	"github.com/rnrnshn/alx-polly/internal/handlers"
	"github.com/rnrnshn/alx-polly/internal/router"
	"github.com/rnrnshn/alx-polly/internal/services"
	"github.com/rnrnshn/alx-polly/internal/utils"

	"github.com/dustin/go-humanize"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, reading configuration from the environment")
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	setupLogging(cfg)

	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	conn := db.Init(cfg)

	polls := services.NewPollService(conn, cfg.VoterHashSalt)
	accounts := services.NewAccountService(conn)
	mail := services.NewMailService(cfg.SiteURL)
	sweeper := services.NewExpiryService(polls, mail, cfg.ExpirySweepInterval)

	oauth := handlers.NewGoogleOAuth(cfg)
	if oauth == nil {
		logrus.Info("Google sign-in disabled: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
	}

	r := router.New(cfg.SessionSecret, strings.HasPrefix(cfg.SiteURL, "https://"), router.Deps{
		Polls:    polls,
		Accounts: accounts,
		Captcha:  services.NewCaptchaService(),
		OAuth:    oauth,
		SiteURL:  cfg.SiteURL,
	})
	r.HTMLRender = loadTemplates("./web/templates")
	r.Static("/static", "./web/static")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("Polly server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
}

func setupLogging(cfg config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Release {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	includes, err := filepath.Glob(templatesDir + "/includes/*.html")
	if err != nil {
		panic(err)
	}

	// "poll/list.html" -> [base, includes..., view]
	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(includes)+1)
		files = append(files, layouts...)
		files = append(files, includes...)
		files = append(files, view)
		return files
	}

	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"timeAgo": humanize.Time,
		"comma": func(n int64) string {
			return humanize.Comma(n)
		},
		"formatTime": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.UTC().Format("Jan 2, 2006 15:04 UTC")
		},
		"excerpt": func(s string) string {
			return utils.DescriptionExcerpt(s, 140)
		},
		"pct": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
	}

	views := []string{
		"auth/login.html",
		"auth/register.html",
		"poll/list.html",
		"poll/detail.html",
		"poll/form.html",
		"dashboard/overview.html",
		"error.html",
	}
	for _, v := range views {
		r.AddFromFilesFuncs(v, funcMap, assemble(templatesDir+"/views/"+v)...)
	}

	return r
}
