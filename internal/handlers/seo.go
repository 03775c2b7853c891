package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rnrnshn/alx-polly/internal/services"

	"github.com/gin-gonic/gin"
)

const sitemapLimit = 500

type SEOHandler struct {
	polls   *services.PollService
	siteURL string
}

func NewSEOHandler(polls *services.PollService, siteURL string) *SEOHandler {
	return &SEOHandler{polls: polls, siteURL: strings.TrimRight(siteURL, "/")}
}

// RobotsTxt keeps crawlers out of account pages and the API.
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /dashboard
Disallow: /login
Disallow: /signup
Disallow: /api/
Disallow: /s/

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// SitemapXML lists the home page and the most recently updated public polls.
// Polls still taking votes are marked as changing daily.
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	polls, err := h.polls.RecentPublic(c.Request.Context(), sitemapLimit)
	if err != nil {
		logFailure(c, http.StatusInternalServerError, err)
		c.Status(http.StatusInternalServerError)
		return
	}

	now := h.polls.Now()
	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs, sitemapURL{
		Loc:        h.siteURL + "/",
		LastMod:    now.Format("2006-01-02"),
		ChangeFreq: "hourly",
		Priority:   1.0,
	})

	for i := range polls {
		p := &polls[i]
		freq, priority := "weekly", 0.5
		if services.VoteBlocker(p, now) == nil {
			freq, priority = "daily", 0.8
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.siteURL + "/polls/" + p.ID,
			LastMod:    p.UpdatedAt.UTC().Format(time.DateOnly),
			ChangeFreq: freq,
			Priority:   priority,
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		logFailure(c, http.StatusInternalServerError, err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), out...))
}
