package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"groupfinder/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sitemapGroupLimit = 100

type SEOHandler struct {
	groups  *services.GroupService
	siteURL string
	log     *zap.Logger
}

func NewSEOHandler(groups *services.GroupService, siteURL string, log *zap.Logger) *SEOHandler {
	return &SEOHandler{groups: groups, siteURL: strings.TrimSuffix(siteURL, "/"), log: log}
}

func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /dashboard/
Disallow: /admin/
Disallow: /api/
Disallow: /login
Disallow: /signup

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML lists the home page, every category and the newest verified
// groups.
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now().Format("2006-01-02")

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)
	writeURL := func(loc, lastmod, changefreq string, priority float64) {
		fmt.Fprintf(&b, `  <url>
    <loc>%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>%s</changefreq>
    <priority>%.1f</priority>
  </url>
`, html.EscapeString(loc), lastmod, changefreq, priority)
	}

	writeURL(h.siteURL+"/", now, "daily", 1.0)

	categories, err := h.groups.Categories(ctx)
	if err != nil {
		h.log.Warn("sitemap: failed to load categories", zap.Error(err))
	}
	for _, cat := range categories {
		writeURL(fmt.Sprintf("%s/?category=%s", h.siteURL, cat.Slug), now, "daily", 0.8)
	}

	groups, _, err := h.groups.List(ctx, services.GroupFilter{VerifiedOnly: true, Sort: "new", Limit: sitemapGroupLimit})
	if err != nil {
		h.log.Warn("sitemap: failed to load groups", zap.Error(err))
	}
	for _, g := range groups {
		priority := 0.6
		if time.Since(g.UpdatedAt) < 7*24*time.Hour {
			priority = 0.7
		}
		writeURL(fmt.Sprintf("%s/g/%s", h.siteURL, g.Gid), g.UpdatedAt.Format("2006-01-02"), "weekly", priority)
	}

	b.WriteString(`</urlset>`)

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}
