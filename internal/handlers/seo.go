package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"textilserver/internal/logger"
	"textilserver/internal/models"
	"textilserver/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const sitemapListings = 1000

type SEOHandler struct {
	listings *services.ListingService
	siteURL  string
	log      zerolog.Logger
}

func NewSEOHandler(listings *services.ListingService, siteURL string, log zerolog.Logger) *SEOHandler {
	return &SEOHandler{listings: listings, siteURL: strings.TrimRight(siteURL, "/"), log: log}
}

// RobotsTxt keeps crawlers out of the member and admin areas.
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /admin
Disallow: /profile
Disallow: /my/
Disallow: /listings/new
Disallow: /login
Disallow: /signup
Disallow: /api/

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// SitemapXML lists the catalogue pages and every live listing.
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	rows, err := h.listings.RecentPublic(c.Request.Context(), sitemapListings)
	if err != nil {
		logger.FromContext(c.Request.Context(), h.log).Error().Err(err).Msg("sitemap generation failed")
		c.String(http.StatusInternalServerError, "sitemap unavailable")
		return
	}

	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs,
		sitemapURL{Loc: h.siteURL + "/", ChangeFreq: "daily", Priority: "1.0"},
		sitemapURL{Loc: h.siteURL + "/listings", ChangeFreq: "hourly", Priority: "0.9"},
	)
	for _, t := range models.ListingTypes() {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/listings?type=%s", h.siteURL, t),
			ChangeFreq: "daily",
			Priority:   "0.8",
		})
	}
	for _, l := range rows {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/listings/%d", h.siteURL, l.ID),
			LastMod:    l.UpdatedAt.Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		c.String(http.StatusInternalServerError, "sitemap unavailable")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), out...))
}
