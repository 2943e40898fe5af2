package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"textilserver/internal/middleware"
	"textilserver/internal/models"
	"textilserver/internal/services"
	"textilserver/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const homeListings = 8

type ListingHandler struct {
	listings *services.ListingService
	accounts *services.AccountService
	now      services.Clock
	log      zerolog.Logger
}

func NewListingHandler(listings *services.ListingService, accounts *services.AccountService, now services.Clock, log zerolog.Logger) *ListingHandler {
	if now == nil {
		now = services.SystemClock
	}
	return &ListingHandler{listings: listings, accounts: accounts, now: now, log: log}
}

func (h *ListingHandler) Home(c *gin.Context) {
	rows, total, err := h.listings.ListPublic(c.Request.Context(), services.ListingFilter{Page: 1})
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load listings")
		return
	}
	if len(rows) > homeListings {
		rows = rows[:homeListings]
	}
	Render(c, http.StatusOK, "home.html", gin.H{
		"Listings": rows,
		"Total":    total,
		"Types":    models.ListingTypes(),
	})
}

// List is the public catalogue, optionally narrowed to one listing type.
func (h *ListingHandler) List(c *gin.Context) {
	filter := services.ListingFilter{Page: utils.StringToInt(c.DefaultQuery("page", "1"))}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if t := c.Query("type"); t != "" {
		lt, err := models.ParseListingType(t)
		if err != nil {
			RenderError(c, http.StatusBadRequest, "Unknown listing type")
			return
		}
		filter.Type = lt
	}

	rows, total, err := h.listings.ListPublic(c.Request.Context(), filter)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load listings")
		return
	}

	pages := int((total + services.ListingsPerPage - 1) / services.ListingsPerPage)
	Render(c, http.StatusOK, "listing/list.html", gin.H{
		"Title":    "Listings",
		"Listings": rows,
		"Total":    total,
		"Page":     filter.Page,
		"Pages":    pages,
		"Type":     filter.Type,
		"Types":    models.ListingTypes(),
	})
}

// Detail shows one listing. Contact details are only passed to the template
// when the viewer holds an active membership.
func (h *ListingHandler) Detail(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		RenderError(c, http.StatusNotFound, "Listing not found")
		return
	}

	listing, err := h.listings.Get(c.Request.Context(), id)
	if err != nil {
		code, msg := errorStatus(err)
		RenderError(c, code, msg)
		return
	}

	now := h.now()
	viewer := middleware.CurrentUser(c)
	status := services.EffectiveStatus(listing, now)
	owner := viewer != nil && viewer.ID == listing.UserID
	if status != models.ListingActive && !owner && (viewer == nil || !viewer.Role.CanModerate()) {
		RenderError(c, http.StatusNotFound, "Listing not found")
		return
	}

	showContacts := viewer != nil && services.CanAccessGatedContent(viewer.Tier, viewer.ParticipantUntil, now)
	if !showContacts {
		listing.ContactPerson = ""
		listing.ContactPhone = ""
		listing.ContactEmail = ""
	}

	Render(c, http.StatusOK, "listing/detail.html", gin.H{
		"Title":           listing.Title,
		"Listing":         listing,
		"Status":          status,
		"DescriptionHTML": utils.RenderMarkdown(listing.Description),
		"ShowContacts":    showContacts,
		"IsOwner":         owner,
	})
}

func (h *ListingHandler) ShowCreate(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if !h.listings.CanCreate(user) {
		redirectWithFlash(c, "/profile", h.createDenied(user))
		return
	}
	h.renderForm(c, http.StatusOK, gin.H{"Form": services.ListingInput{Currency: string(models.CurrencyRUB)}})
}

func (h *ListingHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var in services.ListingInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderForm(c, http.StatusBadRequest, gin.H{"Form": in, "Error": "Some fields are too long"})
		return
	}

	listing, err := h.listings.Create(c.Request.Context(), user.ID, in)
	if err != nil {
		if errors.Is(err, services.ErrMembershipRequired) {
			redirectWithFlash(c, "/profile", h.createDenied(user))
			return
		}
		code, msg := errorStatus(err)
		h.renderForm(c, code, gin.H{"Form": in, "Error": msg, "Errors": fieldErrors(err)})
		return
	}

	refreshSession(c, h.accounts, user.ID)
	redirectWithFlash(c, "/listings/"+strconv.FormatUint(uint64(listing.ID), 10), "Your listing is published")
}

func (h *ListingHandler) renderForm(c *gin.Context, code int, data gin.H) {
	categories, err := h.listings.Categories(c.Request.Context())
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load categories")
		return
	}
	data["Title"] = "New listing"
	data["Categories"] = categories
	data["Types"] = models.ListingTypes()
	data["Currencies"] = models.Currencies()
	data["EmploymentTypes"] = models.EmploymentTypes()
	data["ExperienceLevels"] = models.ExperienceLevels()
	data["BaseCost"] = h.listings.Cost(false, false)
	data["TopCost"] = h.listings.Cost(true, false) - h.listings.BaseCost()
	data["FeaturedCost"] = h.listings.Cost(false, true) - h.listings.BaseCost()
	Render(c, code, "listing/create.html", data)
}

func (h *ListingHandler) createDenied(u *models.User) string {
	if !services.CanAccessGatedContent(u.Tier, u.ParticipantUntil, h.now()) {
		return "Placing listings requires an active membership"
	}
	return "Not enough points to place a listing: " + strconv.Itoa(h.listings.BaseCost()) + " required"
}

// Mine lists every listing of the current user, whatever its status.
func (h *ListingHandler) Mine(c *gin.Context) {
	user := middleware.CurrentUser(c)
	rows, err := h.listings.ListByOwner(c.Request.Context(), user.ID)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load your listings")
		return
	}

	type row struct {
		models.Listing
		Effective models.ListingStatus
	}
	now := h.now()
	out := make([]row, 0, len(rows))
	for i := range rows {
		out = append(out, row{Listing: rows[i], Effective: services.EffectiveStatus(&rows[i], now)})
	}
	Render(c, http.StatusOK, "listing/mine.html", gin.H{
		"Title":     "My listings",
		"Listings":  out,
		"CanCreate": h.listings.CanCreate(user),
	})
}
