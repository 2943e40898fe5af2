package handlers

import (
	"net/http"

	"textilserver/internal/middleware"
	"textilserver/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const profileRecentTransactions = 5

type ProfileHandler struct {
	accounts *services.AccountService
	ledger   *services.LedgerService
	listings *services.ListingService
	now      services.Clock
	log      zerolog.Logger
}

func NewProfileHandler(accounts *services.AccountService, ledger *services.LedgerService, listings *services.ListingService, now services.Clock, log zerolog.Logger) *ProfileHandler {
	if now == nil {
		now = services.SystemClock
	}
	return &ProfileHandler{accounts: accounts, ledger: ledger, listings: listings, now: now, log: log}
}

// Overview is the member area: balance, membership state and plans.
func (h *ProfileHandler) Overview(c *gin.Context) {
	h.renderOverview(c, http.StatusOK, nil)
}

func (h *ProfileHandler) renderOverview(c *gin.Context, code int, extra gin.H) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	total, active, err := h.listings.CountByOwner(ctx, user.ID)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load your profile")
		return
	}
	history, err := h.ledger.History(ctx, user.ID, profileRecentTransactions)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load your profile")
		return
	}

	now := h.now()
	data := gin.H{
		"Title":            "My profile",
		"User":             user,
		"Plans":            h.ledger.Plans(),
		"ListingsTotal":    total,
		"ListingsActive":   active,
		"Transactions":     history,
		"MembershipActive": user.MembershipActive(now),
		"DaysLeft":         user.DaysLeft(now),
		"CanCreate":        h.listings.CanCreate(user),
		"ListingCost":      h.listings.BaseCost(),
	}
	for k, v := range extra {
		data[k] = v
	}
	Render(c, code, "profile/overview.html", data)
}

// PurchaseMembership buys the selected plan with points.
func (h *ProfileHandler) PurchaseMembership(c *gin.Context) {
	user := middleware.CurrentUser(c)

	updated, err := h.ledger.PurchaseMembership(c.Request.Context(), user.ID, c.PostForm("plan"))
	if err != nil {
		code, msg := errorStatus(err)
		if code == http.StatusInternalServerError {
			RenderError(c, code, msg)
			return
		}
		h.renderOverview(c, code, gin.H{"Error": msg})
		return
	}

	_ = middleware.SetSessionUser(sessions.Default(c), updated)
	redirectWithFlash(c, "/profile", "Membership active until "+updated.ParticipantUntil.Format("02.01.2006"))
}

// Points lists the whole point history of the current user.
func (h *ProfileHandler) Points(c *gin.Context) {
	user := middleware.CurrentUser(c)

	history, err := h.ledger.History(c.Request.Context(), user.ID, 0)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load the point history")
		return
	}
	Render(c, http.StatusOK, "profile/points.html", gin.H{
		"Title":        "Point history",
		"User":         user,
		"Transactions": history,
	})
}
