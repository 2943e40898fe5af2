package handlers

import (
	"fmt"
	"net/http"

	"textilserver/internal/logger"
	"textilserver/internal/middleware"
	"textilserver/internal/models"
	"textilserver/internal/services"
	"textilserver/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AdminHandler struct {
	stats    *services.StatsService
	listings *services.ListingService
	ledger   *services.LedgerService
	accounts *services.AccountService
	log      zerolog.Logger
}

func NewAdminHandler(stats *services.StatsService, listings *services.ListingService, ledger *services.LedgerService, accounts *services.AccountService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{stats: stats, listings: listings, ledger: ledger, accounts: accounts, log: log}
}

// Dashboard is the admin overview page.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	d, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load statistics")
		return
	}
	user := middleware.CurrentUser(c)
	Render(c, http.StatusOK, "admin/dashboard.html", gin.H{
		"Title":           "Administration",
		"Stats":           d,
		"ListingStatuses": models.ListingStatuses(),
		"IsAdmin":         user.Role == models.RoleAdmin,
	})
}

// SetListingStatus is the moderation form on the dashboard.
func (h *AdminHandler) SetListingStatus(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		RenderError(c, http.StatusNotFound, "Listing not found")
		return
	}
	status, err := models.ParseListingStatus(c.PostForm("status"))
	if err != nil {
		RenderError(c, http.StatusBadRequest, "Unknown listing status")
		return
	}

	if err := h.listings.SetStatus(c.Request.Context(), middleware.CurrentUser(c), id, status); err != nil {
		code, msg := errorStatus(err)
		RenderError(c, code, msg)
		return
	}
	h.stats.Invalidate()
	redirectWithFlash(c, "/admin", fmt.Sprintf("Listing #%d is now %s", id, status.Label()))
}

// GrantPoints credits points to a user account. Admin only.
func (h *AdminHandler) GrantPoints(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		RenderError(c, http.StatusNotFound, "User not found")
		return
	}
	amount := utils.StringToInt(c.PostForm("amount"))
	note := utils.SanitizeInput(c.PostForm("note"))

	actor := middleware.CurrentUser(c)
	entry, err := h.ledger.Grant(c.Request.Context(), actor, id, amount, note)
	if err != nil {
		code, msg := errorStatus(err)
		RenderError(c, code, msg)
		return
	}

	logger.FromContext(c.Request.Context(), h.log).Info().
		Uint("admin_id", actor.ID).Uint("user_id", id).Int("amount", amount).Msg("admin granted points")
	h.stats.Invalidate()
	redirectWithFlash(c, "/admin", fmt.Sprintf("Credited %d points to user #%d, new balance %d", amount, id, entry.BalanceAfter))
}

// SetUserStatus suspends, blocks or re-activates an account. Admin only.
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		RenderError(c, http.StatusNotFound, "User not found")
		return
	}
	status, err := models.ParseUserStatus(c.PostForm("status"))
	if err != nil {
		RenderError(c, http.StatusBadRequest, "Unknown account status")
		return
	}

	if err := h.accounts.SetStatus(c.Request.Context(), middleware.CurrentUser(c), id, status); err != nil {
		code, msg := errorStatus(err)
		if verr := fieldErrors(err); verr != nil {
			msg = verr["status"]
		}
		RenderError(c, code, msg)
		return
	}
	h.stats.Invalidate()
	redirectWithFlash(c, "/admin", fmt.Sprintf("User #%d is now %s", id, status))
}
