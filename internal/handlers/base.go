package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"textilserver/internal/middleware"
	"textilserver/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}
	if _, ok := obj["Flash"]; !ok {
		if flash := middleware.TakeFlash(sessions.Default(c)); flash != "" {
			obj["Flash"] = flash
		}
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// Error helper
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message})
}

// redirectWithFlash stores message for the next page and redirects there.
func redirectWithFlash(c *gin.Context, location, message string) {
	middleware.Flash(sessions.Default(c), message)
	c.Redirect(http.StatusFound, location)
}

// errorStatus maps a service error to the status code and the message shown
// to the user. Unexpected errors get a generic message; the services have
// already logged them.
func errorStatus(err error) (int, string) {
	var verr *services.ValidationError
	var ipe *services.InsufficientPointsError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "Please correct the highlighted fields"
	case errors.As(err, &ipe):
		return http.StatusPaymentRequired, fmt.Sprintf("Not enough points: %d required, you have %d", ipe.Required, ipe.Available)
	case errors.Is(err, services.ErrMembershipRequired):
		return http.StatusForbidden, "An active membership is required"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "You do not have access to this action"
	case errors.Is(err, services.ErrUnknownPlan):
		return http.StatusBadRequest, "Unknown membership plan"
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest, "Amount must be a positive number"
	case errors.Is(err, services.ErrConcurrentModification):
		return http.StatusConflict, "Your balance changed while we were processing the request, please try again"
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict, "This email is already registered"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Wrong email or password"
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, services.ErrListingNotFound):
		return http.StatusNotFound, "Listing not found"
	}
	return http.StatusInternalServerError, "Something went wrong, please try again later"
}

// fieldErrors returns the per-field messages of a validation error.
func fieldErrors(err error) map[string]string {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

// refreshSession rewrites the identity snapshot after a balance change.
func refreshSession(c *gin.Context, accounts *services.AccountService, userID uint) {
	u, err := accounts.Get(c.Request.Context(), userID)
	if err != nil {
		return
	}
	_ = middleware.SetSessionUser(sessions.Default(c), u)
}
