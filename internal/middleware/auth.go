package middleware

import (
	"errors"
	"net/http"

	"textilserver/internal/logger"
	"textilserver/internal/models"
	"textilserver/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const CheckUserKey = "user"

// CurrentUser returns the user loaded for this request, if any.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// LoadUser resolves the session to a fresh database row, downgrades a lapsed
// membership and keeps the session snapshot in step with the row. Sessions of
// deleted or disabled accounts are dropped.
func LoadUser(accounts *services.AccountService, ledger *services.LedgerService, fallback zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := SessionUserID(session)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx, fallback)

		user, err := accounts.Get(ctx, id)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				ClearSession(session)
			} else {
				log.Error().Err(err).Uint("user_id", id).Msg("failed to load session user")
			}
			c.Next()
			return
		}
		if user.Status != models.UserActive {
			ClearSession(session)
			c.Next()
			return
		}

		if _, err := ledger.ReconcileTier(ctx, user); err != nil {
			log.Warn().Err(err).Uint("user_id", id).Msg("tier reconcile failed")
		}
		c.Set(CheckUserKey, user)

		if snapshotStale(session, user) {
			if err := SetSessionUser(session, user); err != nil {
				log.Warn().Err(err).Msg("failed to refresh session")
			}
		}
		c.Next()
	}
}

// AuthRequired ensures a user is logged in.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ModeratorRequired admits admins and content editors.
func ModeratorRequired() gin.HandlerFunc {
	return requireRole(func(u *models.User) bool { return u.Role.CanModerate() })
}

// AdminRequired admits admins only.
func AdminRequired() gin.HandlerFunc {
	return requireRole(func(u *models.User) bool { return u.Role == models.RoleAdmin })
}

func requireRole(allowed func(*models.User) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		if !allowed(u) {
			abortWithPage(c, http.StatusForbidden, "You do not have access to this page")
			return
		}
		c.Next()
	}
}

func abortWithPage(c *gin.Context, code int, message string) {
	c.HTML(code, "error.html", gin.H{
		"Error":       message,
		"CurrentUser": CurrentUser(c),
		"CurrentPath": c.Request.URL.Path,
	})
	c.Abort()
}
