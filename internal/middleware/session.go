package middleware

import (
	"textilserver/internal/models"

	"github.com/gin-contrib/sessions"
)

// Session keys of the identity snapshot. The snapshot is display data only;
// access checks always use the row loaded by LoadUser.
const (
	SessionUserKey     = "user_id"
	sessionName        = "user_name"
	sessionEmail       = "user_email"
	sessionTier        = "user_tier"
	sessionRole        = "user_role"
	sessionBalance     = "user_balance"
	sessionMemberUntil = "user_participant_until"
	SessionCaptchaKey  = "captcha_answer"
	SessionFlashKey    = "flash"
)

// SetSessionUser writes the identity snapshot of u and saves the session.
func SetSessionUser(s sessions.Session, u *models.User) error {
	s.Set(SessionUserKey, u.ID)
	s.Set(sessionName, u.Name)
	s.Set(sessionEmail, u.Email)
	s.Set(sessionTier, string(u.Tier))
	s.Set(sessionRole, string(u.Role))
	s.Set(sessionBalance, u.BalancePoints)
	s.Set(sessionMemberUntil, memberUntil(u))
	return s.Save()
}

// ClearSession logs the visitor out.
func ClearSession(s sessions.Session) {
	s.Clear()
	_ = s.Save()
}

// SessionUserID returns the logged-in user id stored in s.
func SessionUserID(s sessions.Session) (uint, bool) {
	id, ok := s.Get(SessionUserKey).(uint)
	return id, ok && id > 0
}

// SessionTier is the tier recorded at the last snapshot.
func SessionTier(s sessions.Session) models.Tier {
	t, _ := s.Get(sessionTier).(string)
	return models.Tier(t)
}

// SessionBalance is the balance recorded at the last snapshot.
func SessionBalance(s sessions.Session) int {
	b, _ := s.Get(sessionBalance).(int)
	return b
}

// Flash stores a one-shot message shown on the next page.
func Flash(s sessions.Session, message string) {
	s.Set(SessionFlashKey, message)
	_ = s.Save()
}

// TakeFlash returns and clears the pending flash message.
func TakeFlash(s sessions.Session) string {
	m, _ := s.Get(SessionFlashKey).(string)
	if m != "" {
		s.Delete(SessionFlashKey)
		_ = s.Save()
	}
	return m
}

func snapshotStale(s sessions.Session, u *models.User) bool {
	name, _ := s.Get(sessionName).(string)
	role, _ := s.Get(sessionRole).(string)
	until, _ := s.Get(sessionMemberUntil).(int64)
	return name != u.Name ||
		role != string(u.Role) ||
		SessionTier(s) != u.Tier ||
		SessionBalance(s) != u.BalancePoints ||
		until != memberUntil(u)
}

func memberUntil(u *models.User) int64 {
	if u.ParticipantUntil == nil {
		return 0
	}
	return u.ParticipantUntil.Unix()
}
