package models

import (
	"time"
)

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"size:120;not null" json:"name"`
	Email            string     `gorm:"uniqueIndex;size:190;not null" json:"email"`
	Password         string     `gorm:"not null" json:"-"` // Hash
	Phone            string     `gorm:"size:40" json:"phone"`
	City             string     `gorm:"size:120;not null" json:"city"`
	Company          string     `gorm:"size:190" json:"company"`
	Position         string     `gorm:"size:120" json:"position"`
	Tier             Tier       `gorm:"type:varchar(20);not null;default:'observer';index" json:"tier"`
	Role             Role       `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Status           UserStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	BalancePoints    int        `gorm:"not null;default:0" json:"balance_points"`
	ParticipantUntil *time.Time `gorm:"index" json:"participant_until"` // membership expiry
	LedgerVersion    int        `gorm:"not null;default:0" json:"-"`    // bumped on every balance change
	LastLogin        *time.Time `json:"last_login"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// MembershipActive reports whether the paid period is still running at now.
// An expiry equal to now is already over.
func (u *User) MembershipActive(now time.Time) bool {
	return u.ParticipantUntil != nil && u.ParticipantUntil.After(now)
}

// DaysLeft is the number of started days until the membership ends.
func (u *User) DaysLeft(now time.Time) int {
	if !u.MembershipActive(now) {
		return 0
	}
	d := u.ParticipantUntil.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

func (u *User) PrimaryKey() uint { return u.ID }
