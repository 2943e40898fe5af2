package services

import (
	"time"

	"textilserver/internal/models"
)

// Clock returns the current instant. Services take one so tests can pin time.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }

// MembershipActive is true when expiry is set and strictly after now.
func MembershipActive(expiry *time.Time, now time.Time) bool {
	return expiry != nil && expiry.After(now)
}

// CanAccessGatedContent decides whether contact details and other
// member-only data may be shown. Observers never qualify; paid tiers qualify
// only while their membership runs.
func CanAccessGatedContent(tier models.Tier, expiry *time.Time, now time.Time) bool {
	if !tier.IsPaid() {
		return false
	}
	return MembershipActive(expiry, now)
}

// CanCreateListing additionally requires enough points for the base price.
func CanCreateListing(tier models.Tier, balance int, expiry *time.Time, listingCost int, now time.Time) bool {
	return CanAccessGatedContent(tier, expiry, now) && balance >= listingCost
}
