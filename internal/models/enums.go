package models

import (
	"database/sql/driver"
	"fmt"
)

// Every enumeration below is closed: unknown values are rejected when parsed
// from input and when scanned from storage.

func parseEnum[T ~string](kind, s string, known []T) (T, error) {
	for _, k := range known {
		if string(k) == s {
			return k, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", kind, s)
}

func scanEnum[T ~string](dst *T, src any, kind string, known []T) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("null %s", kind)
	default:
		return fmt.Errorf("cannot scan %T into %s", src, kind)
	}
	val, err := parseEnum(kind, raw, known)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func valueEnum[T ~string](v T, kind string, known []T) (driver.Value, error) {
	if _, err := parseEnum(kind, string(v), known); err != nil {
		return nil, err
	}
	return string(v), nil
}

// Tier is the access level of an account.
type Tier string

const (
	TierObserver    Tier = "observer"
	TierParticipant Tier = "participant"
	TierLeader      Tier = "leader"
)

var tiers = []Tier{TierObserver, TierParticipant, TierLeader}

func ParseTier(s string) (Tier, error) {
	return parseEnum("tier", s, tiers)
}

func (t Tier) Valid() bool {
	_, err := ParseTier(string(t))
	return err == nil
}

func (t *Tier) Scan(src any) error {
	return scanEnum(t, src, "tier", tiers)
}

func (t Tier) Value() (driver.Value, error) {
	return valueEnum(t, "tier", tiers)
}

func (t Tier) IsPaid() bool {
	return t == TierParticipant || t == TierLeader
}

func (t Tier) Label() string {
	switch t {
	case TierObserver:
		return "Observer"
	case TierParticipant:
		return "Participant"
	case TierLeader:
		return "Leader"
	}
	return string(t)
}

type Role string

const (
	RoleUser          Role = "user"
	RoleAdmin         Role = "admin"
	RoleContentEditor Role = "content_editor"
)

var roles = []Role{RoleUser, RoleAdmin, RoleContentEditor}

func ParseRole(s string) (Role, error) {
	return parseEnum("role", s, roles)
}

func (r *Role) Scan(src any) error {
	return scanEnum(r, src, "role", roles)
}

func (r Role) Value() (driver.Value, error) {
	return valueEnum(r, "role", roles)
}

// CanModerate reports whether the role may open the admin area.
func (r Role) CanModerate() bool {
	return r == RoleAdmin || r == RoleContentEditor
}

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserBlocked   UserStatus = "blocked"
)

var userStatuses = []UserStatus{UserActive, UserSuspended, UserBlocked}

func ParseUserStatus(s string) (UserStatus, error) {
	return parseEnum("user status", s, userStatuses)
}

func (s *UserStatus) Scan(src any) error {
	return scanEnum(s, src, "user status", userStatuses)
}

func (s UserStatus) Value() (driver.Value, error) {
	return valueEnum(s, "user status", userStatuses)
}

type ListingType string

const (
	ListingReadyProducts ListingType = "ready_products"
	ListingRawMaterials  ListingType = "raw_materials"
	ListingEquipment     ListingType = "equipment"
	ListingJobs          ListingType = "jobs"
	ListingServices      ListingType = "services"
	ListingRental        ListingType = "rental"
)

var listingTypes = []ListingType{
	ListingReadyProducts, ListingRawMaterials, ListingEquipment,
	ListingJobs, ListingServices, ListingRental,
}

// ListingTypes returns the known listing types in display order.
func ListingTypes() []ListingType {
	return append([]ListingType(nil), listingTypes...)
}

func ParseListingType(s string) (ListingType, error) {
	return parseEnum("listing type", s, listingTypes)
}

func (t *ListingType) Scan(src any) error {
	return scanEnum(t, src, "listing type", listingTypes)
}

func (t ListingType) Value() (driver.Value, error) {
	return valueEnum(t, "listing type", listingTypes)
}

func (t ListingType) Label() string {
	switch t {
	case ListingReadyProducts:
		return "Ready products"
	case ListingRawMaterials:
		return "Raw materials"
	case ListingEquipment:
		return "Equipment"
	case ListingJobs:
		return "Jobs"
	case ListingServices:
		return "Services"
	case ListingRental:
		return "Rental"
	}
	return string(t)
}

type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingPending  ListingStatus = "pending"
	ListingInactive ListingStatus = "inactive"
	ListingExpired  ListingStatus = "expired"
	ListingSold     ListingStatus = "sold"
)

var listingStatuses = []ListingStatus{ListingActive, ListingPending, ListingInactive, ListingExpired, ListingSold}

func ListingStatuses() []ListingStatus {
	return append([]ListingStatus(nil), listingStatuses...)
}

func ParseListingStatus(s string) (ListingStatus, error) {
	return parseEnum("listing status", s, listingStatuses)
}
func (s *ListingStatus) Scan(src any) error {
	return scanEnum(s, src, "listing status", listingStatuses)
}

func (s ListingStatus) Value() (driver.Value, error) {
	return valueEnum(s, "listing status", listingStatuses)
}
func (s ListingStatus) Label() string {
	switch s {
	case ListingActive:
		return "Active"
	case ListingPending:
		return "Pending review"
	case ListingInactive:
		return "Inactive"
	case ListingExpired:
		return "Expired"
	case ListingSold:
		return "Sold"
	}
	return string(s)
}

type TransactionType string

const (
	TxListingCreation    TransactionType = "listing_creation"
	TxMembershipPurchase TransactionType = "membership_purchase"
	TxAdminGrant         TransactionType = "admin_grant"
)

var transactionTypes = []TransactionType{TxListingCreation, TxMembershipPurchase, TxAdminGrant}

func ParseTransactionType(s string) (TransactionType, error) {
	return parseEnum("transaction type", s, transactionTypes)
}
func (t *TransactionType) Scan(src any) error {
	return scanEnum(t, src, "transaction type", transactionTypes)
}
func (t TransactionType) Value() (driver.Value, error) {
	return valueEnum(t, "transaction type", transactionTypes)
}
func (t TransactionType) Label() string {
	switch t {
	case TxListingCreation:
		return "Listing placement"
	case TxMembershipPurchase:
		return "Membership purchase"
	case TxAdminGrant:
		return "Top-up"
	}
	return string(t)
}

type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

var currencies = []Currency{CurrencyRUB, CurrencyUSD, CurrencyEUR}

// Currencies returns the accepted price currencies.
func Currencies() []Currency {
	return append([]Currency(nil), currencies...)
}

func ParseCurrency(s string) (Currency, error) {
	return parseEnum("currency", s, currencies)
}

func (c *Currency) Scan(src any) error {
	return scanEnum(c, src, "currency", currencies)
}

func (c Currency) Value() (driver.Value, error) {
	return valueEnum(c, "currency", currencies)
}

type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentFreelance  EmploymentType = "freelance"
	EmploymentInternship EmploymentType = "internship"
)

var employmentTypes = []EmploymentType{
	EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentFreelance, EmploymentInternship,
}

func ParseEmploymentType(s string) (EmploymentType, error) {
	return parseEnum("employment type", s, employmentTypes)
}
func (e *EmploymentType) Scan(src any) error {
	return scanEnum(e, src, "employment type", employmentTypes)
}
func (e EmploymentType) Value() (driver.Value, error) {
	return valueEnum(e, "employment type", employmentTypes)
}
func (e EmploymentType) Label() string {
	switch e {
	case EmploymentFullTime:
		return "Full time"
	case EmploymentPartTime:
		return "Part time"
	case EmploymentContract:
		return "Contract"
	case EmploymentFreelance:
		return "Freelance"
	case EmploymentInternship:
		return "Internship"
	}
	return string(e)
}

func EmploymentTypes() []EmploymentType {
	return append([]EmploymentType(nil), employmentTypes...)
}

type ExperienceLevel string

const (
	ExperienceNone  ExperienceLevel = "no_experience"
	Experience1To3  ExperienceLevel = "1_3_years"
	Experience3To6  ExperienceLevel = "3_6_years"
	ExperienceOver6 ExperienceLevel = "6_plus_years"
)

var experienceLevels = []ExperienceLevel{ExperienceNone, Experience1To3, Experience3To6, ExperienceOver6}

func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	return parseEnum("experience level", s, experienceLevels)
}
func (e *ExperienceLevel) Scan(src any) error {
	return scanEnum(e, src, "experience level", experienceLevels)
}
func (e ExperienceLevel) Value() (driver.Value, error) {
	return valueEnum(e, "experience level", experienceLevels)
}
func (e ExperienceLevel) Label() string {
	switch e {
	case ExperienceNone:
		return "No experience"
	case Experience1To3:
		return "1 to 3 years"
	case Experience3To6:
		return "3 to 6 years"
	case ExperienceOver6:
		return "Over 6 years"
	}
	return string(e)
}

func ExperienceLevels() []ExperienceLevel {
	return append([]ExperienceLevel(nil), experienceLevels...)
}

type CompanyType string

const (
	CompanyProducer CompanyType = "producer"
	CompanyTrading  CompanyType = "trading"
	CompanyService  CompanyType = "service"
)

var companyTypes = []CompanyType{CompanyProducer, CompanyTrading, CompanyService}

func ParseCompanyType(s string) (CompanyType, error) {
	return parseEnum("company type", s, companyTypes)
}

func (c *CompanyType) Scan(src any) error {
	return scanEnum(c, src, "company type", companyTypes)
}

func (c CompanyType) Value() (driver.Value, error) {
	return valueEnum(c, "company type", companyTypes)
}

func (c CompanyType) Label() string {
	switch c {
	case CompanyProducer:
		return "Producer"
	case CompanyTrading:
		return "Trading"
	case CompanyService:
		return "Service"
	}
	return string(c)
}
