package models

import (
	"time"
)

type Listing struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	UserID             uint             `gorm:"not null;index" json:"user_id"`
	User               User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CategoryID         *uint            `gorm:"index" json:"category_id"`
	Category           *Category        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Title              string           `gorm:"size:255;not null" json:"title"`
	Description        string           `gorm:"type:text;not null" json:"description"`
	Type               ListingType      `gorm:"type:varchar(32);not null;index" json:"type"`
	Price              *float64         `json:"price"`
	Currency           Currency         `gorm:"type:varchar(3);not null;default:'RUB'" json:"currency"`
	Location           string           `gorm:"size:190;not null" json:"location"`
	ContactPerson      string           `gorm:"size:120" json:"contact_person"`
	ContactPhone       string           `gorm:"size:40" json:"contact_phone"`
	ContactEmail       string           `gorm:"size:190" json:"contact_email"`
	SalaryFrom         *float64         `json:"salary_from"`
	SalaryTo           *float64         `json:"salary_to"`
	EmploymentType     *EmploymentType  `gorm:"type:varchar(20)" json:"employment_type"`
	ExperienceRequired *ExperienceLevel `gorm:"type:varchar(20)" json:"experience_required"`
	IsTop              bool             `gorm:"not null;default:false;index" json:"is_top"`
	IsFeatured         bool             `gorm:"not null;default:false" json:"is_featured"`
	Status             ListingStatus    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	ExpiresAt          time.Time        `gorm:"not null;index" json:"expires_at"`
	CreatedAt          time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// ListingWithUser is the admin view of a listing.
type ListingWithUser struct {
	Listing
	UserName string `json:"user_name"`
}

func (l *Listing) PrimaryKey() uint { return l.ID }
