package models

import (
	"time"
)

type Company struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	User        User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name        string      `gorm:"size:190;not null" json:"name"`
	Type        CompanyType `gorm:"type:varchar(20);not null" json:"type"`
	City        string      `gorm:"size:120" json:"city"`
	Description string      `gorm:"type:text" json:"description"`
	Status      string      `gorm:"size:20;not null;default:'active';index" json:"status"` // active, pending, inactive
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (c *Company) PrimaryKey() uint { return c.ID }
