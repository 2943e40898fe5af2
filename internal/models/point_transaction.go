package models

import (
	"time"
)

// PointTransaction is an append-only ledger row. Amount is negative for spending.
type PointTransaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	User         User            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Type         TransactionType `gorm:"type:varchar(32);not null;index" json:"type"`
	Amount       int             `gorm:"not null" json:"amount"`
	Description  string          `gorm:"size:255;not null" json:"description"`
	BalanceAfter int             `gorm:"not null" json:"balance_after"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

// TransactionWithUser is the admin view of a ledger row.
type TransactionWithUser struct {
	PointTransaction
	UserName string `json:"user_name"`
}

func (t *PointTransaction) PrimaryKey() uint { return t.ID }
