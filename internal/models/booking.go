package models

import "time"

type Booking struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EventID     uint      `gorm:"not null;index" json:"event_id"`
	RequesterID string    `gorm:"not null;index" json:"requester_id"`
	Name        string    `gorm:"not null" json:"name"`
	Email       string    `gorm:"not null" json:"email"`
	Mobile      string    `json:"mobile"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	TotalAmount Money     `gorm:"column:total_amount_cents;type:bigint;not null" json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`

	Event *Event `gorm:"foreignKey:EventID;constraint:OnDelete:RESTRICT" json:"event,omitempty"`
}
