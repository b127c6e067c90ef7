package models

import "time"

type Event struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AdminID        string    `gorm:"not null;default:''" json:"admin_id"`
	Title          string    `gorm:"not null" json:"title"`
	Description    string    `json:"description"`
	Location       string    `gorm:"not null" json:"location"`
	Date           time.Time `gorm:"not null;index" json:"date"`
	Img            string    `json:"img"`
	TotalSeats     int       `gorm:"not null" json:"total_seats"`
	AvailableSeats int       `gorm:"not null" json:"available_seats"`
	Price          Money     `gorm:"column:price_cents;type:bigint;not null" json:"price"`
	Version        int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Booked is the number of seats already committed to bookings.
func (e *Event) Booked() int {
	return e.TotalSeats - e.AvailableSeats
}

// SeatUpdate is the message fanned out to viewers of an event after an
// inventory write commits.
type SeatUpdate struct {
	EventID        uint  `json:"eventId"`
	AvailableSeats int   `json:"availableSeats"`
	Version        int64 `json:"version"`
}

func (e *Event) SeatUpdate() SeatUpdate {
	return SeatUpdate{EventID: e.ID, AvailableSeats: e.AvailableSeats, Version: e.Version}
}
