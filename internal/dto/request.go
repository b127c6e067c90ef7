package dto

import (
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
)

type CreateEventRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	Date        time.Time    `json:"date"`
	Img         string       `json:"img"`
	TotalSeats  int          `json:"total_seats"`
	Price       models.Money `json:"price"`
}

// UpdateEventRequest is the admin edit form. total_seats is required;
// anything else left out keeps its current value.
type UpdateEventRequest struct {
	TotalSeats  int           `json:"total_seats"`
	Price       *models.Money `json:"price"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Location    string        `json:"location"`
	Date        *time.Time    `json:"date"`
	Img         string        `json:"img"`
}

type CreateBookingRequest struct {
	Quantity    int           `json:"quantity"`
	TotalAmount *models.Money `json:"total_amount"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Mobile      string        `json:"mobile"`
}
