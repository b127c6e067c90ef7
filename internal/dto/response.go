package dto

import (
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/service"
)

type EventResponse struct {
	ID             uint         `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Location       string       `json:"location"`
	Date           time.Time    `json:"date"`
	Img            string       `json:"img"`
	TotalSeats     int          `json:"total_seats"`
	AvailableSeats int          `json:"available_seats"`
	Price          models.Money `json:"price"`
	CreatedAt      time.Time    `json:"created_at"`
}

type BookingResponse struct {
	ID          uint           `json:"id"`
	EventID     uint           `json:"event_id"`
	Quantity    int            `json:"quantity"`
	TotalAmount models.Money   `json:"total_amount"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Mobile      string         `json:"mobile"`
	CreatedAt   time.Time      `json:"created_at"`
	Event       *EventResponse `json:"event,omitempty"`
}

type ReservationResponse struct {
	BookingID      uint            `json:"booking_id"`
	AvailableSeats int             `json:"available_seats"`
	Booking        BookingResponse `json:"booking"`
}

type SeatsResponse struct {
	EventID        uint `json:"eventId"`
	AvailableSeats int  `json:"availableSeats"`
	TotalSeats     int  `json:"totalSeats"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToEventResponse(e *models.Event) EventResponse {
	return EventResponse{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Location:       e.Location,
		Date:           e.Date,
		Img:            e.Img,
		TotalSeats:     e.TotalSeats,
		AvailableSeats: e.AvailableSeats,
		Price:          e.Price,
		CreatedAt:      e.CreatedAt,
	}
}

func ToEventResponses(events []models.Event) []EventResponse {
	resp := make([]EventResponse, len(events))
	for i := range events {
		resp[i] = ToEventResponse(&events[i])
	}
	return resp
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:          b.ID,
		EventID:     b.EventID,
		Quantity:    b.Quantity,
		TotalAmount: b.TotalAmount,
		Name:        b.Name,
		Email:       b.Email,
		Mobile:      b.Mobile,
		CreatedAt:   b.CreatedAt,
	}
	if b.Event != nil {
		ev := ToEventResponse(b.Event)
		resp.Event = &ev
	}
	return resp
}

func ToBookingResponses(bookings []models.Booking) []BookingResponse {
	resp := make([]BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = ToBookingResponse(&bookings[i])
	}
	return resp
}

func ToReservationResponse(r *service.Reservation) ReservationResponse {
	return ReservationResponse{
		BookingID:      r.BookingID,
		AvailableSeats: r.NewAvailableSeats,
		Booking:        ToBookingResponse(r.Booking),
	}
}

func ToSeatsResponse(e *models.Event) SeatsResponse {
	return SeatsResponse{EventID: e.ID, AvailableSeats: e.AvailableSeats, TotalSeats: e.TotalSeats}
}
