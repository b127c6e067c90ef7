package handler

import (
	"net/http"

	"github.com/Eursukkul/event-ticketing/internal/auth"
	"github.com/Eursukkul/event-ticketing/internal/dto"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/labstack/echo/v4"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo, authn echo.MiddlewareFunc) {
	events := e.Group("/api/v1/events")
	events.POST("/:id/bookings", h.CreateBooking, authn)
	events.GET("/:id/bookings", h.ListEventBookings, authn, auth.RequireAdmin)

	bookings := e.Group("/api/v1/bookings", authn)
	bookings.GET("/me", h.ListMyBookings)
	bookings.GET("/:id", h.GetBooking)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	eventID, err := parseID(c, "event")
	if err != nil {
		return err
	}

	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TotalAmount == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "total_amount is required")
	}

	res, err := h.svc.Reserve(c.Request().Context(), identity, service.ReserveInput{
		EventID:     eventID,
		Quantity:    req.Quantity,
		TotalAmount: *req.TotalAmount,
		Name:        req.Name,
		Email:       req.Email,
		Mobile:      req.Mobile,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToReservationResponse(res))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "booking")
	if err != nil {
		return err
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), identity, id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}

	bookings, err := h.svc.ListMyBookings(c.Request().Context(), identity)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}

func (h *BookingHandler) ListEventBookings(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	eventID, err := parseID(c, "event")
	if err != nil {
		return err
	}

	bookings, err := h.svc.ListEventBookings(c.Request().Context(), identity, eventID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}
