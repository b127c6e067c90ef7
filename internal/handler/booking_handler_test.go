package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/auth"
	"github.com/Eursukkul/event-ticketing/internal/dto"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock BookingService ---

type mockBookingService struct {
	reserveFn   func(ctx context.Context, caller auth.Identity, in service.ReserveInput) (*service.Reservation, error)
	getFn       func(ctx context.Context, caller auth.Identity, id uint) (*models.Booking, error)
	listMineFn  func(ctx context.Context, caller auth.Identity) ([]models.Booking, error)
	listEventFn func(ctx context.Context, caller auth.Identity, eventID uint) ([]models.Booking, error)
}

func (m *mockBookingService) Reserve(ctx context.Context, caller auth.Identity, in service.ReserveInput) (*service.Reservation, error) {
	return m.reserveFn(ctx, caller, in)
}
func (m *mockBookingService) GetBooking(ctx context.Context, caller auth.Identity, id uint) (*models.Booking, error) {
	return m.getFn(ctx, caller, id)
}
func (m *mockBookingService) ListMyBookings(ctx context.Context, caller auth.Identity) ([]models.Booking, error) {
	return m.listMineFn(ctx, caller)
}
func (m *mockBookingService) ListEventBookings(ctx context.Context, caller auth.Identity, eventID uint) ([]models.Booking, error) {
	return m.listEventFn(ctx, caller, eventID)
}

// --- Helpers ---

var (
	buyer = auth.Identity{ID: "user-1", Role: auth.RoleUser}
	admin = auth.Identity{ID: "admin-1", Role: auth.RoleAdmin}
)

func newContext(method, target, body string, identity *auth.Identity) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if identity != nil {
		auth.WithIdentity(c, *identity)
	}
	return c, rec
}

func assertHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, code, he.Code)
}

func sampleBooking() *models.Booking {
	return &models.Booking{
		ID:          7,
		EventID:     1,
		RequesterID: "user-1",
		Name:        "Somchai",
		Email:       "somchai@example.com",
		Quantity:    3,
		TotalAmount: 30000,
		CreatedAt:   time.Date(2026, 2, 20, 17, 0, 0, 0, time.UTC),
	}
}

// --- Tests ---

func TestCreateBooking_Success(t *testing.T) {
	var got service.ReserveInput
	svc := &mockBookingService{
		reserveFn: func(ctx context.Context, caller auth.Identity, in service.ReserveInput) (*service.Reservation, error) {
			got = in
			return &service.Reservation{BookingID: 7, NewAvailableSeats: 4, Booking: sampleBooking()}, nil
		},
	}
	h := NewBookingHandler(svc)

	c, rec := newContext(http.MethodPost, "/", `{"quantity":3,"total_amount":300.00,"name":"Somchai","email":"somchai@example.com"}`, &buyer)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := h.CreateBooking(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uint(1), got.EventID)
	assert.Equal(t, models.Money(30000), got.TotalAmount)

	var resp dto.ReservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint(7), resp.BookingID)
	assert.Equal(t, 4, resp.AvailableSeats)
	assert.Equal(t, models.Money(30000), resp.Booking.TotalAmount)
}

func TestCreateBooking_BadInput(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{})

	cases := map[string]struct {
		id, body string
	}{
		"bad id":              {"abc", `{"quantity":1,"total_amount":1}`},
		"missing total":       {"1", `{"quantity":1}`},
		"sub-cent total":      {"1", `{"quantity":1,"total_amount":0.333}`},
		"malformed json body": {"1", `{"quantity":`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newContext(http.MethodPost, "/", tc.body, &buyer)
			c.SetParamNames("id")
			c.SetParamValues(tc.id)
			assertHTTPError(t, h.CreateBooking(c), http.StatusBadRequest)
		})
	}
}

func TestCreateBooking_Unauthenticated(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{})
	c, _ := newContext(http.MethodPost, "/", `{"quantity":1,"total_amount":1}`, nil)
	c.SetParamNames("id")
	c.SetParamValues("1")

	assertHTTPError(t, h.CreateBooking(c), http.StatusUnauthorized)
}

func TestCreateBooking_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{service.ErrEventNotFound, http.StatusNotFound},
		{service.ErrInsufficientSeats, http.StatusConflict},
		{service.ErrPriceMismatch, http.StatusBadRequest},
		{service.ErrInvalidQuantity, http.StatusBadRequest},
		{service.ErrInvalidContact, http.StatusBadRequest},
		{errors.Join(service.ErrStorage, errors.New("lock timeout")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			h := NewBookingHandler(&mockBookingService{
				reserveFn: func(ctx context.Context, caller auth.Identity, in service.ReserveInput) (*service.Reservation, error) {
					return nil, tc.err
				},
			})
			c, _ := newContext(http.MethodPost, "/", `{"quantity":3,"total_amount":250}`, &buyer)
			c.SetParamNames("id")
			c.SetParamValues("5")

			assertHTTPError(t, h.CreateBooking(c), tc.code)
		})
	}
}

func TestCreateBooking_MissingContact(t *testing.T) {
	var got service.ReserveInput
	h := NewBookingHandler(&mockBookingService{
		reserveFn: func(ctx context.Context, caller auth.Identity, in service.ReserveInput) (*service.Reservation, error) {
			got = in
			if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
				return nil, service.ErrInvalidContact
			}
			return &service.Reservation{BookingID: 1, NewAvailableSeats: 9, Booking: sampleBooking()}, nil
		},
	})

	c, rec := newContext(http.MethodPost, "/", `{"quantity":1,"total_amount":100.00}`, &buyer)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := h.CreateBooking(c)

	assertHTTPError(t, err, http.StatusBadRequest)
	assert.Contains(t, err.Error(), "name and email are required")
	assert.Empty(t, got.Name)
	assert.Empty(t, got.Email)
	assert.Empty(t, rec.Body.String())
}

func TestGetBooking(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{
		getFn: func(ctx context.Context, caller auth.Identity, id uint) (*models.Booking, error) {
			if caller.ID != "user-1" {
				return nil, service.ErrForbidden
			}
			return sampleBooking(), nil
		},
	})

	c, rec := newContext(http.MethodGet, "/", "", &buyer)
	c.SetParamNames("id")
	c.SetParamValues("7")
	require.NoError(t, h.GetBooking(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_amount":300.00`)

	stranger := auth.Identity{ID: "user-9", Role: auth.RoleUser}
	c, _ = newContext(http.MethodGet, "/", "", &stranger)
	c.SetParamNames("id")
	c.SetParamValues("7")
	assertHTTPError(t, h.GetBooking(c), http.StatusForbidden)
}

func TestListMyBookings(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{
		listMineFn: func(ctx context.Context, caller auth.Identity) ([]models.Booking, error) {
			b := sampleBooking()
			b.Event = &models.Event{ID: 1, Title: "Golang Workshop Bangkok", TotalSeats: 10, AvailableSeats: 7}
			return []models.Booking{*b}, nil
		},
	})

	c, rec := newContext(http.MethodGet, "/", "", &buyer)
	require.NoError(t, h.ListMyBookings(c))

	var resp []dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	require.NotNil(t, resp[0].Event)
	assert.Equal(t, "Golang Workshop Bangkok", resp[0].Event.Title)
}

func TestListEventBookings(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{
		listEventFn: func(ctx context.Context, caller auth.Identity, eventID uint) ([]models.Booking, error) {
			return []models.Booking{*sampleBooking(), *sampleBooking()}, nil
		},
	})

	c, rec := newContext(http.MethodGet, "/", "", &admin)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.ListEventBookings(c))

	var resp []dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}
