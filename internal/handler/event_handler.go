package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/auth"
	"github.com/Eursukkul/event-ticketing/internal/dto"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/notifier"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

// SeatFeed is the hub viewers subscribe to.
type SeatFeed interface {
	Subscribe(eventID uint) *notifier.Subscription
}

type EventHandler struct {
	svc       service.EventService
	feed      SeatFeed
	keepAlive time.Duration
}

func NewEventHandler(svc service.EventService, feed SeatFeed) *EventHandler {
	return &EventHandler{svc: svc, feed: feed, keepAlive: 15 * time.Second}
}

func (h *EventHandler) RegisterRoutes(e *echo.Echo, authn echo.MiddlewareFunc) {
	g := e.Group("/api/v1/events")
	g.GET("", h.ListEvents)
	g.GET("/:id", h.GetEvent)
	g.GET("/:id/seats", h.GetSeats)
	g.GET("/:id/seats/stream", h.StreamSeats)

	g.POST("", h.CreateEvent, authn, auth.RequireAdmin)
	g.PUT("/:id", h.UpdateEvent, authn, auth.RequireAdmin)
	g.DELETE("/:id", h.DeleteEvent, authn, auth.RequireAdmin)
}

func (h *EventHandler) CreateEvent(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}

	var req dto.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	event, err := h.svc.CreateEvent(c.Request().Context(), identity, service.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
		Img:         req.Img,
		TotalSeats:  req.TotalSeats,
		Price:       req.Price,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToEventResponse(event))
}

func (h *EventHandler) ListEvents(c echo.Context) error {
	filter := repository.EventFilter{
		Search:   c.QueryParam("search"),
		Location: c.QueryParam("location"),
	}
	if d := c.QueryParam("date"); d != "" {
		day, err := time.Parse(dateLayout, d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		filter.Date = &day
	}

	events, err := h.svc.ListEvents(c.Request().Context(), filter)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToEventResponses(events))
}

func (h *EventHandler) GetEvent(c echo.Context) error {
	id, err := parseID(c, "event")
	if err != nil {
		return err
	}

	event, err := h.svc.GetEvent(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToEventResponse(event))
}

func (h *EventHandler) GetSeats(c echo.Context) error {
	id, err := parseID(c, "event")
	if err != nil {
		return err
	}

	event, err := h.svc.GetEvent(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToSeatsResponse(event))
}

// UpdateEvent is the admin edit form; the capacity change goes through the
// adjustment engine.
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "event")
	if err != nil {
		return err
	}

	var req dto.UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	event, err := h.svc.AdjustCapacity(c.Request().Context(), identity, id, service.AdjustInput{
		TotalSeats:  req.TotalSeats,
		Price:       req.Price,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
		Img:         req.Img,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToEventResponse(event))
}

func (h *EventHandler) DeleteEvent(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "event")
	if err != nil {
		return err
	}

	if err := h.svc.DeleteEvent(c.Request().Context(), identity, id); err != nil {
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// StreamSeats is a Server-Sent Events feed of an event's available seats:
// the current count first, then every seatsUpdated message until the client
// goes away.
func (h *EventHandler) StreamSeats(c echo.Context) error {
	id, err := parseID(c, "event")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	// Subscribe before reading so nothing committed in between is missed.
	sub := h.feed.Subscribe(id)
	defer sub.Close()

	event, err := h.svc.GetEvent(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}

	w := c.Response()
	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w.Writer).SetWriteDeadline(time.Time{})
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	current := event.SeatUpdate()
	if err := writeSeatEvent(w, current); err != nil {
		return nil
	}
	last := current.Version

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-sub.C:
			if !ok {
				return nil
			}
			if update.Version > 0 && update.Version <= last {
				continue
			}
			last = update.Version
			if err := writeSeatEvent(w, update); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeSeatEvent(w *echo.Response, update models.SeatUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: seatsUpdated\ndata: %s\n\n", update.Version, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
