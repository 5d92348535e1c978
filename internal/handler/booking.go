package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parish-booking/internal/middleware"
	"github.com/iliyamo/parish-booking/internal/model"
	"github.com/iliyamo/parish-booking/internal/service"
)

// BookingHandler serves the booking routes of one sacrament kind.  Every
// kind shares the same workflow; only the participant payload differs.
type BookingHandler struct {
	svc  *service.BookingService
	kind model.Kind
}

// NewBookingHandler panics on a nil service or unknown kind.
func NewBookingHandler(svc *service.BookingService, kind model.Kind) *BookingHandler {
	if svc == nil || !kind.Valid() {
		panic("invalid dependencies passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc, kind: kind}
}

// Kind is the sacrament this handler serves.
func (h *BookingHandler) Kind() model.Kind { return h.kind }

type submitRequest struct {
	EventDate    string          `json:"event_date"`
	Participants json.RawMessage `json:"participants"`
}

type commentRequest struct {
	Reviewer      string `json:"reviewer" validate:"max=200"`
	ScheduledDate string `json:"scheduled_date" validate:"required"`
	Category      string `json:"category" validate:"required"`
	FreeText      string `json:"free_text" validate:"max=2000"`
}

// participants decodes raw into the payload type of the handler's kind,
// validates its shape and returns the canonical JSON to store.
func (h *BookingHandler) participants(raw json.RawMessage) ([]byte, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return nil, &service.ValidationError{Field: "participants", Message: "is required"}
	}
	var payload interface{}
	switch h.kind {
	case model.KindWedding:
		var p model.WeddingParticipants
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &service.ValidationError{Field: "participants", Message: "malformed: " + err.Error()}
		}
		payload = &p
	case model.KindBaptism:
		var p model.BaptismParticipants
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &service.ValidationError{Field: "participants", Message: "malformed: " + err.Error()}
		}
		p.Normalize()
		payload = &p
	}
	if err := checkStruct("participants", payload); err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

// Submit handles POST /v1/{kind}s.  The requester is the token subject.
func (h *BookingHandler) Submit(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthenticated(c)
	}
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation_error", "invalid JSON body"))
	}
	date, err := model.ParseDate(req.EventDate)
	if err != nil {
		return writeError(c, &service.ValidationError{Field: "event_date", Message: "must be a YYYY-MM-DD date"})
	}
	payload, err := h.participants(req.Participants)
	if err != nil {
		return writeError(c, err)
	}
	b, err := h.svc.Submit(c.Request().Context(), service.SubmitInput{
		Kind:         h.kind,
		RequesterID:  p.ID,
		EventDate:    date,
		Participants: payload,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": b})
}

// List handles GET /v1/{kind}s: the name/date summary of every booking.
func (h *BookingHandler) List(c echo.Context) error {
	items, err := h.svc.ListSummaries(c.Request().Context(), h.kind)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []model.BookingSummary{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// ListPending handles GET /v1/{kind}s/pending.
func (h *BookingHandler) ListPending(c echo.Context) error {
	items, err := h.svc.ListPending(c.Request().Context(), h.kind)
	return h.writeList(c, items, err)
}

// ListConfirmed handles GET /v1/{kind}s/confirmed.
func (h *BookingHandler) ListConfirmed(c echo.Context) error {
	items, err := h.svc.ListConfirmed(c.Request().Context(), h.kind)
	return h.writeList(c, items, err)
}

// ListMine handles GET /v1/{kind}s/mine.
func (h *BookingHandler) ListMine(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthenticated(c)
	}
	items, err := h.svc.ListByRequester(c.Request().Context(), h.kind, p.ID)
	return h.writeList(c, items, err)
}

func (h *BookingHandler) writeList(c echo.Context, items []model.Booking, err error) error {
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// BookedDates handles GET /v1/{kind}s/dates/booked with optional ?from=&to=.
func (h *BookingHandler) BookedDates(c echo.Context) error {
	var from, to model.Date
	for name, dst := range map[string]*model.Date{"from": &from, "to": &to} {
		v := strings.TrimSpace(c.QueryParam(name))
		if v == "" {
			continue
		}
		d, err := model.ParseDate(v)
		if err != nil {
			return writeError(c, &service.ValidationError{Field: name, Message: "must be a YYYY-MM-DD date"})
		}
		*dst = d
	}
	if !from.IsZero() && !to.IsZero() && to.String() < from.String() {
		return writeError(c, &service.ValidationError{Field: "to", Message: "must not be before from"})
	}
	dates, err := h.svc.ListBookedDates(c.Request().Context(), h.kind, from, to)
	if err != nil {
		return writeError(c, err)
	}
	if dates == nil {
		dates = []model.Date{}
	}
	return c.JSON(http.StatusOK, echo.Map{"dates": dates})
}

// DateAvailability handles GET /v1/{kind}s/dates/:date.
func (h *BookingHandler) DateAvailability(c echo.Context) error {
	d, err := model.ParseDate(c.Param("date"))
	if err != nil {
		return writeError(c, &service.ValidationError{Field: "date", Message: "must be a YYYY-MM-DD date"})
	}
	ok, err := h.svc.IsAvailable(c.Request().Context(), h.kind, d)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": d, "available": ok})
}

// Get handles GET /v1/{kind}s/:id.  Parishioners may only read their own.
func (h *BookingHandler) Get(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthenticated(c)
	}
	b, err := h.svc.Get(c.Request().Context(), h.kind, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	if !p.CanView(b) {
		return forbidden(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": b})
}

// Confirm handles PATCH /v1/{kind}s/:id/confirm.
func (h *BookingHandler) Confirm(c echo.Context) error {
	b, err := h.svc.Confirm(c.Request().Context(), h.kind, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": b})
}

// Decline handles PATCH /v1/{kind}s/:id/decline.
func (h *BookingHandler) Decline(c echo.Context) error {
	b, err := h.svc.Decline(c.Request().Context(), h.kind, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": string(h.kind) + " booking declined",
		"id":      b.ID,
		"status":  b.Status,
	})
}

// AddComment handles POST /v1/{kind}s/:id/comments.  The reviewer defaults
// to the token subject when the body leaves it empty.
func (h *BookingHandler) AddComment(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthenticated(c)
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation_error", "invalid JSON body"))
	}
	if err := checkStruct("", &req); err != nil {
		return writeError(c, err)
	}
	date, err := model.ParseDate(req.ScheduledDate)
	if err != nil {
		return writeError(c, &service.ValidationError{Field: "scheduled_date", Message: "must be a YYYY-MM-DD date"})
	}
	reviewer := strings.TrimSpace(req.Reviewer)
	if reviewer == "" {
		reviewer = p.ID
	}
	comments, err := h.svc.AddComment(c.Request().Context(), h.kind, c.Param("id"), service.CommentInput{
		Reviewer:      reviewer,
		ScheduledDate: date,
		Category:      model.RemarkCategory(req.Category),
		FreeText:      req.FreeText,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"comments": comments})
}
