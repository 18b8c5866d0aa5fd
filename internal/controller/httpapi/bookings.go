package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/Freeeeeet/coach_booking/internal/service"
	"github.com/julienschmidt/httprouter"
)

type bookRequest struct {
	CoachID         int64               `json:"coach_id"`
	ClientID        int64               `json:"client_id"`
	Start           time.Time           `json:"start"`
	DurationMinutes int                 `json:"duration_minutes"`
	PaymentStatus   model.PaymentStatus `json:"payment_status"`
	Notes           string              `json:"notes"`
}

type rescheduleRequest struct {
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

type cancelRequest struct {
	CancelledBy model.Party `json:"cancelled_by"`
	Reason      string      `json:"reason"`
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *Handler) bookSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req bookRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if req.CoachID <= 0 || req.ClientID <= 0 {
		h.respondServiceError(w, r, fmt.Errorf("coach_id and client_id are required: %w", model.ErrInvalidInput))
		return
	}

	booking, err := h.bookings.BookSlot(r.Context(), service.BookRequest{
		CoachID:         req.CoachID,
		ClientID:        req.ClientID,
		Start:           req.Start.UTC(),
		DurationMinutes: req.DurationMinutes,
		PaymentStatus:   req.PaymentStatus,
		Notes:           req.Notes,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, booking)
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookingID, err := pathID(ps, "bookingID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

func (h *Handler) rescheduleBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookingID, err := pathID(ps, "bookingID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var req rescheduleRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	booking, err := h.bookings.RescheduleBooking(r.Context(), bookingID, req.Start.UTC(), req.DurationMinutes)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

func (h *Handler) cancelBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookingID, err := pathID(ps, "bookingID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var req cancelRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	booking, err := h.bookings.CancelBooking(r.Context(), bookingID, req.CancelledBy, req.Reason)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

func (h *Handler) completeBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.finalize(w, r, ps, h.bookings.CompleteBooking)
}

func (h *Handler) markNoShow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.finalize(w, r, ps, h.bookings.MarkNoShow)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request, ps httprouter.Params,
	apply func(context.Context, int64) (*model.Booking, error)) {
	bookingID, err := pathID(ps, "bookingID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	booking, err := apply(r.Context(), bookingID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

func (h *Handler) addNote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookingID, err := pathID(ps, "bookingID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var req noteRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	booking, err := h.bookings.AddNote(r.Context(), bookingID, req.Note)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

func (h *Handler) coachBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	coachID, err := pathID(ps, "coachID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	statuses, err := queryStatuses(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	from, hasFrom, err := queryTime(r, "from")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	to, hasTo, err := queryTime(r, "to")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if !hasFrom {
		from = service.CurrentWeekStart(h.now())
	}
	if !hasTo {
		to = from.AddDate(0, 0, 7)
	}

	bookings, err := h.bookings.ListCoachBookings(r.Context(), coachID, from, to, statuses)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	respondJSON(w, http.StatusOK, bookings)
}

func (h *Handler) clientBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	clientID, err := pathID(ps, "clientID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	statuses, err := queryStatuses(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	upcoming := false
	if raw := r.URL.Query().Get("upcoming"); raw != "" {
		upcoming, err = strconv.ParseBool(raw)
		if err != nil {
			h.respondServiceError(w, r, fmt.Errorf("upcoming %q: %w", raw, model.ErrInvalidInput))
			return
		}
	}

	bookings, err := h.bookings.ListClientBookings(r.Context(), clientID, statuses, upcoming)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	respondJSON(w, http.StatusOK, bookings)
}
