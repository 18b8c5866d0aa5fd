package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/Freeeeeet/coach_booking/internal/render"
	"github.com/Freeeeeet/coach_booking/internal/service"
	"github.com/julienschmidt/httprouter"
)

const defaultSessionMinutes = 60

type ruleRequest struct {
	DayOfWeek int            `json:"day_of_week"`
	StartTime interval.Clock `json:"start_time"`
	EndTime   interval.Clock `json:"end_time"`
	Active    *bool          `json:"active,omitempty"`
}

type exceptionRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

type slotsResponse struct {
	CoachID         int64       `json:"coach_id"`
	Date            string      `json:"date"`
	DurationMinutes int         `json:"duration_minutes"`
	Slots           []time.Time `json:"slots"`
}

func (h *Handler) listSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	coachID, err := pathID(ps, "coachID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	date, ok, err := queryDate(r, "date")
	if err == nil && !ok {
		err = fmt.Errorf("date is required: %w", model.ErrInvalidInput)
	}
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	duration, err := queryInt(r, "duration", defaultSessionMinutes)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	slots, err := h.bookings.ListAvailableSlots(r.Context(), coachID, date, duration)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if slots == nil {
		slots = []time.Time{}
	}

	respondJSON(w, http.StatusOK, slotsResponse{
		CoachID:         coachID,
		Date:            date.Format(time.DateOnly),
		DurationMinutes: duration,
		Slots:           slots,
	})
}

// weekStartParam falls back to the current Sunday-started week.
func (h *Handler) weekStartParam(r *http.Request) (time.Time, error) {
	weekStart, ok, err := queryDate(r, "weekStart")
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return service.CurrentWeekStart(h.now()), nil
	}
	return weekStart, nil
}

func (h *Handler) weeklyCapacity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	coachID, err := pathID(ps, "coachID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	weekStart, err := h.weekStartParam(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	duration, err := queryInt(r, "duration", defaultSessionMinutes)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	capacity, err := h.capacity.WeeklyCapacity(r.Context(), coachID, weekStart, duration)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, capacity)
}

func (h *Handler) weekImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	coachID, err := pathID(ps, "coachID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	weekStart, err := h.weekStartParam(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	week, err := h.capacity.WeekSchedule(r.Context(), coachID, weekStart)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	img, err := render.WeekPNG(week, h.now())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	coachID, err := pathID(ps, "coachID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	var day *time.Weekday
	if r.URL.Query().Has("dayOfWeek") {
		n, err := queryInt(r, "dayOfWeek", 0)
		if err == nil && (n < 0 || n > 6) {
			err = fmt.Errorf("dayOfWeek %d: %w", n, model.ErrInvalidInput)
		}
		if err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		wd := time.Weekday(n)
		day = &wd
	}

	rules, err := h.availability.ListRules(r.Context(), coachID, day)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if rules == nil {
		rules = []*model.AvailabilityRule{}
	}
	respondJSON(w, http.StatusOK, rules)
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	coachID, err := pathID(ps, "coachID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var req ruleRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	rule := &model.AvailabilityRule{
		CoachID:   coachID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Active:    req.Active == nil || *req.Active,
	}
	if err := h.availability.UpsertRule(r.Context(), rule); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

func (h *Handler) seedDefaults(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	coachID, err := pathID(ps, "coachID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	rules, err := h.availability.SeedDefaults(r.Context(), coachID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rules)
}

func (h *Handler) updateRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ruleID, err := pathID(ps, "ruleID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var req ruleRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	rule := &model.AvailabilityRule{
		ID:        ruleID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Active:    req.Active == nil || *req.Active,
	}
	if err := h.availability.UpsertRule(r.Context(), rule); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (h *Handler) deleteRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ruleID, err := pathID(ps, "ruleID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if err := h.availability.DeleteRule(r.Context(), ruleID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listExceptions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	coachID, err := pathID(ps, "coachID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	from, hasFrom, err := queryDate(r, "from")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	to, hasTo, err := queryDate(r, "to")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if !hasFrom {
		from = interval.Day(h.now())
	}
	if !hasTo {
		to = from.AddDate(1, 0, 0)
	}

	exceptions, err := h.availability.ListExceptions(r.Context(), coachID, from, to)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if exceptions == nil {
		exceptions = []*model.AvailabilityException{}
	}
	respondJSON(w, http.StatusOK, exceptions)
}

func (h *Handler) createException(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	coachID, err := pathID(ps, "coachID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var req exceptionRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	start, err := interval.ParseDate(req.StartDate)
	if err != nil {
		h.respondServiceError(w, r, fmt.Errorf("start_date: %v: %w", err, model.ErrInvalidInput))
		return
	}
	end, err := interval.ParseDate(req.EndDate)
	if err != nil {
		h.respondServiceError(w, r, fmt.Errorf("end_date: %v: %w", err, model.ErrInvalidInput))
		return
	}

	exc, err := h.availability.CreateException(r.Context(), coachID, start, end, req.Reason)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, exc)
}

func (h *Handler) deleteException(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	exceptionID, err := pathID(ps, "exceptionID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if err := h.availability.DeleteException(r.Context(), exceptionID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
