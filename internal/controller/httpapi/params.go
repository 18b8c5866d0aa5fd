package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/julienschmidt/httprouter"
)

const maxBodyBytes = 1 << 20

func pathID(ps httprouter.Params, name string) (int64, error) {
	id, err := strconv.ParseInt(ps.ByName(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, ps.ByName(name), model.ErrInvalidInput)
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, model.ErrInvalidInput)
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, raw, model.ErrInvalidInput)
	}
	return v, nil
}

// queryDate reads a YYYY-MM-DD parameter. ok is false when it is absent.
func queryDate(r *http.Request, name string) (t time.Time, ok bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	d, err := interval.ParseDate(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %v: %w", name, err, model.ErrInvalidInput)
	}
	return d, true, nil
}

// queryTime accepts RFC 3339 instants or bare dates.
func queryTime(r *http.Request, name string) (t time.Time, ok bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), true, nil
	}
	return queryDate(r, name)
}

func queryStatuses(r *http.Request) ([]model.BookingStatus, error) {
	var statuses []model.BookingStatus
	for _, raw := range r.URL.Query()["status"] {
		for _, part := range strings.Split(raw, ",") {
			if part == "" {
				continue
			}
			s := model.BookingStatus(part)
			if !s.Valid() {
				return nil, fmt.Errorf("status %q: %w", part, model.ErrInvalidInput)
			}
			statuses = append(statuses, s)
		}
	}
	return statuses, nil
}
