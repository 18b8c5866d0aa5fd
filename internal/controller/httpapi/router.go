package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/coach_booking/internal/service"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Handler exposes the booking engine over JSON.
type Handler struct {
	bookings     *service.BookingService
	availability *service.AvailabilityService
	capacity     *service.CapacityCalculator
	now          service.Clock
	logger       *zap.Logger
}

func NewHandler(
	bookings *service.BookingService,
	availability *service.AvailabilityService,
	capacity *service.CapacityCalculator,
	now service.Clock,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bookings:     bookings,
		availability: availability,
		capacity:     capacity,
		now:          now,
		logger:       logger,
	}
}

type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Routes registers every endpoint. Mutating routes share one per-IP limiter.
func (h *Handler) Routes(limiter *RateLimiter) *httprouter.Router {
	router := httprouter.New()
	limit := func(next httprouter.Handle) httprouter.Handle {
		if limiter == nil {
			return next
		}
		return limiter.Limit(next)
	}

	router.GET("/health", h.health)

	router.GET("/api/coaches/:coachID/slots", h.listSlots)
	router.GET("/api/coaches/:coachID/capacity", h.weeklyCapacity)
	router.GET("/api/coaches/:coachID/week.png", h.weekImage)

	router.GET("/api/coaches/:coachID/availability", h.listRules)
	router.POST("/api/coaches/:coachID/availability", limit(h.createRule))
	router.POST("/api/coaches/:coachID/availability/defaults", limit(h.seedDefaults))
	router.PUT("/api/availability/:ruleID", limit(h.updateRule))
	router.DELETE("/api/availability/:ruleID", limit(h.deleteRule))

	router.GET("/api/coaches/:coachID/exceptions", h.listExceptions)
	router.POST("/api/coaches/:coachID/exceptions", limit(h.createException))
	router.DELETE("/api/exceptions/:exceptionID", limit(h.deleteException))

	router.POST("/api/bookings", limit(h.bookSlot))
	router.GET("/api/bookings/:bookingID", h.getBooking)
	router.POST("/api/bookings/:bookingID/reschedule", limit(h.rescheduleBooking))
	router.POST("/api/bookings/:bookingID/cancel", limit(h.cancelBooking))
	router.POST("/api/bookings/:bookingID/complete", limit(h.completeBooking))
	router.POST("/api/bookings/:bookingID/no-show", limit(h.markNoShow))
	router.POST("/api/bookings/:bookingID/notes", limit(h.addNote))

	router.GET("/api/coaches/:coachID/bookings", h.coachBookings)
	router.GET("/api/clients/:clientID/bookings", h.clientBookings)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "route not found")
	})

	return router
}

// NewServerHandler assembles router, CORS, security headers and request logging.
func NewServerHandler(h *Handler, opts Options) http.Handler {
	var limiter *RateLimiter
	if opts.RateLimitRPS > 0 {
		limiter = NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(h.Routes(limiter))

	return logRequests(h.logger, securityHeaders(corsHandler))
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
