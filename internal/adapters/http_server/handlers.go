package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"easybooking/internal/booking"
	"easybooking/internal/domain"
)

type Handlers struct {
	Alloc *booking.Allocator
	Life  *booking.Lifecycle
	Q     *booking.Queries
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/availability", h.checkAvailability)

	s.mux.Post("/v1/reservations", h.allocate)
	s.mux.Get("/v1/reservations", h.listReservations)
	s.mux.Get("/v1/reservations/{id}", h.getReservation)
	s.mux.Post("/v1/reservations/{id}/confirm", h.lifecycleOp(domain.OpConfirm))
	s.mux.Post("/v1/reservations/{id}/check-in", h.lifecycleOp(domain.OpCheckIn))
	s.mux.Post("/v1/reservations/{id}/check-out", h.lifecycleOp(domain.OpCheckOut))
	s.mux.Post("/v1/reservations/{id}/cancel", h.cancel)
	s.mux.Post("/v1/reservations/{id}/no-show", h.lifecycleOp(domain.OpNoShow))
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeDomainError maps the typed error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		ve  *domain.ValidationError
		iie *domain.InsufficientInventoryError
		ite *domain.InvalidTransitionError
		ce  *domain.ConfigurationError
		ps  *domain.PaymentShortfallError
	)
	switch {
	case errors.As(err, &ve):
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", ve.Error())
	case errors.As(err, &iie):
		writeProblem(w, http.StatusConflict, "No Availability", iie.Error())
	case errors.As(err, &ite):
		writeProblem(w, http.StatusConflict, "Invalid Transition", ite.Error())
	case errors.As(err, &ce):
		writeProblem(w, http.StatusBadRequest, "Room Type Not Configured", ce.Error())
	case errors.As(err, &ps):
		writeProblem(w, http.StatusPaymentRequired, "Payment Incomplete", ps.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "reservation not found")
	case errors.Is(err, domain.ErrContention):
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusServiceUnavailable, "Busy", "inventory is contended, retry shortly")
	default:
		log.Error().Err(err).Msg("unhandled request error")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func parseDay(q string) (time.Time, error) {
	return time.ParseInLocation(domain.DayFormat, q, time.UTC)
}

type allocateBody struct {
	GuestID         string `json:"guest_id"`
	HotelID         string `json:"hotel_id"`
	RoomTypeID      string `json:"room_type_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Adults          int    `json:"adults"`
	Children        int    `json:"children"`
	Units           int    `json:"units"`
	SpecialRequests string `json:"special_requests"`
}

func (h *Handlers) allocate(w http.ResponseWriter, r *http.Request) {
	var body allocateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	checkIn, err := parseDay(body.CheckIn)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", "check_in must be YYYY-MM-DD")
		return
	}
	checkOut, err := parseDay(body.CheckOut)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", "check_out must be YYYY-MM-DD")
		return
	}
	if body.Units == 0 {
		body.Units = 1
	}

	res, err := h.Alloc.Allocate(r.Context(), booking.AllocateRequest{
		GuestID:         body.GuestID,
		HotelID:         body.HotelID,
		RoomTypeID:      body.RoomTypeID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Adults:          body.Adults,
		Children:        body.Children,
		Units:           body.Units,
		SpecialRequests: body.SpecialRequests,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hotelID := q.Get("hotel_id")
	roomTypeID := q.Get("room_type_id")
	if hotelID == "" || roomTypeID == "" {
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", "hotel_id and room_type_id are required")
		return
	}
	checkIn, err := parseDay(q.Get("check_in"))
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", "check_in must be YYYY-MM-DD")
		return
	}
	checkOut, err := parseDay(q.Get("check_out"))
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", "check_out must be YYYY-MM-DD")
		return
	}
	units := 1
	if us := q.Get("units"); us != "" {
		if units, err = strconv.Atoi(us); err != nil || units < 1 {
			writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", "units must be a positive integer")
			return
		}
	}

	av, err := h.Q.CheckAvailability(r.Context(), hotelID, roomTypeID, checkIn, checkOut, units)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, av)
}

func (h *Handlers) getReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Q.GetReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) listReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	guestID := q.Get("guest_id")
	hotelID := q.Get("hotel_id")

	switch {
	case guestID != "":
		out, err := h.Q.ListByGuest(r.Context(), guestID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case hotelID != "":
		out, err := h.Q.ListByHotel(r.Context(), hotelID, domain.Status(q.Get("status")))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	default:
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", "guest_id or hotel_id is required")
	}
}

func (h *Handlers) lifecycleOp(op domain.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var (
			res domain.Reservation
			err error
		)
		switch op {
		case domain.OpConfirm:
			res, err = h.Life.Confirm(r.Context(), id)
		case domain.OpCheckIn:
			res, err = h.Life.CheckIn(r.Context(), id)
		case domain.OpCheckOut:
			res, err = h.Life.CheckOut(r.Context(), id)
		case domain.OpNoShow:
			res, err = h.Life.MarkNoShow(r.Context(), id)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type cancelBody struct {
	Reason string `json:"reason"`
}

func (h *Handlers) cancel(w http.ResponseWriter, r *http.Request) {
	var body cancelBody
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body) // reason is optional
	}
	res, err := h.Life.Cancel(r.Context(), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
