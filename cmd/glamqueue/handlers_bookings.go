package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/glamqueue/glamqueue/internal/auth"
	"github.com/glamqueue/glamqueue/internal/booking"
	"github.com/glamqueue/glamqueue/internal/models"
	"github.com/go-chi/chi/v5"
)

type statusReq struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

func handleListSalons(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
	)

	out, err := app.bookings.ListSalons(r.Context())
	if err != nil {
		app.lo.Error("error listing salons", "error", err)
		sendErrorResponse(w, "Error listing salons.", http.StatusInternalServerError, nil)
		return
	}

	sendResponse(w, out)
}

// handleListServices lists the catalog, scoped to a salon when the
// route carries one.
func handleListServices(w http.ResponseWriter, r *http.Request) {
	var (
		app     = r.Context().Value("app").(*App)
		salonID uint
	)

	if raw := chi.URLParam(r, "id"); raw != "" {
		id, ok := parseID(w, raw)
		if !ok {
			return
		}
		salonID = id
	}

	out, err := app.bookings.ListServices(r.Context(), salonID)
	if err != nil {
		app.lo.Error("error listing services", "error", err)
		sendErrorResponse(w, "Error listing services.", http.StatusInternalServerError, nil)
		return
	}

	sendResponse(w, out)
}

func handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var (
		app    = r.Context().Value("app").(*App)
		claims = r.Context().Value("claims").(*auth.Claims)
		req    booking.CreateRequest
	)

	if !decodeJSON(w, r, app, &req) {
		return
	}

	b, err := app.bookings.Create(r.Context(), claims.UserID, req)
	if err != nil {
		if errors.Is(err, booking.ErrBadRequest) {
			sendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
			return
		}
		app.lo.Error("error creating booking", "error", err)
		sendErrorResponse(w, "Error creating booking.", http.StatusInternalServerError, nil)
		return
	}

	sendResponse(w, b)
}

func handleListMyBookings(w http.ResponseWriter, r *http.Request) {
	var (
		app    = r.Context().Value("app").(*App)
		claims = r.Context().Value("claims").(*auth.Claims)
	)

	out, err := app.bookings.ListForClient(r.Context(), claims.UserID)
	if err != nil {
		app.lo.Error("error listing bookings", "error", err)
		sendErrorResponse(w, "Error listing bookings.", http.StatusInternalServerError, nil)
		return
	}

	sendResponse(w, out)
}

func handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	var (
		app    = r.Context().Value("app").(*App)
		claims = r.Context().Value("claims").(*auth.Claims)
	)

	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	b, err := app.bookings.Cancel(r.Context(), claims.UserID, id)
	if err != nil {
		sendBookingError(w, app, err)
		return
	}

	sendResponse(w, b)
}

func handleAdminListBookings(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
	)

	out, err := app.bookings.ListAll(r.Context())
	if err != nil {
		app.lo.Error("error listing bookings", "error", err)
		sendErrorResponse(w, "Error listing bookings.", http.StatusInternalServerError, nil)
		return
	}

	sendResponse(w, out)
}

func handleAdminUpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
		req statusReq
	)

	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !decodeJSON(w, r, app, &req) {
		return
	}

	b, err := app.bookings.UpdateStatus(r.Context(), id, models.BookingStatus(req.Status))
	if err != nil {
		sendBookingError(w, app, err)
		return
	}

	sendResponse(w, b)
}

func sendBookingError(w http.ResponseWriter, app *App, err error) {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		sendErrorResponse(w, "Booking not found.", http.StatusNotFound, nil)
	case errors.Is(err, booking.ErrForbidden):
		sendErrorResponse(w, "Not your booking.", http.StatusForbidden, nil)
	case errors.Is(err, booking.ErrInvalidTransition):
		sendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		app.lo.Error("error updating booking", "error", err)
		sendErrorResponse(w, "Error updating booking.", http.StatusInternalServerError, nil)
	}
}

func parseID(w http.ResponseWriter, raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		sendErrorResponse(w, "Invalid ID.", http.StatusBadRequest, nil)
		return 0, false
	}
	return uint(id), true
}
