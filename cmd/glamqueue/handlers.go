package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/glamqueue/glamqueue/internal/account"
	"github.com/glamqueue/glamqueue/internal/auth"
	"github.com/glamqueue/glamqueue/internal/signup"
)

type httpResp struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type signupReq struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type verifyReq struct {
	Email string `json:"email" validate:"required,email,max=100"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required"`
}

func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
	)

	if err := app.store.Ping(r.Context()); err != nil {
		sendErrorResponse(w, "Unable to reach store.", http.StatusServiceUnavailable, nil)
		return
	}
	if db, err := app.db.DB(); err != nil || db.PingContext(r.Context()) != nil {
		sendErrorResponse(w, "Unable to reach database.", http.StatusServiceUnavailable, nil)
		return
	}

	sendResponse(w, "OK")
}

// handleSendOTP issues (or re-issues) a signup verification code for an
// e-mail address. A resend replaces the earlier code.
func handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
		req signupReq
	)

	if !decodeJSON(w, r, app, &req) {
		return
	}

	res, err := app.signup.SendOTP(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, signup.ErrBadAddress) {
			sendErrorResponse(w, "Invalid e-mail address.", http.StatusBadRequest, nil)
			return
		}
		app.lo.Error("error sending OTP", "error", err)
		sendErrorResponse(w, "Error sending verification code.", http.StatusInternalServerError, nil)
		return
	}

	// The code itself only leaves the server in development.
	if app.constants.Env == "production" {
		res.Code = ""
	}

	sendResponse(w, res)
}

// handleVerifyOTP checks the submitted code and, on success, creates
// the account, its profile and a session.
func handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
		req verifyReq
	)

	if !decodeJSON(w, r, app, &req) {
		return
	}

	id, err := app.signup.VerifyOTP(r.Context(), req.Email, req.Code)
	switch {
	case errors.Is(err, signup.ErrInvalidOrExpired):
		sendErrorResponse(w, "Invalid or expired verification code.", http.StatusBadRequest, nil)
		return
	case errors.Is(err, signup.ErrTooManyAttempts):
		sendErrorResponse(w, "Too many attempts. Request a new code.", http.StatusTooManyRequests, nil)
		return
	case errors.Is(err, account.ErrSessionEstablish):
		// The account exists; only the auto sign-in failed.
		sendResponse(w, struct {
			account.Identity
			Notice string `json:"notice"`
		}{id, "Account created. Please sign in manually."})
		return
	case err != nil:
		app.lo.Error("error verifying OTP", "error", err)
		sendErrorResponse(w, "Error verifying code.", http.StatusInternalServerError, nil)
		return
	}

	sendResponse(w, id)
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
		req loginReq
	)

	if !decodeJSON(w, r, app, &req) {
		return
	}

	id, err := app.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			sendErrorResponse(w, "Invalid credentials.", http.StatusUnauthorized, nil)
			return
		}
		app.lo.Error("error logging in", "error", err)
		sendErrorResponse(w, "Error logging in.", http.StatusInternalServerError, nil)
		return
	}

	sendResponse(w, id)
}

func handleGetProfile(w http.ResponseWriter, r *http.Request) {
	var (
		app    = r.Context().Value("app").(*App)
		claims = r.Context().Value("claims").(*auth.Claims)
	)

	profile, err := app.accounts.ProfileFor(r.Context(), claims.UserID)
	if err != nil {
		sendErrorResponse(w, "Profile not found.", http.StatusNotFound, nil)
		return
	}

	sendResponse(w, profile)
}

// decodeJSON decodes and validates a JSON request body, writing the
// error response itself. Returns false when the request is bad.
func decodeJSON(w http.ResponseWriter, r *http.Request, app *App, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		sendErrorResponse(w, "Invalid JSON body.", http.StatusBadRequest, nil)
		return false
	}
	if err := app.validate.Struct(out); err != nil {
		sendErrorResponse(w, "Invalid request: "+err.Error(), http.StatusBadRequest, nil)
		return false
	}
	return true
}

// sendResponse sends a JSON envelope to the HTTP response.
func sendResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	out, err := json.Marshal(httpResp{Status: "success", Data: data})
	if err != nil {
		sendErrorResponse(w, "Internal Server Error.", http.StatusInternalServerError, nil)
		return
	}

	w.Write(out)
}

// sendErrorResponse sends a JSON error envelope to the HTTP response.
func sendErrorResponse(w http.ResponseWriter, message string, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	resp := httpResp{Status: "error",
		Message: message,
		Data:    data}
	out, _ := json.Marshal(resp)
	w.Write(out)
}
