package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/glamqueue/glamqueue/internal/auth"
	"github.com/glamqueue/glamqueue/internal/models"
)

// wrap is a middleware that wraps HTTP handlers and injects the "app" context.
func wrap(app *App, next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), "app", app)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authRequired verifies the Bearer token and injects the session claims.
func authRequired(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app := r.Context().Value("app").(*App)

		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			sendErrorResponse(w, "Missing Bearer Authorization header.",
				http.StatusUnauthorized, nil)
			return
		}

		claims, err := app.tokens.Parse(strings.TrimSpace(h[len("Bearer"):]))
		if err != nil {
			sendErrorResponse(w, "Invalid or expired session.",
				http.StatusUnauthorized, nil)
			return
		}

		ctx := context.WithValue(r.Context(), "claims", claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a handler on the session role. Admins pass every gate.
func requireRole(next http.HandlerFunc, roles ...models.Role) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value("claims").(*auth.Claims)

		for _, role := range roles {
			if claims.Role == role || claims.Role == models.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
		}

		sendErrorResponse(w, "Insufficient permissions.", http.StatusForbidden, nil)
	})
}
