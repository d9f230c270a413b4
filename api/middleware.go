/*
middleware.go - Caller context extraction and role gating

PURPOSE:
  Session issuance lives outside this service. What arrives here is a
  bearer token already minted by the auth collaborator; the middleware
  verifies the HMAC signature, decodes the claims into a
  core.CallerContext, and stashes it on the request context. Every
  handler then operates on an explicit caller identity - nothing reads
  role or tenant from globals.

CLAIMS:
  sub       user id
  role      guest | hotel_staff | hotel_admin
  hotel_id  tenant scope
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stayops/concierge-engine/core"
)

type contextKey string

const callerKey contextKey = "caller"

// CallerFromContext returns the authenticated caller, or false when the
// request skipped the auth middleware.
func CallerFromContext(ctx context.Context) (core.CallerContext, bool) {
	caller, ok := ctx.Value(callerKey).(core.CallerContext)
	return caller, ok
}

// WithCaller returns a context carrying the caller. Exported for tests.
func WithCaller(ctx context.Context, caller core.CallerContext) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// Auth verifies the bearer token and attaches the CallerContext.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
				return
			}

			caller, err := parseToken(strings.TrimPrefix(header, "Bearer "), secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func parseToken(raw string, secret []byte) (core.CallerContext, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return core.CallerContext{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return core.CallerContext{}, fmt.Errorf("unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	hotelID, _ := claims["hotel_id"].(string)
	if sub == "" || hotelID == "" {
		return core.CallerContext{}, fmt.Errorf("token missing identity claims")
	}

	return core.CallerContext{
		UserID:  sub,
		Role:    core.Role(role),
		HotelID: hotelID,
	}, nil
}

// RequireStaff rejects callers without a staff role.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok || !caller.Role.IsStaff() {
			writeError(w, http.StatusForbidden, "Staff role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects callers below hotel_admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok || caller.Role != core.RoleHotelAdmin {
			writeError(w, http.StatusForbidden, "Admin role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
