package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medconnect/booking-server/internal/booking"
)

const principalKey contextKey = "principal"

// AuthMiddleware verifies the bearer token and puts the resulting Principal
// on the request context. Token issuance lives elsewhere; this side only
// checks HS256 signatures and the claim shape.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing_authorization_header", "a bearer token is required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid_authorization_header", "expected: Bearer <token>")
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid_token", "token is expired or malformed")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid_token_claims", "unexpected claim format")
				return
			}

			principal, ok := principalFromClaims(claims)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid_token_payload", "token is missing identity claims")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFromClaims(claims jwt.MapClaims) (booking.Principal, bool) {
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	profile, _ := claims["profile_id"].(string)

	userID, err := uuid.Parse(sub)
	if err != nil {
		return booking.Principal{}, false
	}

	p := booking.Principal{UserID: userID, Role: booking.Role(role)}
	switch p.Role {
	case booking.RolePatient, booking.RoleDoctor:
		profileID, err := uuid.Parse(profile)
		if err != nil {
			return booking.Principal{}, false
		}
		p.ProfileID = profileID
	case booking.RoleAdmin:
		// admins carry no profile
	default:
		return booking.Principal{}, false
	}

	return p, true
}

// GetPrincipal retrieves the authenticated principal from the context.
func GetPrincipal(ctx context.Context) (booking.Principal, bool) {
	p, ok := ctx.Value(principalKey).(booking.Principal)
	return p, ok
}
