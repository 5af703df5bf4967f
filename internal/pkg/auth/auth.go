package auth

import (
	"context"
	"encoding/json"
	"library_service/internal/models"
	"net/http"
)

// CookieName is the name of the cookie carrying the signed token.
const CookieName = "token"

// contextKey is a custom type used for storing values in a context without risking collisions.
type contextKey string

// ContextClaims is the key used to store and retrieve the verified token claims from the request context.
const ContextClaims contextKey = "contextClaims"

// ClaimsFromContext retrieves the verified claims stored by CheckJWTMiddleware,
// returning nil when the request did not pass through the middleware.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ContextClaims).(*Claims)
	return claims
}

// TokenCookie builds the HTTP-only cookie that stores the signed token in the browser.
// Secure is left unset so the cookie also works on plain-HTTP development origins.
func TokenCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TOKENEXP.Seconds()),
		HttpOnly: true,
		Secure:   false,
	}
}

// ClearedTokenCookie builds a cookie that instructs the client to discard the stored token.
func ClearedTokenCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}
}

// CheckJWTMiddleware is an HTTP middleware function that validates the token cookie of incoming requests.
// It checks for the presence of the cookie, parses the token against the given secret, and stores the
// verified claims in the request context. If validation fails at any point, it returns an error response
// with the appropriate HTTP status code.
func CheckJWTMiddleware(secret string) func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil {
				writeErrorResponse(w, "missing authentication token", http.StatusUnauthorized)
				return
			}

			claims, err := ParseToken(cookie.Value, secret)
			if err != nil {
				writeErrorResponse(w, "not authorized", http.StatusUnauthorized)
				return
			}

			// Store the verified claims into the request context for downstream handlers.
			ctx := context.WithValue(r.Context(), ContextClaims, claims)
			h.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

// writeErrorResponse writes a JSON-formatted error response to the HTTP response writer.
// It sets the Content-Type header, writes the appropriate HTTP status code, and encodes an ErrorResponse payload.
func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Message: errorInfo})
}
