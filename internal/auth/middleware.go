package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/notes/internal/model"
)

// contextKey is unexported so no other package can read or shadow the
// caller stored in a request context.
type contextKey string

const callerKey contextKey = "caller"

// Verifier resolves a session token to the caller it was issued to.
type Verifier interface {
	VerifySession(token string) (model.Caller, error)
}

// Authenticate rejects every request without a valid session cookie with
// 401, except for the listed public paths. Public paths are compared to
// r.URL.Path exactly; "/api/auth/login" does not exempt "/api/auth/login/x".
//
// On success the resolved model.Caller is stored in the request context.
func Authenticate(verifier Verifier, publicPaths ...string) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, "Authentication required")
				return
			}

			caller, err := verifier.VerifySession(cookie.Value)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller model.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns the authenticated caller, or false for a
// request that did not pass through Authenticate.
//
//	caller, ok := auth.CallerFromContext(r.Context())
//	if !ok {
//	    // public route
//	}
func CallerFromContext(ctx context.Context) (model.Caller, bool) {
	caller, ok := ctx.Value(callerKey).(model.Caller)
	return caller, ok && caller != nil
}

// errorBody has the same shape as the handler package's ErrorResponse.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(errorBody{Error: "unauthorized", Message: message}); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}
