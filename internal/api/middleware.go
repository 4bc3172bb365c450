package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey string

const userContextKey = contextKey("user_id")

// UserMiddleware resolves the {userID} path parameter and injects it into
// the request context. Unknown users are rejected before any handler runs.
func (s *Server) UserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil || userID <= 0 {
			RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID")
			return
		}
		exists, err := s.store.UserExists(r.Context(), userID)
		if err != nil {
			RespondWithError(w, r, http.StatusInternalServerError, "Failed to look up user")
			return
		}
		if !exists {
			RespondWithError(w, r, http.StatusNotFound, "User not found")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFromContext returns the user id injected by UserMiddleware.
func userFromContext(ctx context.Context) int64 {
	userID, _ := ctx.Value(userContextKey).(int64)
	return userID
}
