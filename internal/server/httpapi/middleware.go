package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/stackpad/internal/common"
)

type contextKey string

const userIDKey contextKey = "userID"

// authMiddleware validates the Bearer access token and stores the user id in
// the request context. An expired token is reported with its exact sentinel
// message so clients know to attempt a refresh.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AccessTokenHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, common.ErrorUnauthorized)
			return
		}

		userID, err := h.users.VerifyAccessToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
