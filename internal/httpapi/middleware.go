package httpapi

import (
	"context"
	"net/http"

	"github.com/Djttt/rpsls-battle/internal/apperr"
)

type contextKey struct{ name string }

var playerKey = &contextKey{"player"}

// RequirePlayer pulls the caller's identity from the X-Player header.
// Identity verification itself lives outside the core; by the time a
// request lands here the value is treated as opaque and already vetted.
func RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		player := r.Header.Get("X-Player")
		if player == "" {
			writeError(w, apperr.Validation("missing X-Player header"))
			return
		}
		ctx := context.WithValue(r.Context(), playerKey, player)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func playerFrom(r *http.Request) string {
	player, _ := r.Context().Value(playerKey).(string)
	return player
}
