// Package httpapi is the read-only admin surface: liveness and a
// game-state snapshot. Gameplay happens on the TCP port.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/textordeath/server/internal/game"
)

func State(c *game.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c.StateSnapshot())
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
