package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/textordeath/server/internal/game"
)

func SetupRoutes(c *game.Coordinator) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/state", State(c))
	return r
}
