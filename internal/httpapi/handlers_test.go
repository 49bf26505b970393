package httpapi

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/textordeath/server/internal/bot"
	"github.com/textordeath/server/internal/codec"
	"github.com/textordeath/server/internal/game"
	"github.com/textordeath/server/internal/player"
	"github.com/textordeath/server/internal/registry"
	"github.com/textordeath/server/internal/words"
)

func newTestRouter(t *testing.T) (http.Handler, *registry.Registry) {
	t.Helper()
	reg := registry.New(4)
	driver := bot.New(rand.New(rand.NewSource(1)), zap.NewNop())
	coord := game.New(game.Config{TypingTimeLimit: time.Second}, reg, words.NewSequence("cat"), driver, zap.NewNop())
	return SetupRoutes(coord), reg
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}

func TestState(t *testing.T) {
	router, reg := newTestRouter(t)
	if err := reg.Add(player.NewHuman("a", "Alice", nil)); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var state codec.GameStateData
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if state.GameActive || state.CurrentRound != 0 {
		t.Fatalf("unexpected state: %+v", state)
	}
	if len(state.Players) != 1 || state.Players[0].Name != "Alice" {
		t.Fatalf("unexpected players: %+v", state.Players)
	}
}
