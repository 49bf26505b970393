// Package bot simulates non-human participants. A bot receives the
// round's word through Respond instead of a transport send, then goes
// through the same finish-typing path as a human response.
package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/textordeath/server/internal/player"
)

const letters = "abcdefghijklmnopqrstuvwxyz"

// Archetype tunes a bot's behavior. Values are tuning parameters, not
// protocol.
type Archetype struct {
	Name        string
	SuccessRate float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

var Archetypes = []Archetype{
	{Name: "TypeBot", SuccessRate: 0.7, MinDelay: 2 * time.Second, MaxDelay: 6 * time.Second},
	{Name: "SpeedDemon", SuccessRate: 0.9, MinDelay: 1 * time.Second, MaxDelay: 3 * time.Second},
	{Name: "WordWizard", SuccessRate: 0.8, MinDelay: 1500 * time.Millisecond, MaxDelay: 4 * time.Second},
}

// ByName resolves an archetype, defaulting to WordWizard.
func ByName(name string) Archetype {
	for _, a := range Archetypes {
		if a.Name == name {
			return a
		}
	}
	return Archetypes[2]
}

// Driver schedules delayed bot responses. The rng is shared across
// rounds and guarded, since Respond may be called while earlier
// timers are still pending.
type Driver struct {
	mu  sync.Mutex
	rng *rand.Rand
	log *zap.Logger
}

func New(rng *rand.Rand, log *zap.Logger) *Driver {
	return &Driver{rng: rng, log: log}
}

// Respond schedules the bot's answer for the current round. The
// outcome (text and delay) is rolled up front; only delivery is
// delayed. If the round ends first, the ctx or the lifecycle check
// discards the response.
func (d *Driver) Respond(ctx context.Context, p *player.Player, word string) {
	a := ByName(p.Archetype())

	d.mu.Lock()
	delay := a.MinDelay + time.Duration(d.rng.Int63n(int64(a.MaxDelay-a.MinDelay)+1))
	text := word
	if d.rng.Float64() >= a.SuccessRate {
		text = d.nearMiss(word)
	}
	d.mu.Unlock()

	timer := time.NewTimer(delay)
	go func() {
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		// A timer from an earlier round may outlive that round's
		// deadline; the word check keeps it from answering the
		// next round's challenge.
		if p.State() != player.StateTyping || p.CurrentWord() != word {
			return
		}
		p.UpdateTyped(text)
		p.FinishTyping()
		d.log.Debug("bot responded",
			zap.String("bot", p.Name),
			zap.String("typed", text),
			zap.Duration("delay", delay))
	}()
}

// nearMiss substitutes one random character, or returns a random
// letter for single-character words. Caller holds d.mu.
func (d *Driver) nearMiss(word string) string {
	if len(word) <= 1 {
		return string(letters[d.rng.Intn(len(letters))])
	}
	pos := d.rng.Intn(len(word))
	typo := letters[d.rng.Intn(len(letters))]
	return word[:pos] + string(typo) + word[pos+1:]
}
