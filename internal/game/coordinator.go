// Package game drives the round state machine: word assignment,
// the typing deadline, scoring, elimination and the win condition.
package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/textordeath/server/internal/bot"
	"github.com/textordeath/server/internal/codec"
	"github.com/textordeath/server/internal/player"
	"github.com/textordeath/server/internal/registry"
	"github.com/textordeath/server/internal/words"
)

// ReservedName triggers the single-player convenience: the first
// joiner with this name gets the registry filled with bots.
const ReservedName = "nano"

type Config struct {
	TypingTimeLimit time.Duration
	RoundPause      time.Duration
	PollInterval    time.Duration
	BotFill         bool
}

// Coordinator owns the game session. Exactly one round loop runs per
// active game; start is guarded so concurrent joins can't spawn two.
type Coordinator struct {
	cfg    Config
	reg    *registry.Registry
	source words.Source
	bots   *bot.Driver
	log    *zap.Logger

	mu     sync.Mutex
	active bool
	round  int
}

func New(cfg Config, reg *registry.Registry, source words.Source, bots *bot.Driver, log *zap.Logger) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.RoundPause < 0 {
		cfg.RoundPause = 0
	}
	return &Coordinator{
		cfg:    cfg,
		reg:    reg,
		source: source,
		bots:   bots,
		log:    log,
	}
}

// PlayerJoined announces the new player, sends them the current game
// state, and starts the game once enough players are present.
func (c *Coordinator) PlayerJoined(ctx context.Context, p *player.Player) {
	c.broadcast(codec.KindPlayerJoin, codec.JoinBroadcast{
		Player:       p.Stats(),
		TotalPlayers: c.reg.Len(),
	})
	c.sendTo(p, codec.KindGameState, c.StateSnapshot())
	c.fillBots(p)
	c.maybeStart(ctx)
}

// PlayerLeft announces the departure. If the game is active, the
// round loop ends it on its next active-player check.
func (c *Coordinator) PlayerLeft(p *player.Player) {
	c.broadcast(codec.KindPlayerLeave, codec.LeaveBroadcast{
		PlayerID:     p.ID,
		Name:         p.Name,
		TotalPlayers: c.reg.Len(),
	})
}

// HandleResponse applies a typing update from a player. Responses
// outside the typing state are stale and dropped.
func (c *Coordinator) HandleResponse(id, text string, complete bool) {
	p, ok := c.reg.Get(id)
	if !ok {
		return
	}
	if p.State() != player.StateTyping {
		return
	}
	p.UpdateTyped(text)
	if complete {
		p.FinishTyping()
	}
}

// Active reports whether a round loop is running.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// StateSnapshot builds the game_state view sent to joining clients
// and the admin API.
func (c *Coordinator) StateSnapshot() codec.GameStateData {
	c.mu.Lock()
	active, round := c.active, c.round
	c.mu.Unlock()

	players := c.reg.Snapshot()
	stats := make([]codec.PlayerStats, 0, len(players))
	for _, p := range players {
		stats = append(stats, p.Stats())
	}
	return codec.GameStateData{
		Players:      stats,
		GameActive:   active,
		CurrentRound: round,
	}
}

// maybeStart spawns the round loop once at least two active players
// exist. The test-and-set under the mutex makes concurrent joins
// start exactly one loop.
func (c *Coordinator) maybeStart(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active || c.reg.ActiveCount() < 2 {
		return
	}
	c.active = true
	go c.run(ctx)
}

func (c *Coordinator) run(ctx context.Context) {
	gameCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.round = 0
	c.mu.Unlock()

	for _, p := range c.reg.Snapshot() {
		p.ResetForNewGame()
	}

	c.log.Info("game starting", zap.Int("players", c.reg.Len()))
	c.broadcast(codec.KindGameStart, codec.GameStartData{Players: c.reg.Len()})

	for gameCtx.Err() == nil {
		actives := c.activePlayers()
		if len(actives) <= 1 {
			break
		}
		if err := c.runRound(gameCtx, actives); err != nil {
			c.log.Error("round failed, ending game", zap.Error(err))
			break
		}
		select {
		case <-gameCtx.Done():
		case <-time.After(c.cfg.RoundPause):
		}
	}

	c.finish()
}

func (c *Coordinator) runRound(ctx context.Context, actives []*player.Player) error {
	c.mu.Lock()
	c.round++
	round := c.round
	c.mu.Unlock()

	difficulty := DifficultyForRound(round)
	word, err := c.source.Next(difficulty)
	if err != nil {
		return fmt.Errorf("draw word: %w", err)
	}

	c.log.Info("round start",
		zap.Int("round", round),
		zap.String("difficulty", string(difficulty)),
		zap.Int("players", len(actives)))

	for _, p := range actives {
		p.StartTyping(word)
	}

	// Dispatch to every participant, bots included, before the
	// deadline clock starts, so nobody gets a shortened time budget.
	start := codec.RoundStartData{
		Round:      round,
		Word:       word,
		TimeLimit:  c.cfg.TypingTimeLimit.Seconds(),
		Difficulty: string(difficulty),
	}
	for _, p := range actives {
		if p.IsBot() {
			c.bots.Respond(ctx, p, word)
			continue
		}
		c.sendTo(p, codec.KindRoundStart, start)
	}

	c.waitForRound(ctx, actives)

	results := c.scoreRound(actives, word)
	c.broadcast(codec.KindRoundEnd, codec.RoundEndData{
		Round:   round,
		Word:    word,
		Results: results,
	})
	return nil
}

// waitForRound blocks until every active player has left the typing
// state or the time limit elapses, polling at the configured
// interval. This is the round loop's only suspension point.
func (c *Coordinator) waitForRound(ctx context.Context, actives []*player.Player) {
	deadline := time.NewTimer(c.cfg.TypingTimeLimit)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
			if !anyTyping(actives) {
				return
			}
		}
	}
}

// scoreRound locks in every answer and applies the results: correct
// answers earn 10 + len(word) and a survived round, wrong ones cost
// a life.
func (c *Coordinator) scoreRound(actives []*player.Player, word string) []codec.RoundResult {
	results := make([]codec.RoundResult, 0, len(actives))
	for _, p := range actives {
		if p.State() == player.StateTyping {
			p.FinishTyping() // timeout: whatever was typed stands
		}
		correct := p.WordCorrect()
		if correct {
			p.AddScore(ScorePoints(word))
			p.SurviveRound()
		} else {
			p.LoseLife()
		}
		results = append(results, codec.RoundResult{
			PlayerID:   p.ID,
			Name:       p.Name,
			Correct:    correct,
			Typed:      p.TypedText(),
			Lives:      p.Lives(),
			Eliminated: p.State() == player.StateEliminated,
		})
	}
	return results
}

// finish declares the winner, if exactly one player survived, and
// broadcasts final scores.
func (c *Coordinator) finish() {
	actives := c.activePlayers()
	var winner *codec.PlayerStats
	if len(actives) == 1 {
		actives[0].SetWinner()
		stats := actives[0].Stats()
		winner = &stats
	}

	players := c.reg.Snapshot()
	scores := make([]codec.PlayerStats, 0, len(players))
	for _, p := range players {
		scores = append(scores, p.Stats())
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	c.broadcast(codec.KindGameEnd, codec.GameEndData{
		Winner:      winner,
		FinalScores: scores,
	})

	c.mu.Lock()
	c.active = false
	c.mu.Unlock()

	if winner != nil {
		c.log.Info("game ended", zap.String("winner", winner.Name))
	} else {
		c.log.Info("game ended", zap.String("winner", "none"))
	}
}

// fillBots populates the registry with named bots when the reserved
// name joins an otherwise empty server. One-time onboarding
// convenience, toggleable via config.
func (c *Coordinator) fillBots(joiner *player.Player) {
	if !c.cfg.BotFill || c.reg.Len() != 1 {
		return
	}
	if !strings.EqualFold(joiner.Name, ReservedName) {
		return
	}

	added := 0
	for i, a := range bot.Archetypes {
		b := player.NewBot(fmt.Sprintf("bot_%d", i), a.Name, a.Name)
		if err := c.reg.Add(b); err != nil {
			break // capacity
		}
		added++
		c.broadcast(codec.KindPlayerJoin, codec.JoinBroadcast{
			Player:       b.Stats(),
			TotalPlayers: c.reg.Len(),
		})
	}
	if added == 0 {
		return
	}

	c.log.Info("single-player mode", zap.String("player", joiner.Name), zap.Int("bots", added))
	c.sendTo(joiner, codec.KindSpecialMessage, codec.SpecialMessageData{
		Message:   fmt.Sprintf("Welcome to single-player mode, %s! You're playing against AI bots.", joiner.Name),
		BotsAdded: added,
	})
}

func (c *Coordinator) activePlayers() []*player.Player {
	var out []*player.Player
	for _, p := range c.reg.Snapshot() {
		if p.State() != player.StateEliminated {
			out = append(out, p)
		}
	}
	return out
}

func anyTyping(players []*player.Player) bool {
	for _, p := range players {
		if p.State() == player.StateTyping {
			return true
		}
	}
	return false
}

// broadcast fans a message out to every registered human player, in
// issuance order. Bots see state directly; send failures surface as
// disconnects in the connection's own receive loop.
func (c *Coordinator) broadcast(kind codec.Kind, payload any) {
	line, err := c.encode(kind, payload)
	if err != nil {
		return
	}
	for _, p := range c.reg.Snapshot() {
		if p.IsBot() {
			continue
		}
		if err := p.Send(line); err != nil {
			c.log.Warn("broadcast send failed",
				zap.String("player", p.Name),
				zap.Error(err))
		}
	}
}

func (c *Coordinator) sendTo(p *player.Player, kind codec.Kind, payload any) {
	line, err := c.encode(kind, payload)
	if err != nil {
		return
	}
	if err := p.Send(line); err != nil {
		c.log.Warn("send failed",
			zap.String("player", p.Name),
			zap.Error(err))
	}
}

func (c *Coordinator) encode(kind codec.Kind, payload any) ([]byte, error) {
	msg, err := codec.New(kind, payload)
	if err != nil {
		c.log.Error("encode failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	line, err := codec.Encode(msg)
	if err != nil {
		c.log.Error("encode failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	return line, nil
}
