// Package player holds the per-player session state: lifecycle,
// lives, score and the typing metrics recomputed every round.
package player

import (
	"strings"
	"sync"
	"time"

	"github.com/textordeath/server/internal/codec"
)

type State string

const (
	StateWaiting    State = "waiting"
	StateTyping     State = "typing"
	StateEliminated State = "eliminated"
	StateWinner     State = "winner"
)

const startingLives = 3

// Transport is the network handle owned by a human player's
// connection. Bots have none. Send must not block on a slow peer:
// implementations queue the line or fail with a transport error, so
// the round loop can fan out to every player without stalling.
type Transport interface {
	Send(line []byte) error
	Close() error
}

// Player is either a human (transport set) or a bot (archetype set).
// The coordinator operates on the shared fields uniformly; only
// message delivery differs between the two.
//
// Membership in the registry is guarded by the registry's lock; the
// player's own mutex guards field access, since receive loops, the
// round loop and the bot driver all touch the same player.
type Player struct {
	ID   string
	Name string

	mu          sync.Mutex
	transport   Transport
	archetype   string
	state       State
	lives       int
	score       int
	currentWord string
	typedText   string
	typingStart time.Time
	typingSpeed float64 // WPM
	accuracy    float64
	survived    int
}

func NewHuman(id, name string, t Transport) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		transport: t,
		state:     StateWaiting,
		lives:     startingLives,
		accuracy:  100,
	}
}

func NewBot(id, name, archetype string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		archetype: archetype,
		state:     StateWaiting,
		lives:     startingLives,
		accuracy:  100,
	}
}

func (p *Player) IsBot() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.archetype != ""
}

func (p *Player) Archetype() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.archetype
}

// Send forwards a line to the player's transport. Bots drop it.
func (p *Player) Send(line []byte) error {
	p.mu.Lock()
	t := p.transport
	p.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.Send(line)
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) Lives() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lives
}

func (p *Player) Score() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.score
}

func (p *Player) CurrentWord() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentWord
}

func (p *Player) TypedText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typedText
}

func (p *Player) RoundsSurvived() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.survived
}

// StartTyping assigns the round's word and puts the player on the
// clock.
func (p *Player) StartTyping(word string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentWord = word
	p.typedText = ""
	p.typingStart = time.Now()
	p.state = StateTyping
}

// UpdateTyped records progress and recomputes accuracy. Ignored
// outside the typing state so stale responses can't clobber results.
func (p *Player) UpdateTyped(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateTyping {
		return
	}
	p.typedText = text
	p.accuracy = Accuracy(p.currentWord, p.typedText)
}

// FinishTyping locks in the typed text, computes WPM and returns
// whether the word was correct. The player leaves the typing state
// regardless; elimination is the scorer's call.
func (p *Player) FinishTyping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.typingStart.IsZero() {
		elapsed := time.Since(p.typingStart).Seconds()
		if elapsed > 0 {
			words := len(strings.Fields(p.currentWord))
			p.typingSpeed = float64(words) / elapsed * 60
		}
	}
	if p.state == StateTyping {
		p.state = StateWaiting
	}
	return p.wordCorrect()
}

// WordCorrect reports whether the locked-in text matches the word,
// trimmed and case-insensitive.
func (p *Player) WordCorrect() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wordCorrect()
}

func (p *Player) wordCorrect() bool {
	return strings.EqualFold(strings.TrimSpace(p.typedText), p.currentWord)
}

// LoseLife removes one life and eliminates at zero. Returns whether
// the player is still in the game.
func (p *Player) LoseLife() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lives--
	if p.lives <= 0 {
		p.lives = 0
		p.state = StateEliminated
	}
	return p.lives > 0
}

func (p *Player) AddScore(points int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.score += points
}

func (p *Player) SurviveRound() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.survived++
}

// SetWinner marks the sole survivor at game end.
func (p *Player) SetWinner() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateWinner
}

// ResetForNewGame restores the default round state.
func (p *Player) ResetForNewGame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateWaiting
	p.score = 0
	p.lives = startingLives
	p.currentWord = ""
	p.typedText = ""
	p.typingStart = time.Time{}
	p.typingSpeed = 0
	p.accuracy = 100
	p.survived = 0
}

// Stats snapshots the public view of the player.
func (p *Player) Stats() codec.PlayerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return codec.PlayerStats{
		ID:             p.ID,
		Name:           p.Name,
		Score:          p.score,
		Lives:          p.lives,
		State:          string(p.state),
		TypingSpeed:    round1(p.typingSpeed),
		Accuracy:       round1(p.accuracy),
		RoundsSurvived: p.survived,
	}
}

// Accuracy scores typed against word: position-wise case-insensitive
// matches over the longer length, as a percentage. Compared by rune,
// since client input isn't limited to ASCII. Either side empty
// scores 100.
func Accuracy(word, typed string) float64 {
	if word == "" || typed == "" {
		return 100
	}
	w := []rune(strings.ToLower(word))
	t := []rune(strings.ToLower(typed))
	n := min(len(w), len(t))
	correct := 0
	for i := 0; i < n; i++ {
		if w[i] == t[i] {
			correct++
		}
	}
	return float64(correct) / float64(max(len(w), len(t))) * 100
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
