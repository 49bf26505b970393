// Package words supplies challenge words by difficulty tier. The
// round-to-tier policy belongs to the game package; this package only
// guarantees membership in the requested tier.
package words

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")
var ErrExhausted = errors.New("word source exhausted")

// Source yields one challenge word per call.
type Source interface {
	Next(d Difficulty) (string, error)
}

var builtin = map[Difficulty][]string{
	Easy: {
		"cat", "dog", "run", "jump", "happy", "blue", "red", "big", "small", "fast",
		"slow", "hot", "cold", "good", "bad", "yes", "no", "go", "stop", "help",
	},
	Medium: {
		"computer", "keyboard", "challenge", "victory", "defeat", "strategy", "battle",
		"warrior", "magic", "dragon", "castle", "forest", "mountain", "river", "ocean",
		"adventure", "treasure", "mystery", "legend", "ancient",
	},
	Hard: {
		"extraordinary", "magnificent", "tremendous", "spectacular", "phenomenal",
		"incomprehensible", "revolutionary", "sophisticated", "unprecedented",
		"unbelievable", "philosophical", "psychological", "technological",
		"archaeological", "meteorological", "astronomical", "mathematical",
		"geographical", "biographical",
	},
}

// ListSource draws uniformly from in-memory tiers. Inject a seeded
// rand.Rand for deterministic tests. Next is only called from the
// round loop, so the rng needs no lock here.
type ListSource struct {
	rng   *rand.Rand
	tiers map[Difficulty][]string
}

func NewListSource(rng *rand.Rand) *ListSource {
	tiers := make(map[Difficulty][]string, len(builtin))
	for d, list := range builtin {
		tiers[d] = append([]string(nil), list...)
	}
	return &ListSource{rng: rng, tiers: tiers}
}

// LoadCustom merges words from words_<tier>.json files in dir, if
// present. Missing files are fine; malformed ones are reported.
func (s *ListSource) LoadCustom(dir string) error {
	for d := range s.tiers {
		path := filepath.Join(dir, fmt.Sprintf("words_%s.json", d))
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var extra []string
		if err := json.Unmarshal(data, &extra); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		s.tiers[d] = append(s.tiers[d], extra...)
	}
	return nil
}

func (s *ListSource) Next(d Difficulty) (string, error) {
	list, ok := s.tiers[d]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, d)
	}
	if len(list) == 0 {
		return "", ErrExhausted
	}
	return list[s.rng.Intn(len(list))], nil
}

// Sequence replays a fixed list of words regardless of tier, then
// reports exhaustion. Used as a deterministic test source.
type Sequence struct {
	words []string
	pos   int
}

func NewSequence(words ...string) *Sequence {
	return &Sequence{words: words}
}

func (s *Sequence) Next(Difficulty) (string, error) {
	if s.pos >= len(s.words) {
		return "", ErrExhausted
	}
	w := s.words[s.pos]
	s.pos++
	return w, nil
}

// DifficultyScore estimates how hard a word is to type: its length,
// plus 2 per uncommon letter, plus 1 per repeated letter.
func DifficultyScore(word string) int {
	score := len(word)

	lower := strings.ToLower(word)
	for _, r := range lower {
		if strings.ContainsRune("qxzjkv", r) {
			score += 2
		}
	}

	unique := make(map[rune]bool)
	for _, r := range lower {
		unique[r] = true
	}
	if len(unique) < len([]rune(lower)) {
		score += len([]rune(lower)) - len(unique)
	}

	return score
}
