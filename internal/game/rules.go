package game

import "github.com/textordeath/server/internal/words"

// DifficultyForRound maps the round number to a word tier: rounds 1-3
// easy, 4-6 medium, 7+ hard.
func DifficultyForRound(round int) words.Difficulty {
	switch {
	case round <= 3:
		return words.Easy
	case round <= 6:
		return words.Medium
	default:
		return words.Hard
	}
}

// ScorePoints is the award for a correct answer.
func ScorePoints(word string) int {
	return 10 + len(word)
}
