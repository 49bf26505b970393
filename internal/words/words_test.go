package words

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestListSource_NextStaysInTier(t *testing.T) {
	s := NewListSource(rand.New(rand.NewSource(1)))

	for _, d := range []Difficulty{Easy, Medium, Hard} {
		members := make(map[string]bool, len(builtin[d]))
		for _, w := range builtin[d] {
			members[w] = true
		}
		for i := 0; i < 50; i++ {
			w, err := s.Next(d)
			if err != nil {
				t.Fatalf("Next(%s): %v", d, err)
			}
			if !members[w] {
				t.Fatalf("Next(%s) returned %q from outside the tier", d, w)
			}
		}
	}
}

func TestListSource_UnknownDifficulty(t *testing.T) {
	s := NewListSource(rand.New(rand.NewSource(1)))
	_, err := s.Next(Difficulty("nightmare"))
	if !errors.Is(err, ErrUnknownDifficulty) {
		t.Fatalf("want ErrUnknownDifficulty, got %v", err)
	}
}

func TestListSource_SeededDeterminism(t *testing.T) {
	a := NewListSource(rand.New(rand.NewSource(42)))
	b := NewListSource(rand.New(rand.NewSource(42)))

	for i := 0; i < 20; i++ {
		wa, _ := a.Next(Medium)
		wb, _ := b.Next(Medium)
		if wa != wb {
			t.Fatalf("same seed diverged at draw %d: %q vs %q", i, wa, wb)
		}
	}
}

func TestListSource_LoadCustom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words_easy.json")
	if err := os.WriteFile(path, []byte(`["zzz-custom"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewListSource(rand.New(rand.NewSource(1)))
	if err := s.LoadCustom(dir); err != nil {
		t.Fatalf("LoadCustom: %v", err)
	}

	found := false
	for _, w := range s.tiers[Easy] {
		if w == "zzz-custom" {
			found = true
		}
	}
	if !found {
		t.Fatalf("custom word not merged into easy tier")
	}
}

func TestListSource_LoadCustomMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words_hard.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewListSource(rand.New(rand.NewSource(1)))
	if err := s.LoadCustom(dir); err == nil {
		t.Fatalf("expected error for malformed word file")
	}
}

func TestSequence_ExhaustsInOrder(t *testing.T) {
	s := NewSequence("cat", "dog")

	w, err := s.Next(Easy)
	if err != nil || w != "cat" {
		t.Fatalf("first draw: %q, %v", w, err)
	}
	w, err = s.Next(Hard)
	if err != nil || w != "dog" {
		t.Fatalf("second draw: %q, %v", w, err)
	}
	if _, err := s.Next(Easy); !errors.Is(err, ErrExhausted) {
		t.Fatalf("want ErrExhausted, got %v", err)
	}
}

func TestDifficultyScore(t *testing.T) {
	cases := []struct {
		word string
		want int
	}{
		{word: "cat", want: 3},     // length only
		{word: "quiz", want: 8},    // 4 + uncommon q, z
		{word: "letter", want: 8},  // 6 + repeated t, e
		{word: "jazz", want: 11},   // 4 + uncommon j, z, z + repeated z
		{word: "", want: 0},
	}

	for _, tc := range cases {
		if got := DifficultyScore(tc.word); got != tc.want {
			t.Fatalf("DifficultyScore(%q) = %d, want %d", tc.word, got, tc.want)
		}
	}
}
