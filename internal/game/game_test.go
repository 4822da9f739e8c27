package game

import "testing"

func TestBeatsIsAntisymmetric(t *testing.T) {
	for _, a := range Moves {
		if Beats(a, a) {
			t.Fatalf("%s must not beat itself", a)
		}
		for _, b := range Moves {
			if a == b {
				continue
			}
			ab := Beats(a, b)
			ba := Beats(b, a)
			if ab == ba {
				t.Fatalf("exactly one of beats(%s,%s) / beats(%s,%s) must hold, got %v and %v", a, b, b, a, ab, ba)
			}
		}
	}
}

func TestBeatsEachMoveBeatsExactlyTwo(t *testing.T) {
	for _, a := range Moves {
		count := 0
		for _, b := range Moves {
			if Beats(a, b) {
				count++
			}
		}
		if count != 2 {
			t.Fatalf("%s beats %d moves, want 2", a, count)
		}
	}
}

func TestParse(t *testing.T) {
	for _, m := range Moves {
		got, ok := Parse(string(m))
		if !ok || got != m {
			t.Fatalf("Parse(%q) = %q, %v", m, got, ok)
		}
	}
	if _, ok := Parse("dynamite"); ok {
		t.Fatalf("Parse accepted an unknown move")
	}
}

func TestScoreRound(t *testing.T) {
	cases := []struct {
		name  string
		moves map[string]Move
		want  map[string]int
	}{
		{
			name:  "rock crushes scissors",
			moves: map[string]Move{"alice": Rock, "bob": Scissors},
			want:  map[string]int{"alice": 1, "bob": 0},
		},
		{
			name:  "paper disproves spock",
			moves: map[string]Move{"alice": Paper, "bob": Spock},
			want:  map[string]int{"alice": 1, "bob": 0},
		},
		{
			name:  "equal moves draw",
			moves: map[string]Move{"alice": Lizard, "bob": Lizard},
			want:  map[string]int{"alice": 0, "bob": 0},
		},
		{
			name:  "three-way cycle gives everyone one point",
			moves: map[string]Move{"alice": Rock, "bob": Paper, "carol": Scissors},
			want:  map[string]int{"alice": 1, "bob": 1, "carol": 1},
		},
		{
			name:  "spock sweeps rock and scissors",
			moves: map[string]Move{"alice": Spock, "bob": Rock, "carol": Scissors},
			want:  map[string]int{"alice": 2, "bob": 0, "carol": 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreRound(tc.moves)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d deltas, want %d", len(got), len(tc.want))
			}
			for p, want := range tc.want {
				if got[p] != want {
					t.Fatalf("player %s: got delta %d, want %d (all: %v)", p, got[p], want, got)
				}
			}
		})
	}
}

func TestOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		scores map[string]int
		want   map[string]Outcome
	}{
		{
			name:   "single winner",
			scores: map[string]int{"alice": 2, "bob": 0},
			want:   map[string]Outcome{"alice": Win, "bob": Loss},
		},
		{
			name:   "tie at the top means multiple winners",
			scores: map[string]int{"alice": 3, "bob": 3, "carol": 1},
			want:   map[string]Outcome{"alice": Win, "bob": Win, "carol": Loss},
		},
		{
			name:   "all-zero game has no winner",
			scores: map[string]int{"alice": 0, "bob": 0},
			want:   map[string]Outcome{"alice": Loss, "bob": Loss},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Outcomes(tc.scores)
			for p, want := range tc.want {
				if got[p] != want {
					t.Fatalf("player %s: got %s, want %s", p, got[p], want)
				}
			}
		})
	}
}
