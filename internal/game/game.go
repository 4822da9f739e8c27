// Package game holds the pure rules of extended rock-paper-scissors:
// the five moves, the beats relation, per-round pairwise scoring, and
// the end-of-match outcome rule. Nothing in here is concurrent or
// stateful; the room package drives it.
package game

import "sort"

type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
	Lizard   Move = "lizard"
	Spock    Move = "spock"
)

var Moves = []Move{Rock, Paper, Scissors, Lizard, Spock}

// beats is the fixed 5-cycle: each move beats exactly two others, so for
// any two distinct moves exactly one direction wins.
var beats = map[Move][2]Move{
	Rock:     {Scissors, Lizard},
	Paper:    {Rock, Spock},
	Scissors: {Paper, Lizard},
	Lizard:   {Spock, Paper},
	Spock:    {Rock, Scissors},
}

func Parse(s string) (Move, bool) {
	m := Move(s)
	_, ok := beats[m]
	return m, ok
}

// Beats reports whether a defeats b. Equal moves never beat each other.
func Beats(a, b Move) bool {
	pair := beats[a]
	return pair[0] == b || pair[1] == b
}

type Outcome string

const (
	Win  Outcome = "win"
	Loss Outcome = "loss"
	Draw Outcome = "draw"
)

// ScoreRound compares every unordered pair of players and awards one
// point to the winning side of each pair. Equal moves draw. The returned
// map carries a delta (possibly zero) for every player.
func ScoreRound(moves map[string]Move) map[string]int {
	players := make([]string, 0, len(moves))
	for p := range moves {
		players = append(players, p)
	}
	sort.Strings(players)

	deltas := make(map[string]int, len(players))
	for _, p := range players {
		deltas[p] = 0
	}

	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			a, b := players[i], players[j]
			switch {
			case Beats(moves[a], moves[b]):
				deltas[a]++
			case Beats(moves[b], moves[a]):
				deltas[b]++
			}
		}
	}
	return deltas
}

// Outcomes applies the share-of-max rule: every player whose cumulative
// score equals the maximum and is positive records a win, everyone else
// a loss. Ties at the top therefore produce multiple winners, and an
// all-zero game produces no winner at all.
func Outcomes(scores map[string]int) map[string]Outcome {
	max := 0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}

	outcomes := make(map[string]Outcome, len(scores))
	for p, s := range scores {
		if s == max && s > 0 {
			outcomes[p] = Win
		} else {
			outcomes[p] = Loss
		}
	}
	return outcomes
}
