package stats

import (
	"context"
	"sort"
	"sync"

	"github.com/Djttt/rpsls-battle/internal/apperr"
	"github.com/Djttt/rpsls-battle/internal/game"
)

// Memory is the in-process Recorder used when no database is
// configured, and in tests.
type Memory struct {
	mu      sync.Mutex
	records map[string]*Entry
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*Entry)}
}

func (m *Memory) RecordOutcome(_ context.Context, player string, outcome game.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.records[player]
	if !ok {
		e = &Entry{Player: player}
		m.records[player] = e
	}
	switch outcome {
	case game.Win:
		e.Wins++
	case game.Loss:
		e.Losses++
	case game.Draw:
		e.Draws++
	default:
		return apperr.Validation("unknown outcome %q", outcome)
	}
	return nil
}

func (m *Memory) TopByWins(_ context.Context, n int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]Entry, 0, len(m.records))
	for _, e := range m.records {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		if entries[i].Losses != entries[j].Losses {
			return entries[i].Losses < entries[j].Losses
		}
		return entries[i].Player < entries[j].Player
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}
