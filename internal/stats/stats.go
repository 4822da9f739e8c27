// Package stats is the leaderboard sink: a per-username win/loss/draw
// tally. The gorm-backed Store is used when a database is configured;
// Memory covers everything else, since a LAN session should not require
// infrastructure.
package stats

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Djttt/rpsls-battle/internal/apperr"
	"github.com/Djttt/rpsls-battle/internal/game"
)

type Entry struct {
	Player string `json:"player"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Draws  int    `json:"draws"`
}

type Recorder interface {
	RecordOutcome(ctx context.Context, player string, outcome game.Outcome) error
	TopByWins(ctx context.Context, n int) ([]Entry, error)
}

// PlayerRecord is the persisted row backing one leaderboard entry.
type PlayerRecord struct {
	Username string `gorm:"primaryKey"`
	Wins     int
	Losses   int
	Draws    int
}

type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, apperr.Persistence(err, "open stats database")
	}
	if err := db.AutoMigrate(&PlayerRecord{}); err != nil {
		return nil, apperr.Persistence(err, "migrate stats schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) RecordOutcome(ctx context.Context, player string, outcome game.Outcome) error {
	record := PlayerRecord{Username: player}
	var column string
	switch outcome {
	case game.Win:
		record.Wins = 1
		column = "wins"
	case game.Loss:
		record.Losses = 1
		column = "losses"
	case game.Draw:
		record.Draws = 1
		column = "draws"
	default:
		return apperr.Validation("unknown outcome %q", outcome)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.Assignments(map[string]any{column: gorm.Expr(column + " + 1")}),
	}).Create(&record).Error
	if err != nil {
		return apperr.Persistence(err, "record outcome for %s", player)
	}
	return nil
}

func (s *Store) TopByWins(ctx context.Context, n int) ([]Entry, error) {
	var records []PlayerRecord
	err := s.db.WithContext(ctx).
		Order("wins DESC, losses ASC, username ASC").
		Limit(n).
		Find(&records).Error
	if err != nil {
		return nil, apperr.Persistence(err, "load leaderboard")
	}

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, Entry{Player: r.Username, Wins: r.Wins, Losses: r.Losses, Draws: r.Draws})
	}
	return entries, nil
}
