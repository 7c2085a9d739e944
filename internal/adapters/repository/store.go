// Package repository holds the published population snapshot.
package repository

import (
	"context"

	"github.com/okian/osker/internal/domain/aggregate"
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
)

// Entry is a leaderboard row. Players with equal TR share a position.
type Entry struct {
	Position int
	Player   model.Player
}

// Store publishes aggregation results and serves lookups against the latest one.
type Store interface {
	// Publish replaces the current snapshot with one built from res.
	Publish(ctx context.Context, res aggregate.Result) *Snapshot

	// Current returns the latest snapshot. It is never nil.
	Current(ctx context.Context) *Snapshot

	// Player finds a player by name, case-insensitively. "$avg<RANK>" names
	// resolve to averages. Returns ErrNotFound if absent.
	Player(ctx context.Context, name string) (model.Player, error)

	// Average returns the synthetic average of bucket r (All for the population).
	Average(ctx context.Context, r rank.Rank) (model.Player, error)

	// Averages returns every synthetic average in display order.
	Averages(ctx context.Context) []model.Player

	// TopN returns the n highest-rated players.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of players in the snapshot.
	Count(ctx context.Context) int
}
