// Package archive persists the one-shot historical record of a completed
// room. Records are not part of live sync; they exist for the "recent
// rooms" display after the auction is over.
package archive

import (
	"context"
	"time"

	"github.com/pranayv/auction-backend/internal/engine"
)

type Record struct {
	RoomID      string
	RoomName    string
	CompletedAt time.Time
	Teams       []TeamResult
}

type TeamResult struct {
	TeamID     string
	Name       string
	OwnerName  string
	Spent      int
	Remaining  int
	RosterSize int
}

// BuildRecord distills a completed room into its archival record.
func BuildRecord(room engine.Room, completedAt time.Time) Record {
	rec := Record{
		RoomID:      room.ID,
		RoomName:    room.Name,
		CompletedAt: completedAt,
		Teams:       make([]TeamResult, 0, len(room.Teams)),
	}
	for _, t := range room.Teams {
		spent := 0
		for _, p := range t.Roster {
			spent += p.SoldPrice
		}
		rec.Teams = append(rec.Teams, TeamResult{
			TeamID:     t.ID,
			Name:       t.Name,
			OwnerName:  t.OwnerName,
			Spent:      spent,
			Remaining:  t.Budget,
			RosterSize: len(t.Roster),
		})
	}
	return rec
}

// Store writes records somewhere durable.
type Store interface {
	Archive(ctx context.Context, rec Record) error
}

// Nop discards records; used when no database is configured.
type Nop struct{}

func (Nop) Archive(context.Context, Record) error { return nil }
