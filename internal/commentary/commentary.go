// Package commentary produces the decorative one-liners appended after a
// player is resolved. Generation runs in the background; the auction
// never waits on it.
package commentary

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/pranayv/auction-backend/internal/engine"
)

type Commentator interface {
	SoldLine(ctx context.Context, player engine.Player, team engine.Team, price int) (string, error)
	UnsoldLine(ctx context.Context, player engine.Player) (string, error)
}

// Static serves canned lines. It stands in wherever no external text
// generator is wired up.
type Static struct{}

var soldLines = []string{
	"%s lands at %s for %d. The hammer has spoken!",
	"Cha-ching! %s joins %s — %d well spent, maybe.",
	"%s to %s for %d. Someone call the accountants.",
	"Gavel down! %s is a %s problem now, all %d of it.",
}

var unsoldLines = []string{
	"Crickets... literally. No bids for %s.",
	"%s goes unsold. The silence was deafening.",
	"No takers for %s. Brutal market out there.",
}

func (Static) SoldLine(_ context.Context, player engine.Player, team engine.Team, price int) (string, error) {
	line := soldLines[rand.IntN(len(soldLines))]
	return fmt.Sprintf(line, player.Name, team.Name, price), nil
}

func (Static) UnsoldLine(_ context.Context, player engine.Player) (string, error) {
	line := unsoldLines[rand.IntN(len(unsoldLines))]
	return fmt.Sprintf(line, player.Name), nil
}

// Silent returns no commentary at all; handy in tests.
type Silent struct{}

func (Silent) SoldLine(context.Context, engine.Player, engine.Team, int) (string, error) {
	return "", nil
}

func (Silent) UnsoldLine(context.Context, engine.Player) (string, error) {
	return "", nil
}
