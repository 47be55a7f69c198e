package engine

import "math/rand/v2"

// PotShuffle orders players for the draw: groups follow PotOrder so each
// auction phase stays contiguous, and only the order within a group is
// shuffled. The same seed always yields the same draw order.
func PotShuffle(players []Player, seed int64) []Player {
	rng := rand.New(rand.NewPCG(uint64(seed), 0))

	groups := make(map[Pot][]Player, len(PotOrder))
	for _, p := range players {
		pot := normalizePot(p.Pot)
		groups[pot] = append(groups[pot], p)
	}

	out := make([]Player, 0, len(players))
	for _, pot := range PotOrder {
		g := groups[pot]
		rng.Shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
		out = append(out, g...)
	}
	return out
}

func normalizePot(p Pot) Pot {
	for _, known := range PotOrder {
		if p == known {
			return p
		}
	}
	return PotUncategorized
}
