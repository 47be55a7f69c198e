package engine

import (
	"reflect"
	"testing"
)

func shufflePool() []Player {
	return []Player{
		{ID: "c1", Pot: PotC},
		{ID: "a1", Pot: PotA},
		{ID: "b1", Pot: PotB},
		{ID: "a2", Pot: PotA},
		{ID: "u1", Pot: ""},
		{ID: "b2", Pot: PotB},
		{ID: "a3", Pot: PotA},
		{ID: "x1", Pot: Pot("weird")},
	}
}

func TestPotShuffle_GroupsStayContiguousInPotOrder(t *testing.T) {
	out := PotShuffle(shufflePool(), 42)
	if len(out) != 8 {
		t.Fatalf("len = %d, want 8", len(out))
	}

	rank := map[Pot]int{}
	for i, pot := range PotOrder {
		rank[pot] = i
	}
	prev := -1
	for _, p := range out {
		r, ok := rank[p.Pot]
		if !ok {
			// Unknown pots keep their original value but draw with Uncategorized.
			r = rank[PotUncategorized]
		}
		if r < prev {
			t.Fatalf("pot %s out of phase order in %v", p.Pot, ids(out))
		}
		prev = r
	}
}

func TestPotShuffle_SameSeedSameOrder(t *testing.T) {
	a := PotShuffle(shufflePool(), 7)
	b := PotShuffle(shufflePool(), 7)
	if !reflect.DeepEqual(ids(a), ids(b)) {
		t.Fatalf("same seed diverged: %v vs %v", ids(a), ids(b))
	}
}

func TestPotShuffle_DifferentSeedsShuffleWithinPot(t *testing.T) {
	// With enough players in one pot, two seeds almost surely differ.
	pool := make([]Player, 0, 20)
	for i := 0; i < 20; i++ {
		pool = append(pool, Player{ID: string(rune('a' + i)), Pot: PotA})
	}
	a := PotShuffle(pool, 1)
	b := PotShuffle(pool, 2)
	if reflect.DeepEqual(ids(a), ids(b)) {
		t.Fatalf("seeds 1 and 2 produced identical order")
	}
}

func TestPotShuffle_DoesNotMutateInput(t *testing.T) {
	pool := shufflePool()
	want := ids(pool)
	_ = PotShuffle(pool, 3)
	if !reflect.DeepEqual(ids(pool), want) {
		t.Fatalf("input reordered: %v", ids(pool))
	}
}

func ids(ps []Player) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
