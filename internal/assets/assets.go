// Package assets keeps oversized binary fields (team logos) out of
// broadcast snapshots. The host strips them behind a sentinel and serves
// the raw bytes on demand; each client fetches a logo once and splices it
// back into every later snapshot.
package assets

import "github.com/pranayv/auction-backend/internal/engine"

// Sentinel replaces a stripped logo field in outgoing snapshots.
const Sentinel = "__LOGO_STRIPPED__"

// DefaultLimit is the largest logo (encoded bytes) allowed inline in a
// snapshot. Browser datachannel messages degrade well before 16 KiB.
const DefaultLimit = 8 * 1024

// Store is the host side: it remembers the original bytes for every
// logo it has ever stripped, keyed by team id.
type Store struct {
	limit int
	blobs map[string][]byte
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{limit: limit, blobs: make(map[string][]byte)}
}

// Strip returns a copy of the room with every oversized logo replaced by
// the sentinel, stashing the original bytes for later GET_LOGO requests.
// Rooms with no oversized logos are returned as-is.
func (s *Store) Strip(room engine.Room) engine.Room {
	stripped := false
	var teams []engine.Team
	for i, t := range room.Teams {
		if t.LogoURL == "" || t.LogoURL == Sentinel || len(t.LogoURL) <= s.limit {
			continue
		}
		if !stripped {
			teams = make([]engine.Team, len(room.Teams))
			copy(teams, room.Teams)
			stripped = true
		}
		s.blobs[t.ID] = []byte(t.LogoURL)
		teams[i].LogoURL = Sentinel
	}
	if !stripped {
		return room
	}
	room.Teams = teams
	return room
}

// Get returns the stripped bytes for one entity. A miss means the host
// no longer holds the asset; the caller should simply not respond.
func (s *Store) Get(entityID string) ([]byte, bool) {
	b, ok := s.blobs[entityID]
	return b, ok
}

// Cache is the client side: fetched logos by entity id.
type Cache struct {
	blobs map[string][]byte
}

func NewCache() *Cache {
	return &Cache{blobs: make(map[string][]byte)}
}

func (c *Cache) Put(entityID string, data []byte) {
	c.blobs[entityID] = data
}

// Restore substitutes cached logos back into a received snapshot.
func (c *Cache) Restore(room engine.Room) engine.Room {
	restored := false
	var teams []engine.Team
	for i, t := range room.Teams {
		if t.LogoURL != Sentinel {
			continue
		}
		data, ok := c.blobs[t.ID]
		if !ok {
			continue
		}
		if !restored {
			teams = make([]engine.Team, len(room.Teams))
			copy(teams, room.Teams)
			restored = true
		}
		teams[i].LogoURL = string(data)
	}
	if !restored {
		return room
	}
	room.Teams = teams
	return room
}

// Missing lists entity ids whose logos are sentinels with no cached copy,
// i.e. what the client still needs to fetch.
func (c *Cache) Missing(room engine.Room) []string {
	var ids []string
	for _, t := range room.Teams {
		if t.LogoURL != Sentinel {
			continue
		}
		if _, ok := c.blobs[t.ID]; !ok {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
