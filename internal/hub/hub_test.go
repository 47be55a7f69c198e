package hub

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/pranayv/auction-backend/internal/archive"
	"github.com/pranayv/auction-backend/internal/commentary"
	"github.com/pranayv/auction-backend/internal/engine"
	"github.com/pranayv/auction-backend/internal/room"
)

func testFactory() SessionFactory {
	clock := clockwork.NewFakeClock()
	return func(ctx context.Context, initial engine.Room) *room.Session {
		return room.NewSession(ctx, initial, room.Options{PingInterval: time.Hour},
			clock, zap.NewNop(), commentary.Silent{}, archive.Nop{})
	}
}

func testState(code string) engine.Room {
	return engine.NewRoom(code, "host_1", "Room", "Host", 1700000000000)
}

func TestHub_Create_Get_SameSession(t *testing.T) {
	h := NewHub(context.Background(), testFactory())
	reply := make(chan *room.Session, 1)

	h.Inbox() <- CreateRoom{Code: "ZED123", State: testState("ZED123"), Reply: reply}
	s1 := <-reply

	h.Inbox() <- GetRoom{Code: "ZED123", Reply: reply}
	s2 := <-reply

	if s1 == nil || s2 == nil || s1 != s2 {
		t.Fatalf("expected same session pointer")
	}
}

func TestHub_Get_UnknownCodeIsNil(t *testing.T) {
	h := NewHub(context.Background(), testFactory())
	reply := make(chan *room.Session, 1)

	h.Inbox() <- GetRoom{Code: "NOPE00", Reply: reply}
	if s := <-reply; s != nil {
		t.Fatalf("expected nil for unknown code")
	}
}

func TestHub_Ensure_CreatesOnceOnly(t *testing.T) {
	h := NewHub(context.Background(), testFactory())
	reply := make(chan *room.Session, 1)

	h.Inbox() <- EnsureRoom{Code: "ABC123", State: testState("ABC123"), Reply: reply}
	s1 := <-reply

	other := testState("ABC123")
	other.Name = "Should Not Replace"
	h.Inbox() <- EnsureRoom{Code: "ABC123", State: other, Reply: reply}
	s2 := <-reply

	if s1 != s2 {
		t.Fatalf("ensure replaced an existing session")
	}
}

func TestHub_Remove_ShutsSessionDown(t *testing.T) {
	h := NewHub(context.Background(), testFactory())
	reply := make(chan *room.Session, 1)

	h.Inbox() <- CreateRoom{Code: "ABC123", State: testState("ABC123"), Reply: reply}
	s := <-reply

	h.Inbox() <- RemoveRoom{Code: "ABC123"}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("removed session never shut down")
	}

	h.Inbox() <- GetRoom{Code: "ABC123", Reply: reply}
	if got := <-reply; got != nil {
		t.Fatalf("removed room still registered")
	}
}

func TestHub_Shutdown_StopsAllSessions(t *testing.T) {
	h := NewHub(context.Background(), testFactory())
	reply := make(chan *room.Session, 1)

	h.Inbox() <- CreateRoom{Code: "AAA111", State: testState("AAA111"), Reply: reply}
	s1 := <-reply
	h.Inbox() <- CreateRoom{Code: "BBB222", State: testState("BBB222"), Reply: reply}
	s2 := <-reply

	h.Inbox() <- ShutdownHub{}

	for _, s := range []*room.Session{s1, s2} {
		select {
		case <-s.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("session survived hub shutdown")
		}
	}
}
