package client

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/pranayv/auction-backend/internal/assets"
	"github.com/pranayv/auction-backend/internal/engine"
	"github.com/pranayv/auction-backend/internal/transport"
	"github.com/pranayv/auction-backend/internal/wire"
)

var errDialRefused = errors.New("dial refused")

// hostHarness plays the host side of the protocol over in-process pipes:
// it answers REQUEST_SYNC and GET_LOGO and records everything else.
type hostHarness struct {
	mu      sync.Mutex
	room    engine.Room
	logos   map[string][]byte
	dials   int
	okDials int // dials numbered beyond this fail
	syncs   int
	links   []*transport.PipeLink // host side of each successful dial

	frames chan wire.Message
}

func newHostHarness(room engine.Room, okDials int) *hostHarness {
	return &hostHarness{
		room:    room,
		logos:   map[string][]byte{},
		okDials: okDials,
		frames:  make(chan wire.Message, 16),
	}
}

func (h *hostHarness) dialCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dials
}

func (h *hostHarness) setRoom(r engine.Room) {
	h.mu.Lock()
	h.room = r
	h.mu.Unlock()
}

func (h *hostHarness) syncCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.syncs
}

// closeLatest drops the most recent connection from the host side.
func (h *hostHarness) closeLatest() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.links); n > 0 {
		h.links[n-1].Close()
	}
}

func (h *hostHarness) dialer() transport.Dialer {
	return func(ctx context.Context) (transport.Link, error) {
		h.mu.Lock()
		h.dials++
		refused := h.dials > h.okDials
		h.mu.Unlock()
		if refused {
			return nil, errDialRefused
		}
		hostSide, clientSide := transport.Pipe("client", transport.Addr("ABC123"))
		h.mu.Lock()
		h.links = append(h.links, hostSide)
		h.mu.Unlock()
		go h.serve(hostSide)
		return clientSide, nil
	}
}

func (h *hostHarness) serve(link transport.Link) {
	ctx := context.Background()
	for {
		data, err := link.Recv(ctx)
		if err != nil {
			return
		}
		msg, err := wire.Decode(data)
		if err != nil {
			continue
		}
		switch msg.Kind {
		case wire.KindRequestSync:
			h.mu.Lock()
			h.syncs++
			snap := h.room
			h.mu.Unlock()
			frame, _ := wire.Encode(wire.Message{Kind: wire.KindSync, Room: &snap})
			_ = link.Send(ctx, frame)
		case wire.KindGetLogo:
			h.mu.Lock()
			blob, ok := h.logos[msg.EntityID]
			h.mu.Unlock()
			if ok {
				frame, _ := wire.Encode(wire.Message{
					Kind: wire.KindLogoResponse, EntityID: msg.EntityID, Logo: blob})
				_ = link.Send(ctx, frame)
			}
		default:
			select {
			case h.frames <- msg:
			default:
			}
		}
	}
}

func hostRoom() engine.Room {
	r := engine.NewRoom("ABC123", "host_1", "Test Room", "Host", 1700000000000)
	r.Teams = []engine.Team{{ID: "t1", Name: "Team One", Budget: 1500, Roster: []engine.Player{}}}
	return r
}

func newTestSession(t *testing.T, dial transport.Dialer, opts Options, clock clockwork.Clock) *Session {
	t.Helper()
	s := NewSession(context.Background(), "u1", "Ana", dial, opts, clock, zap.NewNop())
	t.Cleanup(s.Close)
	return s
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestConnect_HandshakeDeliversFirstSnapshot(t *testing.T) {
	host := newHostHarness(hostRoom(), 100)
	s := newTestSession(t, host.dialer(), Options{}, clockwork.NewRealClock())

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	room, ok := s.Room()
	if !ok || room.ID != "ABC123" {
		t.Fatalf("room = %+v, ok = %v", room, ok)
	}
	select {
	case snap := <-s.Snapshots():
		if snap.ID != "ABC123" {
			t.Fatalf("snapshot = %+v", snap)
		}
	default:
		t.Fatalf("first snapshot not published")
	}

	// The handshake announces the participant to the host.
	select {
	case msg := <-host.frames:
		join, ok := msg.Action.(engine.Join)
		if !ok || join.UserID != "u1" || join.Name != "Ana" {
			t.Fatalf("first frame = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("host never saw JOIN")
	}
}

func TestConnect_RetriesThenSurfacesFailure(t *testing.T) {
	host := newHostHarness(hostRoom(), 0)
	opts := Options{MaxAttempts: 3, RetryBackoff: time.Millisecond}
	s := newTestSession(t, host.dialer(), opts, clockwork.NewRealClock())

	err := s.Connect(context.Background())
	if !errors.Is(err, errDialRefused) {
		t.Fatalf("err = %v, want dial refusal", err)
	}
	if got := host.dialCount(); got != 3 {
		t.Fatalf("dials = %d, want 3", got)
	}
	if _, ok := s.Room(); ok {
		t.Fatalf("snapshot cached despite failed connect")
	}
}

func TestDispatch_ForwardsActionsAfterConnect(t *testing.T) {
	host := newHostHarness(hostRoom(), 100)
	s := newTestSession(t, host.dialer(), Options{}, clockwork.NewRealClock())

	if err := s.Dispatch(engine.PlaceBid{TeamID: "t1", Amount: 100}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("pre-connect err = %v, want ErrNotConnected", err)
	}

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	<-host.frames // JOIN

	if err := s.Dispatch(engine.PlaceBid{TeamID: "t1", Amount: 100}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	select {
	case msg := <-host.frames:
		bid, ok := msg.Action.(engine.PlaceBid)
		if !ok || bid.Amount != 100 {
			t.Fatalf("frame = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("host never saw the bid")
	}
}

func TestMonitor_SilentHostTriggersReconnect(t *testing.T) {
	clock := clockwork.NewFakeClock()
	host := newHostHarness(hostRoom(), 100)
	opts := Options{PingInterval: time.Second, StaleMultiplier: 3}
	s := newTestSession(t, host.dialer(), opts, clock)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := host.dialCount(); got != 1 {
		t.Fatalf("dials = %d, want 1", got)
	}

	// The host changes state while the client is deaf; the re-handshake
	// must pick the new snapshot up.
	updated := hostRoom()
	updated.Status = engine.RoomActive
	host.setRoom(updated)

	clock.BlockUntil(1) // monitor ticker armed
	clock.Advance(4 * time.Second)

	waitFor(t, "second dial", func() bool { return host.dialCount() >= 2 })
	waitFor(t, "fresh snapshot", func() bool {
		room, ok := s.Room()
		return ok && room.Status == engine.RoomActive
	})
	if err := s.Err(); err != nil {
		t.Fatalf("session failed: %v", err)
	}
}

func TestMonitor_ReconnectExhaustionFailsSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	host := newHostHarness(hostRoom(), 1)
	opts := Options{PingInterval: time.Second, StaleMultiplier: 3, MaxAttempts: 1}
	s := newTestSession(t, host.dialer(), opts, clock)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	clock.BlockUntil(1)
	clock.Advance(4 * time.Second)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session never gave up")
	}
	if err := s.Err(); !errors.Is(err, errDialRefused) {
		t.Fatalf("err = %v, want dial refusal", err)
	}
}

func TestReconnect_StopsPreviousMonitor(t *testing.T) {
	host := newHostHarness(hostRoom(), 100)
	s := newTestSession(t, host.dialer(), Options{}, clockwork.NewRealClock())

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, "first handshake", func() bool { return host.syncCount() == 1 })
	time.Sleep(50 * time.Millisecond)
	baseline := runtime.NumGoroutine()

	// Each dropped link triggers a reconnect; a fresh monitor must replace
	// the old one, not pile on top of it.
	const drops = 8
	for i := 0; i < drops; i++ {
		host.closeLatest()
		want := i + 2
		waitFor(t, "rehandshake", func() bool { return host.syncCount() >= want })
	}
	if got := host.dialCount(); got < drops+1 {
		t.Fatalf("dials = %d, want at least %d", got, drops+1)
	}

	waitFor(t, "goroutines to settle", func() bool {
		return runtime.NumGoroutine() <= baseline+drops/2
	})
	if err := s.Err(); err != nil {
		t.Fatalf("session failed: %v", err)
	}
}

func TestLogoFetch_RestoredIntoView(t *testing.T) {
	blob := "data:image/png;base64,QUJDREVGRw=="
	stripped := hostRoom()
	stripped.Teams[0].LogoURL = assets.Sentinel

	host := newHostHarness(stripped, 100)
	host.logos["t1"] = []byte(blob)
	s := newTestSession(t, host.dialer(), Options{}, clockwork.NewRealClock())

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// First view carries the sentinel; the fetch fills it in shortly after.
	room, _ := s.Room()
	if room.Teams[0].LogoURL != assets.Sentinel {
		t.Fatalf("initial logo = %q", room.Teams[0].LogoURL)
	}
	waitFor(t, "restored logo", func() bool {
		room, ok := s.Room()
		return ok && room.Teams[0].LogoURL == blob
	})
}

func TestPublish_SlowConsumerKeepsNewest(t *testing.T) {
	host := newHostHarness(hostRoom(), 100)
	s := newTestSession(t, host.dialer(), Options{}, clockwork.NewRealClock())

	for i := 0; i < 12; i++ {
		r := hostRoom()
		r.Name = fmt.Sprintf("r%d", i)
		s.storeSnapshot(r)
	}

	var last engine.Room
	for {
		select {
		case snap := <-s.Snapshots():
			last = snap
			continue
		default:
		}
		break
	}
	if last.Name != "r11" {
		t.Fatalf("newest snapshot = %q, want r11", last.Name)
	}
	room, _ := s.Room()
	if room.Name != "r11" {
		t.Fatalf("cached room = %q", room.Name)
	}
}
