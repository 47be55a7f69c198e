// Package client implements the non-host side of a room: a read-only
// snapshot cache, action forwarding, and the liveness monitor that tears
// the link down and re-runs the handshake when the host goes quiet.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/pranayv/auction-backend/internal/assets"
	"github.com/pranayv/auction-backend/internal/engine"
	"github.com/pranayv/auction-backend/internal/transport"
	"github.com/pranayv/auction-backend/internal/wire"
)

var (
	ErrNotConnected      = errors.New("not connected to host")
	ErrUnsupportedAction = errors.New("action has no wire form")
)

type Options struct {
	HandshakeTimeout time.Duration
	MaxAttempts      int
	RetryBackoff     time.Duration
	PingInterval     time.Duration
	StaleMultiplier  int
}

func (o *Options) fill() {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 5 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 5 * time.Second
	}
	if o.StaleMultiplier <= 0 {
		o.StaleMultiplier = 3
	}
}

// Session is one participant's view of a room. It never mutates
// authoritative fields: the cache is replaced wholesale on every SYNC.
type Session struct {
	userID string
	name   string
	dial   transport.Dialer
	opts   Options
	clock  clockwork.Clock
	log    *zap.Logger
	cache  *assets.Cache

	mu          sync.RWMutex
	link        transport.Link
	connCancel  context.CancelFunc // stops the monitor watching link
	raw         *engine.Room       // last snapshot as received (sentinels intact)
	view        *engine.Room       // last snapshot with cached logos restored
	lastInbound time.Time
	requested   map[string]bool
	err         error

	reconnecting atomic.Bool
	snapshots    chan engine.Room

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(parent context.Context, userID, name string, dial transport.Dialer,
	opts Options, clock clockwork.Clock, log *zap.Logger) *Session {

	opts.fill()
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		userID:    userID,
		name:      name,
		dial:      dial,
		opts:      opts,
		clock:     clock,
		log:       log.Named("client").With(zap.String("user_id", userID)),
		cache:     assets.NewCache(),
		requested: make(map[string]bool),
		snapshots: make(chan engine.Room, 8),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect dials the host and runs the full handshake, retrying with
// backoff. The failure is surfaced only after every attempt is spent.
func (s *Session) Connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		link, first, err := s.handshake(ctx)
		if err == nil {
			// The monitor lives exactly as long as this connection; a
			// reconnect cancels it along with the link it was watching.
			cctx, ccancel := context.WithCancel(s.ctx)
			s.mu.Lock()
			s.link = link
			s.connCancel = ccancel
			s.lastInbound = s.clock.Now()
			s.mu.Unlock()
			s.storeSnapshot(*first)
			go s.readLoop(link)
			go s.monitor(cctx)
			return nil
		}
		lastErr = err
		s.log.Warn("handshake failed",
			zap.Int("attempt", attempt), zap.Int("max_attempts", s.opts.MaxAttempts), zap.Error(err))
		if attempt < s.opts.MaxAttempts {
			select {
			case <-s.clock.After(time.Duration(attempt) * s.opts.RetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("connect to host: %w", lastErr)
}

// handshake: open channel, REQUEST_SYNC, JOIN, then wait for the first
// SYNC. The host holds no durable per-client session, so a reconnect
// always comes back through here.
func (s *Session) handshake(ctx context.Context) (transport.Link, *engine.Room, error) {
	hctx, cancel := context.WithTimeout(ctx, s.opts.HandshakeTimeout)
	defer cancel()

	link, err := s.dial(hctx)
	if err != nil {
		return nil, nil, err
	}

	reqSync, _ := wire.Encode(wire.Message{Kind: wire.KindRequestSync})
	join, _ := wire.Encode(wire.Message{Kind: wire.KindJoin, Action: engine.Join{UserID: s.userID, Name: s.name}})
	if err := link.Send(hctx, reqSync); err != nil {
		link.Close()
		return nil, nil, err
	}
	if err := link.Send(hctx, join); err != nil {
		link.Close()
		return nil, nil, err
	}

	for {
		data, err := link.Recv(hctx)
		if err != nil {
			link.Close()
			return nil, nil, fmt.Errorf("awaiting first sync: %w", err)
		}
		msg, err := wire.Decode(data)
		if err != nil {
			continue
		}
		if msg.Kind == wire.KindSync && msg.Room != nil {
			return link, msg.Room, nil
		}
	}
}

func (s *Session) readLoop(link transport.Link) {
	for {
		data, err := link.Recv(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.Warn("link lost", zap.Error(err))
			s.reconnect()
			return
		}
		s.touch()
		s.handleFrame(data)
	}
}

func (s *Session) handleFrame(data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		s.log.Debug("undecodable frame", zap.Error(err))
		return
	}
	switch msg.Kind {
	case wire.KindSync:
		if msg.Room != nil {
			s.storeSnapshot(*msg.Room)
		}
	case wire.KindLogoResponse:
		s.cache.Put(msg.EntityID, msg.Logo)
		s.mu.RLock()
		raw := s.raw
		s.mu.RUnlock()
		if raw != nil {
			s.storeSnapshot(*raw)
		}
	case wire.KindPing:
		// Any inbound frame already counted as liveness.
	}
}

// storeSnapshot replaces the cache wholesale, splices cached logos back
// in, notifies the UI, and fetches any logo it has not seen yet.
func (s *Session) storeSnapshot(raw engine.Room) {
	view := s.cache.Restore(raw)

	s.mu.Lock()
	s.raw = &raw
	s.view = &view
	s.mu.Unlock()

	s.publish(view)

	for _, id := range s.cache.Missing(view) {
		s.mu.Lock()
		seen := s.requested[id]
		s.requested[id] = true
		s.mu.Unlock()
		if seen {
			continue
		}
		frame, err := wire.Encode(wire.Message{Kind: wire.KindGetLogo, EntityID: id})
		if err == nil {
			_ = s.send(frame)
		}
	}
}

func (s *Session) publish(view engine.Room) {
	for {
		select {
		case s.snapshots <- view:
			return
		default:
		}
		// Full: evict the oldest so the UI always lands on the latest.
		select {
		case <-s.snapshots:
		default:
		}
	}
}

// monitor declares the link dead when the host has been silent for too
// long. Spurious trips are fine: reconnection is idempotent.
func (s *Session) monitor(ctx context.Context) {
	ticker := s.clock.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	stale := time.Duration(s.opts.StaleMultiplier) * s.opts.PingInterval
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.mu.RLock()
			last := s.lastInbound
			s.mu.RUnlock()
			if s.clock.Since(last) > stale {
				s.log.Warn("host silent beyond threshold, reconnecting",
					zap.Duration("threshold", stale))
				s.reconnect()
				return
			}
		}
	}
}

// reconnect tears the local endpoint down and re-runs the whole
// handshake against the same room. Only one reconnect runs at a time.
func (s *Session) reconnect() {
	if !s.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer s.reconnecting.Store(false)

	s.mu.Lock()
	if s.connCancel != nil {
		s.connCancel()
		s.connCancel = nil
	}
	if s.link != nil {
		s.link.Close()
		s.link = nil
	}
	clear(s.requested)
	s.mu.Unlock()

	if err := s.Connect(s.ctx); err != nil {
		s.fail(err)
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.cancel()
}

// Dispatch forwards a local user intent to the host. Fire-and-forget:
// the host never acknowledges, the next SYNC tells the story.
func (s *Session) Dispatch(act engine.Action) error {
	msg, ok := wire.FromAction(act)
	if !ok {
		return ErrUnsupportedAction
	}
	frame, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	return s.send(frame)
}

func (s *Session) send(frame []byte) error {
	s.mu.RLock()
	link := s.link
	s.mu.RUnlock()
	if link == nil {
		return ErrNotConnected
	}
	return link.Send(s.ctx, frame)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastInbound = s.clock.Now()
	s.mu.Unlock()
}

// Room returns the latest cached snapshot.
func (s *Session) Room() (engine.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.view == nil {
		return engine.Room{}, false
	}
	return *s.view, true
}

// Snapshots delivers each new view; slow consumers only ever lose
// intermediate frames, never the newest.
func (s *Session) Snapshots() <-chan engine.Room { return s.snapshots }

func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Err reports why the session stopped, if it stopped on a failure.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) Close() {
	s.cancel()
	s.mu.Lock()
	if s.link != nil {
		s.link.Close()
		s.link = nil
	}
	s.mu.Unlock()
}
