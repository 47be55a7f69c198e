// Package room hosts the authoritative side of one auction. A Session is
// a single-goroutine actor: peer frames, local host actions, the auction
// clock and the heartbeat all funnel through one inbox, so exactly one
// reducer application runs at a time and no lock guards canonical state.
package room

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/pranayv/auction-backend/internal/archive"
	"github.com/pranayv/auction-backend/internal/assets"
	"github.com/pranayv/auction-backend/internal/commentary"
	"github.com/pranayv/auction-backend/internal/engine"
	"github.com/pranayv/auction-backend/internal/transport"
	"github.com/pranayv/auction-backend/internal/wire"
)

type Msg interface{ isSessionMsg() }

// Attach registers a connected peer link. The peer receives nothing until
// it sends REQUEST_SYNC; pushing eagerly would race the channel open.
type Attach struct{ Link transport.Link }

// Detach removes a peer's registration. Link pins the teardown to one
// connection: a reconnect may have already claimed the peer id, and the
// replacement must survive the old link's death throes.
type Detach struct {
	PeerID string
	Link   transport.Link
}

// Ingest feeds one action into the reducer, from the local host UI or on
// behalf of a peer.
type Ingest struct {
	Action   engine.Action
	OriginID string
}

// GetView reflects internal state without data races; test-only.
type GetView struct{ Reply chan View }

type Shutdown struct{}

type fromPeer struct {
	peerID string
	data   []byte
}

type clockTick struct{}

type pingTick struct{}

func (Attach) isSessionMsg()    {}
func (Detach) isSessionMsg()    {}
func (Ingest) isSessionMsg()    {}
func (GetView) isSessionMsg()   {}
func (Shutdown) isSessionMsg()  {}
func (fromPeer) isSessionMsg()  {}
func (clockTick) isSessionMsg() {}
func (pingTick) isSessionMsg()  {}

type View struct {
	Room     engine.Room
	NumPeers int
}

type Options struct {
	PingInterval      time.Duration
	PresentationDelay time.Duration
	LogoByteLimit     int
}

func (o *Options) fill() {
	if o.PingInterval <= 0 {
		o.PingInterval = 5 * time.Second
	}
	if o.PresentationDelay <= 0 {
		o.PresentationDelay = 4 * time.Second
	}
}

// Archiver persists the one-shot record of a completed room.
type Archiver interface {
	Archive(ctx context.Context, rec archive.Record) error
}

type peer struct {
	link   transport.Link
	outbox chan []byte
	cancel context.CancelFunc
}

type Session struct {
	inbox  chan Msg
	room   engine.Room
	hostID string
	peers  map[string]*peer

	opts        Options
	clock       clockwork.Clock
	log         *zap.Logger
	commentator commentary.Commentator
	archiver    Archiver
	store       *assets.Store

	pingFrame []byte
	archived  bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(parent context.Context, initial engine.Room, opts Options,
	clock clockwork.Clock, log *zap.Logger, c commentary.Commentator, a Archiver) *Session {

	opts.fill()
	ctx, cancel := context.WithCancel(parent)

	pingFrame, _ := wire.Encode(wire.Message{Kind: wire.KindPing})

	s := &Session{
		inbox:       make(chan Msg, 64),
		room:        initial,
		hostID:      initial.HostID,
		peers:       make(map[string]*peer),
		opts:        opts,
		clock:       clock,
		log:         log.Named("room").With(zap.String("room_id", initial.ID)),
		commentator: c,
		archiver:    a,
		store:       assets.NewStore(opts.LogoByteLimit),
		pingFrame:   pingFrame,
		ctx:         ctx,
		cancel:      cancel,
	}

	go s.forwardTicks(clock.NewTicker(time.Second), clockTick{})
	go s.forwardTicks(clock.NewTicker(opts.PingInterval), pingTick{})
	go s.loop()
	return s
}

// Inbox exposes the session's single ingestion path.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Attach:
				s.attach(msg.Link)

			case Detach:
				s.detach(msg)

			case fromPeer:
				s.handleFrame(msg.peerID, msg.data)

			case Ingest:
				s.apply(msg.Action, msg.OriginID)

			case clockTick:
				s.step()

			case pingTick:
				s.broadcast(s.pingFrame)

			case GetView:
				msg.Reply <- View{Room: s.room, NumPeers: len(s.peers)}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) attach(link transport.Link) {
	id := link.RemoteID()
	if old, ok := s.peers[id]; ok {
		// Reconnect with the same identity replaces the stale link.
		s.drop(id, old)
	}

	pctx, pcancel := context.WithCancel(s.ctx)
	p := &peer{link: link, outbox: make(chan []byte, 8), cancel: pcancel}
	s.peers[id] = p

	go func() {
		for data := range p.outbox {
			if err := link.Send(pctx, data); err != nil {
				s.post(Detach{PeerID: id, Link: link})
				return
			}
		}
	}()
	go func() {
		defer link.Close()
		for {
			data, err := link.Recv(pctx)
			if err != nil {
				s.post(Detach{PeerID: id, Link: link})
				return
			}
			s.post(fromPeer{peerID: id, data: data})
		}
	}()

	s.log.Info("peer attached", zap.String("peer_id", id))
}

func (s *Session) detach(msg Detach) {
	p, ok := s.peers[msg.PeerID]
	if !ok {
		return
	}
	if msg.Link != nil && p.link != msg.Link {
		// Stale teardown from a link a reconnect already replaced.
		return
	}
	s.drop(msg.PeerID, p)
	s.log.Info("peer detached", zap.String("peer_id", msg.PeerID))
}

func (s *Session) drop(peerID string, p *peer) {
	close(p.outbox)
	p.cancel()
	delete(s.peers, peerID)
}

func (s *Session) handleFrame(peerID string, data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		s.log.Debug("undecodable frame", zap.String("peer_id", peerID), zap.Error(err))
		return
	}

	switch msg.Kind {
	case wire.KindRequestSync:
		s.sendTo(peerID, s.syncFrame())

	case wire.KindGetLogo:
		blob, ok := s.store.Get(msg.EntityID)
		if !ok {
			// Asset no longer held: stay silent, the client renders without it.
			return
		}
		frame, err := wire.Encode(wire.Message{Kind: wire.KindLogoResponse, EntityID: msg.EntityID, Logo: blob})
		if err == nil {
			s.sendTo(peerID, frame)
		}

	case wire.KindPing:
		// Liveness only.

	case wire.KindSync, wire.KindLogoResponse:
		// Host-to-client only; a peer sending these is confused. Drop.

	default:
		if msg.Action != nil {
			s.apply(msg.Action, peerID)
		}
	}
}

// apply is the single write path for canonical state. Invalid actions are
// dropped before any mutation, so there is nothing to roll back.
func (s *Session) apply(act engine.Action, originID string) {
	if add, ok := act.(engine.AddTeam); ok {
		if owner := add.Team.ControlledByUserID; owner != "" {
			if _, taken := s.room.TeamOf(owner); taken {
				s.log.Debug("add team rejected: participant already controls a team",
					zap.String("origin", originID), zap.String("user_id", owner))
				return
			}
		}
	}

	next, changed := engine.Apply(s.room, act, s.clock.Now())
	if !changed {
		return
	}
	completed := next.Status == engine.RoomCompleted && s.room.Status != engine.RoomCompleted
	s.room = next

	s.broadcast(s.syncFrame())

	if completed {
		s.archiveOnce()
	}
}

// step advances the auction clock by one second while a player is on the
// block, resolving SOLD/UNSOLD when the timer runs out.
func (s *Session) step() {
	gs := s.room.GameState
	if s.room.Status != engine.RoomActive || gs.IsPaused || gs.CurrentPlayerID == "" {
		return
	}
	if gs.Timer > 0 {
		s.apply(engine.UpdateTimer{Timer: gs.Timer - 1}, s.hostID)
		return
	}
	s.resolve()
}

func (s *Session) resolve() {
	pi := s.room.PlayerByID(s.room.GameState.CurrentPlayerID)
	if pi == -1 {
		return
	}
	player := s.room.Players[pi]
	bid := s.room.GameState.CurrentBid

	ti := -1
	if bid != nil {
		ti = s.room.TeamByID(bid.TeamID)
	}

	if bid != nil && ti != -1 {
		team := s.room.Teams[ti]
		amount := bid.Amount
		s.apply(engine.MarkSold{}, s.hostID)
		go s.decorate(func(ctx context.Context) (string, error) {
			return s.commentator.SoldLine(ctx, player, team, amount)
		})
	} else {
		s.apply(engine.MarkUnsold{}, s.hostID)
		go s.decorate(func(ctx context.Context) (string, error) {
			return s.commentator.UnsoldLine(ctx, player)
		})
	}

	// Presentation delay before the next player walks on; the reducer
	// tolerates NEXT_PLAYER at any time, so a stale fire is harmless.
	delay := s.clock.After(s.opts.PresentationDelay)
	hostID := s.hostID
	go func() {
		select {
		case <-delay:
			s.post(Ingest{Action: engine.NextPlayer{}, OriginID: hostID})
		case <-s.ctx.Done():
		}
	}()
}

// decorate fetches flavor text in the background and merges it with a
// follow-up append action. Auction progression never waits on it.
func (s *Session) decorate(fetch func(context.Context) (string, error)) {
	line, err := fetch(s.ctx)
	if err != nil || line == "" {
		return
	}
	s.post(Ingest{Action: engine.AddLog{Message: line, Type: engine.LogAI}, OriginID: s.hostID})
}

func (s *Session) archiveOnce() {
	if s.archived || s.archiver == nil {
		return
	}
	s.archived = true
	rec := archive.BuildRecord(s.room, s.clock.Now())
	log := s.log
	go func() {
		if err := s.archiver.Archive(s.ctx, rec); err != nil {
			log.Warn("archive write failed", zap.Error(err))
		}
	}()
}

func (s *Session) syncFrame() []byte {
	sanitized := s.store.Strip(s.room)
	frame, err := wire.Encode(wire.Message{Kind: wire.KindSync, Room: &sanitized})
	if err != nil {
		s.log.Error("encode sync", zap.Error(err))
		return nil
	}
	return frame
}

func (s *Session) sendTo(peerID string, frame []byte) {
	if frame == nil {
		return
	}
	p, ok := s.peers[peerID]
	if !ok {
		return
	}
	select {
	case p.outbox <- frame:
	default:
		s.drop(peerID, p)
	}
}

func (s *Session) broadcast(frame []byte) {
	if frame == nil {
		return
	}
	for id, p := range s.peers {
		select {
		case p.outbox <- frame:
		default:
			// Slow or wedged peer: drop it, reconnection re-syncs.
			s.drop(id, p)
		}
	}
}

func (s *Session) forwardTicks(t clockwork.Ticker, msg Msg) {
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.Chan():
			select {
			case s.inbox <- msg:
			default:
				// Inbox congested: skip the tick rather than back up.
			}
		}
	}
}

func (s *Session) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) shutdown() {
	for id, p := range s.peers {
		s.drop(id, p)
	}
	s.cancel()
}
