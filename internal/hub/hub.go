package hub

import (
	"context"

	"github.com/pranayv/auction-backend/internal/engine"
	"github.com/pranayv/auction-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Code  string
	State engine.Room
	Reply chan *room.Session
}

type GetRoom struct {
	Code  string
	Reply chan *room.Session
}

type EnsureRoom struct {
	Code  string
	State engine.Room // only used if creation happens
	Reply chan *room.Session
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// SessionFactory builds a host session for a freshly created room; the
// hub stays ignorant of clocks, loggers and archival wiring.
type SessionFactory func(ctx context.Context, initial engine.Room) *room.Session

type Hub struct {
	inbox      chan HubMsg
	rooms      map[string]*room.Session
	newSession SessionFactory
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewHub(parent context.Context, factory SessionFactory) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:      make(chan HubMsg, 64),
		rooms:      make(map[string]*room.Session),
		newSession: factory,
		ctx:        ctx,
		cancel:     cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if s := h.rooms[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				s := h.newSession(h.ctx, msg.State)
				h.rooms[msg.Code] = s
				msg.Reply <- s

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case EnsureRoom:
				if s := h.rooms[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				s := h.newSession(h.ctx, msg.State)
				h.rooms[msg.Code] = s
				msg.Reply <- s

			case RemoveRoom:
				if s := h.rooms[msg.Code]; s != nil {
					s.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.Code)
				}

			case ShutdownHub:
				for _, s := range h.rooms {
					s.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}
