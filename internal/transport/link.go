// Package transport provides the point-to-point message links the room
// protocol runs over. A Link is reliable and ordered; everything above it
// is plain byte frames.
package transport

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("link closed")

// AddrPrefix namespaces host endpoints so a short room code maps to a
// globally unique, human-enterable address.
const AddrPrefix = "auction-room-v2-"

// Addr derives the host's transport-addressable endpoint from a room code.
func Addr(code string) string { return AddrPrefix + code }

// Link is one reliable, ordered, message-based channel to a single peer.
type Link interface {
	// Send writes one frame; it must not be called concurrently with itself.
	Send(ctx context.Context, data []byte) error
	// Recv blocks for the next frame. Returns ErrClosed (or a transport
	// error) once the link is down.
	Recv(ctx context.Context) ([]byte, error)
	Close() error
	// RemoteID identifies the peer for point-to-point replies.
	RemoteID() string
}

// Dialer opens a fresh link to the host. Reconnection calls it again; a
// new dial implies a new local transport identity.
type Dialer func(ctx context.Context) (Link, error)

// PipeLink is an in-process Link for tests and same-process host UIs.
type PipeLink struct {
	remoteID  string
	in        chan []byte
	out       chan []byte
	closeOnce *sync.Once
	done      chan struct{}
}

// Pipe returns two connected links. Frames sent on one side arrive on the
// other, in order. Closing either side closes both.
func Pipe(aRemoteID, bRemoteID string) (*PipeLink, *PipeLink) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	done := make(chan struct{})
	once := &sync.Once{}
	a := &PipeLink{remoteID: aRemoteID, in: ba, out: ab, closeOnce: once, done: done}
	b := &PipeLink{remoteID: bRemoteID, in: ab, out: ba, closeOnce: once, done: done}
	return a, b
}

func (p *PipeLink) Send(ctx context.Context, data []byte) error {
	// Checked first: with buffer space free, the combined select below
	// could pick the send arm even after Close.
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	select {
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.out <- buf:
		return nil
	}
}

func (p *PipeLink) Recv(ctx context.Context) ([]byte, error) {
	select {
	case <-p.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case data := <-p.in:
		return data, nil
	}
}

func (p *PipeLink) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

func (p *PipeLink) RemoteID() string { return p.remoteID }
