package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const wsWriteTimeout = 3 * time.Second

// WSLink carries wire frames over one websocket connection.
type WSLink struct {
	conn     *websocket.Conn
	remoteID string
}

// AcceptWS upgrades an inbound HTTP request into a host-side link.
func AcceptWS(w http.ResponseWriter, r *http.Request, remoteID string) (*WSLink, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Browser clients connect cross-origin from the static app host.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, err
	}
	return &WSLink{conn: conn, remoteID: remoteID}, nil
}

// DialWS opens a client-side link to the host's websocket endpoint.
func DialWS(ctx context.Context, url, remoteID string) (*WSLink, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &WSLink{conn: conn, remoteID: remoteID}, nil
}

func (l *WSLink) Send(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return l.conn.Write(ctx, websocket.MessageText, data)
}

func (l *WSLink) Recv(ctx context.Context) ([]byte, error) {
	_, data, err := l.conn.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return nil, ErrClosed
		}
		return nil, err
	}
	return data, nil
}

func (l *WSLink) Close() error {
	return l.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (l *WSLink) RemoteID() string { return l.remoteID }
