package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pranayv/auction-backend/internal/transport"
)

// WSDialer builds a Dialer for the host's websocket endpoint. baseURL is
// the host's HTTP origin, e.g. "ws://192.168.1.4:8080". Each dial is a
// fresh local endpoint, which is what reconnection relies on.
func WSDialer(baseURL, code, peerID string) transport.Dialer {
	return func(ctx context.Context) (transport.Link, error) {
		u := fmt.Sprintf("%s/ws?code=%s&peer=%s",
			baseURL, url.QueryEscape(code), url.QueryEscape(peerID))
		return transport.DialWS(ctx, u, transport.Addr(code))
	}
}

// RTCDialer builds a Dialer that negotiates a WebRTC datachannel through
// the host's signaling endpoint. baseURL is the host's HTTP origin.
func RTCDialer(baseURL, code, peerID string) transport.Dialer {
	return func(ctx context.Context) (transport.Link, error) {
		u := fmt.Sprintf("%s/signal?code=%s&peer=%s",
			baseURL, url.QueryEscape(code), url.QueryEscape(peerID))
		return transport.DialRTC(ctx, u, transport.Addr(code))
	}
}
