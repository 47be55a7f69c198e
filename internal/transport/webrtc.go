package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/pion/webrtc/v3"
)

// DataChannelLabel is the only channel the auction protocol listens on.
const DataChannelLabel = "auction-v1"

var rtcConfig = webrtc.Configuration{
	ICEServers: []webrtc.ICEServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
	},
}

// SDPMessage is the JSON body exchanged over the signaling endpoint.
type SDPMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// RTCLink carries wire frames over one WebRTC datachannel.
type RTCLink struct {
	pc       *webrtc.PeerConnection
	dc       *webrtc.DataChannel
	remoteID string
	inbox    chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newRTCLink(pc *webrtc.PeerConnection, dc *webrtc.DataChannel, remoteID string) *RTCLink {
	l := &RTCLink{
		pc:       pc,
		dc:       dc,
		remoteID: remoteID,
		inbox:    make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case l.inbox <- msg.Data:
		case <-l.done:
		default:
			// Inbox full: the reader has stalled, drop the frame. The
			// next SYNC carries the full state anyway.
		}
	})
	dc.OnClose(func() {
		l.closeOnce.Do(func() { close(l.done) })
	})
	return l
}

// AnswerOffer handles the host side of signaling: it accepts a remote
// offer, returns the gathered answer, and delivers the link on ready once
// the peer's datachannel opens.
func AnswerOffer(ctx context.Context, offer SDPMessage, remoteID string) (SDPMessage, <-chan *RTCLink, error) {
	pc, err := webrtc.NewAPI().NewPeerConnection(rtcConfig)
	if err != nil {
		return SDPMessage{}, nil, fmt.Errorf("create peer connection: %w", err)
	}

	ready := make(chan *RTCLink, 1)
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != DataChannelLabel {
			return
		}
		link := newRTCLink(pc, dc, remoteID)
		dc.OnOpen(func() { ready <- link })
	})

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.SDP,
	}); err != nil {
		pc.Close()
		return SDPMessage{}, nil, fmt.Errorf("set remote offer: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return SDPMessage{}, nil, fmt.Errorf("create answer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return SDPMessage{}, nil, fmt.Errorf("set local answer: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		pc.Close()
		return SDPMessage{}, nil, ctx.Err()
	}

	return SDPMessage{Type: "answer", SDP: pc.LocalDescription().SDP}, ready, nil
}

// DialRTC handles the client side: create the datachannel, exchange SDP
// with the host's signaling endpoint over HTTP, and wait for the channel
// to open.
func DialRTC(ctx context.Context, signalURL, remoteID string) (*RTCLink, error) {
	pc, err := webrtc.NewAPI().NewPeerConnection(rtcConfig)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	dc, err := pc.CreateDataChannel(DataChannelLabel, nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create datachannel: %w", err)
	}
	link := newRTCLink(pc, dc, remoteID)
	opened := make(chan struct{})
	dc.OnOpen(func() { close(opened) })

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return nil, fmt.Errorf("set local offer: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		pc.Close()
		return nil, ctx.Err()
	}

	answer, err := exchangeSDP(ctx, signalURL, SDPMessage{Type: "offer", SDP: pc.LocalDescription().SDP})
	if err != nil {
		pc.Close()
		return nil, err
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer.SDP,
	}); err != nil {
		pc.Close()
		return nil, fmt.Errorf("set remote answer: %w", err)
	}

	select {
	case <-opened:
		return link, nil
	case <-ctx.Done():
		pc.Close()
		return nil, ctx.Err()
	}
}

func exchangeSDP(ctx context.Context, url string, offer SDPMessage) (SDPMessage, error) {
	body, err := json.Marshal(offer)
	if err != nil {
		return SDPMessage{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SDPMessage{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return SDPMessage{}, fmt.Errorf("signaling exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return SDPMessage{}, fmt.Errorf("signaling exchange: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return SDPMessage{}, err
	}
	var answer SDPMessage
	if err := json.Unmarshal(data, &answer); err != nil {
		return SDPMessage{}, err
	}
	return answer, nil
}

func (l *RTCLink) Send(ctx context.Context, data []byte) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	return l.dc.Send(data)
}

func (l *RTCLink) Recv(ctx context.Context) ([]byte, error) {
	select {
	case <-l.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case data := <-l.inbox:
		return data, nil
	}
}

func (l *RTCLink) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return l.pc.Close()
}

func (l *RTCLink) RemoteID() string { return l.remoteID }
