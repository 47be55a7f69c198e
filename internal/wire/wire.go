// Package wire defines the tagged JSON envelope exchanged between host
// and clients. Action-carrying variants embed the reducer's own action
// structs so the wire and the state machine can never drift apart.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pranayv/auction-backend/internal/engine"
)

var ErrUnknownKind = errors.New("unknown message kind")

type Kind string

const (
	KindSync          Kind = "SYNC"
	KindRequestSync   Kind = "REQUEST_SYNC"
	KindJoin          Kind = "JOIN"
	KindAddTeam       Kind = "ADD_TEAM"
	KindUpdateTeam    Kind = "UPDATE_TEAM"
	KindRemoveTeam    Kind = "REMOVE_TEAM"
	KindUpdateConfig  Kind = "UPDATE_CONFIG"
	KindImportPlayers Kind = "IMPORT_PLAYERS"
	KindStartGame     Kind = "START_GAME"
	KindEndGame       Kind = "END_GAME"
	KindBid           Kind = "BID"
	KindSold          Kind = "SOLD"
	KindUnsold        Kind = "UNSOLD"
	KindNextPlayer    Kind = "NEXT_PLAYER"
	KindTogglePause   Kind = "TOGGLE_PAUSE"
	KindUpdateTimer   Kind = "UPDATE_TIMER"
	KindPing          Kind = "PING"
	KindGetLogo       Kind = "GET_LOGO"
	KindLogoResponse  Kind = "LOGO_RESPONSE"
	KindAddLog        Kind = "ADD_LOG"
)

// Message is one decoded wire frame. Exactly one payload field is set,
// according to Kind: Room for SYNC, Action for the action variants,
// EntityID/Logo for the asset fetch pair. PING and REQUEST_SYNC carry
// nothing.
type Message struct {
	Kind     Kind
	Room     *engine.Room
	Action   engine.Action
	EntityID string
	Logo     []byte
}

type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type logoRequest struct {
	EntityID string `json:"entityId"`
}

type logoResponse struct {
	EntityID string `json:"entityId"`
	Bytes    []byte `json:"bytes"`
}

func Encode(m Message) ([]byte, error) {
	var payload any
	switch m.Kind {
	case KindSync:
		payload = m.Room
	case KindRequestSync, KindPing:
		payload = nil
	case KindGetLogo:
		payload = logoRequest{EntityID: m.EntityID}
	case KindLogoResponse:
		payload = logoResponse{EntityID: m.EntityID, Bytes: m.Logo}
	default:
		if m.Action == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
		}
		payload = m.Action
	}

	env := envelope{Type: m.Kind}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, err
	}

	m := Message{Kind: env.Type}
	switch env.Type {
	case KindSync:
		var room engine.Room
		if err := json.Unmarshal(env.Payload, &room); err != nil {
			return Message{}, err
		}
		m.Room = &room
	case KindRequestSync, KindPing:
	case KindGetLogo:
		var req logoRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return Message{}, err
		}
		m.EntityID = req.EntityID
	case KindLogoResponse:
		var resp logoResponse
		if err := json.Unmarshal(env.Payload, &resp); err != nil {
			return Message{}, err
		}
		m.EntityID = resp.EntityID
		m.Logo = resp.Bytes
	default:
		act, err := decodeAction(env.Type, env.Payload)
		if err != nil {
			return Message{}, err
		}
		m.Action = act
	}
	return m, nil
}

func decodeAction(kind Kind, payload json.RawMessage) (engine.Action, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	switch kind {
	case KindJoin:
		var a engine.Join
		return a, json.Unmarshal(payload, &a)
	case KindAddTeam:
		var a engine.AddTeam
		return a, json.Unmarshal(payload, &a)
	case KindUpdateTeam:
		var a engine.UpdateTeam
		return a, json.Unmarshal(payload, &a)
	case KindRemoveTeam:
		var a engine.RemoveTeam
		return a, json.Unmarshal(payload, &a)
	case KindUpdateConfig:
		var a engine.UpdateConfig
		return a, json.Unmarshal(payload, &a)
	case KindImportPlayers:
		var a engine.ImportPlayers
		return a, json.Unmarshal(payload, &a)
	case KindStartGame:
		return engine.StartGame{}, nil
	case KindEndGame:
		return engine.EndGame{}, nil
	case KindBid:
		var a engine.PlaceBid
		return a, json.Unmarshal(payload, &a)
	case KindSold:
		var a engine.MarkSold
		return a, json.Unmarshal(payload, &a)
	case KindUnsold:
		var a engine.MarkUnsold
		return a, json.Unmarshal(payload, &a)
	case KindNextPlayer:
		return engine.NextPlayer{}, nil
	case KindTogglePause:
		return engine.TogglePause{}, nil
	case KindUpdateTimer:
		var a engine.UpdateTimer
		return a, json.Unmarshal(payload, &a)
	case KindAddLog:
		var a engine.AddLog
		return a, json.Unmarshal(payload, &a)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// FromAction wraps a reducer action in its wire message.
func FromAction(act engine.Action) (Message, bool) {
	var kind Kind
	switch act.(type) {
	case engine.Join:
		kind = KindJoin
	case engine.AddTeam:
		kind = KindAddTeam
	case engine.UpdateTeam:
		kind = KindUpdateTeam
	case engine.RemoveTeam:
		kind = KindRemoveTeam
	case engine.UpdateConfig:
		kind = KindUpdateConfig
	case engine.ImportPlayers:
		kind = KindImportPlayers
	case engine.StartGame:
		kind = KindStartGame
	case engine.EndGame:
		kind = KindEndGame
	case engine.PlaceBid:
		kind = KindBid
	case engine.MarkSold:
		kind = KindSold
	case engine.MarkUnsold:
		kind = KindUnsold
	case engine.NextPlayer:
		kind = KindNextPlayer
	case engine.TogglePause:
		kind = KindTogglePause
	case engine.UpdateTimer:
		kind = KindUpdateTimer
	case engine.AddLog:
		kind = KindAddLog
	default:
		return Message{}, false
	}
	return Message{Kind: kind, Action: act}, true
}
