package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pranayv/auction-backend/internal/engine"
	"github.com/pranayv/auction-backend/internal/hub"
	"github.com/pranayv/auction-backend/internal/room"
)

// GenerateCode returns a short human-enterable room code. The code also
// derives the host's transport address, so it must be collision-checked
// against live rooms before use.
func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createRoomRequest struct {
	HostName string `json:"hostName"`
	RoomName string `json:"roomName"`
}

type createRoomResponse struct {
	Code   string `json:"code"`
	HostID string `json:"hostId"`
}

func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostName == "" || req.RoomName == "" {
			http.Error(w, "hostName and roomName required", http.StatusBadRequest)
			return
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *room.Session, 1)
			h.Inbox() <- hub.GetRoom{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
		}

		hostID := "host_" + uuid.NewString()
		initial := engine.NewRoom(code, hostID, req.RoomName, req.HostName, time.Now().UnixMilli())

		reply := make(chan *room.Session, 1)
		h.Inbox() <- hub.EnsureRoom{Code: code, State: initial, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createRoomResponse{Code: code, HostID: hostID})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
