package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pranayv/auction-backend/internal/hub"
	"github.com/pranayv/auction-backend/internal/room"
	"github.com/pranayv/auction-backend/internal/transport"
)

// How long a negotiated peer gets to actually open its datachannel
// before the pending link is abandoned.
const channelOpenTimeout = 30 * time.Second

// SignalHandler exchanges WebRTC SDP with a joining client: it answers
// the posted offer and attaches the datachannel link to the room session
// once the channel opens.
func SignalHandler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *room.Session, 1)
		h.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
		s := <-reply
		if s == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		var offer transport.SDPMessage
		if err := json.NewDecoder(r.Body).Decode(&offer); err != nil || offer.Type != "offer" || offer.SDP == "" {
			http.Error(w, "expected offer", http.StatusBadRequest)
			return
		}

		peerID := r.URL.Query().Get("peer")
		if peerID == "" {
			peerID = uuid.NewString()
		}

		answer, ready, err := transport.AnswerOffer(r.Context(), offer, peerID)
		if err != nil {
			http.Error(w, "negotiation failed", http.StatusInternalServerError)
			return
		}

		go func() {
			select {
			case link := <-ready:
				s.Inbox() <- room.Attach{Link: link}
			case <-time.After(channelOpenTimeout):
				// Peer never opened the channel; nothing to clean up,
				// the abandoned connection times itself out.
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(answer)
	}
}
