package ws

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pranayv/auction-backend/internal/hub"
	"github.com/pranayv/auction-backend/internal/room"
	"github.com/pranayv/auction-backend/internal/transport"
)

// Handler upgrades a client into a peer link and hands it to the room
// session. The session owns the link from here on; it sends nothing
// until the client's REQUEST_SYNC arrives.
func Handler(h *hub.Hub) http.HandlerFunc {
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

		peerID := r.URL.Query().Get("peer")
		if peerID == "" {
			peerID = uuid.NewString()
		}

		link, err := transport.AcceptWS(w, r, peerID)
		if err != nil {
			return
		}
		s.Inbox() <- room.Attach{Link: link}
	}
}
