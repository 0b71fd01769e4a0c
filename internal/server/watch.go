package server

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type queueStateMessage struct {
	TicketStockID string   `json:"ticketStockId"`
	TotalInQueue  int      `json:"totalInQueue"`
	AdmittedCount int      `json:"admittedCount"`
	UserIDs       []string `json:"userIds"`
}

// handleQueueWatch streams the queue state once per second over a websocket,
// for operator dashboards.
func (s *Server) handleQueueWatch(w http.ResponseWriter, r *http.Request) {
	ticketStockID := mux.Vars(r)["id"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	log.Printf("Queue watch session %s started for stock %s", sessionID, ticketStockID)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		users, err := s.registry.WaitingUsers(r.Context(), ticketStockID)
		if err != nil {
			log.Printf("Error getting queue state: %v", err)
			return
		}
		admitted, err := s.registry.AdmittedCount(r.Context(), ticketStockID)
		if err != nil {
			log.Printf("Error getting admitted count: %v", err)
			return
		}

		state := queueStateMessage{
			TicketStockID: ticketStockID,
			TotalInQueue:  len(users),
			AdmittedCount: admitted,
			UserIDs:       users,
		}

		if err := conn.WriteJSON(state); err != nil {
			log.Printf("Queue watch session %s closed", sessionID)
			return
		}
	}
}
