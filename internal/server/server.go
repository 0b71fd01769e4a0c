// Package server is the HTTP transport for the waiting-room service.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/f-lab-edu/ticketing-platform/internal/gateway"
	"github.com/f-lab-edu/ticketing-platform/internal/inventory"
	"github.com/f-lab-edu/ticketing-platform/internal/queue"
	"github.com/f-lab-edu/ticketing-platform/internal/token"
)

type Server struct {
	gateway  *gateway.Service
	registry queue.Registry
	store    inventory.Store
	tokens   *token.Issuer
}

func New(gw *gateway.Service, registry queue.Registry, store inventory.Store, tokens *token.Issuer) *Server {
	return &Server{
		gateway:  gw,
		registry: registry,
		store:    store,
		tokens:   tokens,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/queues/{id}/enter", s.handleQueueEnter).Methods(http.MethodPost)
	r.HandleFunc("/queues/{id}/status", s.handleQueueStatus).Methods(http.MethodGet)
	r.HandleFunc("/queues/{id}/watch", s.handleQueueWatch).Methods(http.MethodGet)
	r.HandleFunc("/queues/{id}", s.handleQueueCancel).Methods(http.MethodDelete)

	r.HandleFunc("/ticket-stocks/{id}/direct", s.handleDirectPurchase).Methods(http.MethodPost)
	r.HandleFunc("/ticket-stocks/{id}/availability", s.handleAvailability).Methods(http.MethodGet)
	r.HandleFunc("/ticket-stocks/{id}", s.handleQueuedPurchase).Methods(http.MethodPost)
	r.HandleFunc("/ticket-stocks/{id}", s.handleSetStock).Methods(http.MethodPut)

	r.HandleFunc("/health-check", s.handleHealthCheck).Methods(http.MethodGet)

	r.Use(withCORS)
	return r
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		h.ServeHTTP(w, r)
	})
}
