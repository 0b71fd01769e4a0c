package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/f-lab-edu/ticketing-platform/internal/domain"
)

type queueEnterRequest struct {
	UserID string `json:"userId"`
}

type queueStatusResponse struct {
	UserID         string             `json:"userId"`
	TicketStockID  string             `json:"ticketStockId"`
	Position       *int64             `json:"position"`
	CanEnter       bool               `json:"canEnter"`
	Status         domain.QueueStatus `json:"status"`
	AdmissionToken string             `json:"admissionToken,omitempty"`
}

type purchaseRequest struct {
	UserID          string `json:"userId"`
	RequestQuantity int    `json:"requestQuantity"`
}

type purchaseResponse struct {
	TicketStockID    string `json:"ticketStockId"`
	UserID           string `json:"userId,omitempty"`
	Quantity         int    `json:"quantity"`
	Remaining        int    `json:"remaining"`
	OrderReferenceID string `json:"orderReferenceId"`
}

type setStockRequest struct {
	TotalQuantity int `json:"totalQuantity"`
}

type stockResponse struct {
	TicketStockID     string `json:"ticketStockId"`
	RemainingQuantity int    `json:"remainingQuantity"`
}

func (s *Server) handleQueueEnter(w http.ResponseWriter, r *http.Request) {
	ticketStockID := mux.Vars(r)["id"]

	var req queueEnterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "userId is required")
		return
	}

	info, err := s.registry.Enter(r.Context(), ticketStockID, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, s.statusResponse(info))
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	ticketStockID := mux.Vars(r)["id"]
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "userId parameter is required")
		return
	}

	info, err := s.registry.Status(r.Context(), ticketStockID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, s.statusResponse(info))
}

func (s *Server) handleQueueCancel(w http.ResponseWriter, r *http.Request) {
	ticketStockID := mux.Vars(r)["id"]
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "userId parameter is required")
		return
	}

	if err := s.registry.Leave(r.Context(), ticketStockID, userID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, "cancelled")
}

func (s *Server) handleDirectPurchase(w http.ResponseWriter, r *http.Request) {
	ticketStockID := mux.Vars(r)["id"]

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	result, err := s.gateway.DirectPurchase(r.Context(), ticketStockID, req.RequestQuantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, purchaseResponse{
		TicketStockID:    result.TicketStockID,
		Quantity:         result.Quantity,
		Remaining:        result.Remaining,
		OrderReferenceID: result.OrderReferenceID,
	})
}

func (s *Server) handleQueuedPurchase(w http.ResponseWriter, r *http.Request) {
	ticketStockID := mux.Vars(r)["id"]

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	result, err := s.gateway.QueuedPurchase(r.Context(), ticketStockID, req.UserID, req.RequestQuantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, purchaseResponse{
		TicketStockID:    result.TicketStockID,
		UserID:           result.UserID,
		Quantity:         result.Quantity,
		Remaining:        result.Remaining,
		OrderReferenceID: result.OrderReferenceID,
	})
}

func (s *Server) handleSetStock(w http.ResponseWriter, r *http.Request) {
	ticketStockID := mux.Vars(r)["id"]

	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	if err := s.store.SetStock(r.Context(), ticketStockID, req.TotalQuantity); err != nil {
		writeDomainError(w, err)
		return
	}

	log.Printf("Stocked ticket stock %s with %d tickets", ticketStockID, req.TotalQuantity)
	writeData(w, stockResponse{
		TicketStockID:     ticketStockID,
		RemainingQuantity: req.TotalQuantity,
	})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ticketStockID := mux.Vars(r)["id"]
	admissionToken := r.URL.Query().Get("admission_token")
	if admissionToken == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "admission_token parameter is required")
		return
	}

	if !s.tokens.Validate(ticketStockID, admissionToken) {
		writeError(w, http.StatusUnauthorized, codeNotAdmitted, "invalid admission token")
		return
	}

	remaining, err := s.store.Remaining(r.Context(), ticketStockID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, stockResponse{
		TicketStockID:     ticketStockID,
		RemainingQuantity: remaining,
	})
}

// statusResponse attaches an admission token once the user may enter, so
// downstream services can verify admission without a registry lookup.
func (s *Server) statusResponse(info domain.QueueInfo) queueStatusResponse {
	resp := queueStatusResponse{
		UserID:        info.UserID,
		TicketStockID: info.TicketStockID,
		Position:      info.Position,
		CanEnter:      info.CanEnter,
		Status:        info.Status,
	}

	if info.CanEnter && s.tokens != nil {
		signed, err := s.tokens.Issue(info.TicketStockID, info.UserID, info.Deadline)
		if err != nil {
			log.Printf("Failed to issue admission token for %s: %v", info.UserID, err)
		} else {
			resp.AdmissionToken = signed
		}
	}
	return resp
}
