package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/openmarket/auctiond/internal/models"
	"github.com/openmarket/auctiond/internal/rest"
)

// AuctionDirectory proves an auction exists and is visible before a client
// may subscribe to its live group.
type AuctionDirectory interface {
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
}

// WebSocketHandler handles WebSocket upgrade requests for auction connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	auctions          AuctionDirectory
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(cm *ConnectionManager, auctions AuctionDirectory) *WebSocketHandler {
	cm.SetJoinGuard(func(auctionID uuid.UUID) error {
		_, err := auctions.GetAuction(context.Background(), auctionID)
		return err
	})
	return &WebSocketHandler{
		connectionManager: cm,
		auctions:          auctions,
	}
}

// HandleAuctionConnection handles WebSocket connections for a specific auction.
func (h *WebSocketHandler) HandleAuctionConnection(w http.ResponseWriter, r *http.Request) {
	auctionIDStr := r.URL.Query().Get("auction_id")
	if auctionIDStr == "" {
		http.Error(w, "auction_id is required", http.StatusBadRequest)
		return
	}
	auctionID, err := uuid.Parse(auctionIDStr)
	if err != nil {
		http.Error(w, "invalid auction_id format", http.StatusBadRequest)
		return
	}

	userID, err := rest.UserID(r)
	if err != nil {
		// Query-param fallback for browser clients that cannot set headers.
		userID, err = uuid.Parse(r.URL.Query().Get("user_id"))
		if err != nil {
			http.Error(w, "user identity is required", http.StatusUnauthorized)
			return
		}
	}

	if _, err := h.auctions.GetAuction(r.Context(), auctionID); err != nil {
		http.Error(w, "auction not found", http.StatusNotFound)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, userID, auctionID); err != nil {
		log.Error().
			Err(err).
			Str("auction_id", auctionID.String()).
			Str("user_id", userID.String()).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, auctions := h.connectionManager.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"total_connections":%d,"active_auctions":%d}`, total, auctions)
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/auctions", h.HandleAuctionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
