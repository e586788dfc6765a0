package bid

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/openmarket/auctiond/internal/auction"
	"github.com/openmarket/auctiond/internal/rest"
)

// Service exposes bid placement, retraction, rejection and the ranking views
// over HTTP.
type Service struct {
	app *App
}

// NewService creates a new bid HTTP service.
func NewService(app *App) *Service {
	return &Service{
		app: app,
	}
}

// RegisterRoutes registers bid routes with an HTTP mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auctions/{id}/bids", s.handlePlaceBid)
	mux.HandleFunc("DELETE /api/auctions/{id}/bids/{bidID}", s.handleRetractBid)
	mux.HandleFunc("POST /api/auctions/{id}/bids/{bidID}/reject", s.handleRejectBid)
	mux.HandleFunc("GET /api/auctions/{id}/participants", s.handleParticipants)
	mux.HandleFunc("GET /api/auctions/{id}/winners", s.handleWinners)
	mux.HandleFunc("GET /api/auctions/{id}/leaderboard", s.handleLeaderboard)
}

type placeBidBody struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Service) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	callerID, auctionID, ok := callerAndAuction(w, r)
	if !ok {
		return
	}

	var body placeBidBody
	if err := rest.Decode(r, &body); err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	bid, err := s.app.PlaceBid(r.Context(), PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  callerID,
		Amount:    body.Amount,
	})
	if err != nil {
		writeBidError(w, err)
		return
	}
	rest.JSON(w, http.StatusCreated, bid)
}

func (s *Service) handleRetractBid(w http.ResponseWriter, r *http.Request) {
	callerID, auctionID, ok := callerAndAuction(w, r)
	if !ok {
		return
	}
	bidID, err := uuid.Parse(r.PathValue("bidID"))
	if err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_id", "invalid bid id")
		return
	}

	bid, err := s.app.RetractBid(r.Context(), auctionID, bidID, callerID)
	if err != nil {
		writeBidError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, bid)
}

func (s *Service) handleRejectBid(w http.ResponseWriter, r *http.Request) {
	callerID, auctionID, ok := callerAndAuction(w, r)
	if !ok {
		return
	}
	bidID, err := uuid.Parse(r.PathValue("bidID"))
	if err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_id", "invalid bid id")
		return
	}

	bid, err := s.app.RejectBid(r.Context(), auctionID, bidID, callerID)
	if err != nil {
		writeBidError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, bid)
}

func (s *Service) handleParticipants(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_id", "invalid auction id")
		return
	}
	rows, err := s.app.Participants(r.Context(), auctionID)
	if err != nil {
		writeBidError(w, err)
		return
	}
	writeRows(w, rows)
}

func (s *Service) handleWinners(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_id", "invalid auction id")
		return
	}
	rows, err := s.app.Winners(r.Context(), auctionID)
	if err != nil {
		writeBidError(w, err)
		return
	}
	writeRows(w, rows)
}

func (s *Service) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_id", "invalid auction id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := s.app.Leaderboard(r.Context(), auctionID, limit)
	if err != nil {
		writeBidError(w, err)
		return
	}
	writeRows(w, rows)
}

func writeRows(w http.ResponseWriter, rows []ParticipantRow) {
	if rows == nil {
		rows = []ParticipantRow{}
	}
	rest.JSON(w, http.StatusOK, rows)
}

func callerAndAuction(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	callerID, err := rest.UserID(r)
	if err != nil {
		rest.Error(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_id", "invalid auction id")
		return uuid.Nil, uuid.Nil, false
	}
	return callerID, auctionID, true
}

func writeBidError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBidNotFound), errors.Is(err, auction.ErrAuctionNotFound):
		rest.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrNotBidOwner), errors.Is(err, ErrNotAuctionOwner):
		rest.Error(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ErrContention):
		// Transient optimistic-concurrency exhaustion; the caller retries.
		rest.Error(w, http.StatusConflict, "contention", err.Error())
	case errors.Is(err, ErrBidTooLow):
		rest.Error(w, http.StatusUnprocessableEntity, "bid_too_low", err.Error())
	case errors.Is(err, ErrSelfBid):
		rest.Error(w, http.StatusUnprocessableEntity, "self_bid", err.Error())
	case errors.Is(err, ErrAuctionEnded):
		rest.Error(w, http.StatusUnprocessableEntity, "auction_ended", err.Error())
	case errors.Is(err, ErrAuctionNotActive):
		rest.Error(w, http.StatusUnprocessableEntity, "auction_not_active", err.Error())
	case errors.Is(err, ErrBidRetracted):
		rest.Error(w, http.StatusUnprocessableEntity, "bid_retracted", err.Error())
	case errors.Is(err, ErrInvalidAmount):
		rest.Error(w, http.StatusBadRequest, "invalid_amount", err.Error())
	default:
		log.Error().Err(err).Msg("bid request failed")
		rest.Error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
