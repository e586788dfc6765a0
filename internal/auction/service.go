package auction

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/openmarket/auctiond/internal/models"
	"github.com/openmarket/auctiond/internal/rest"
)

// Service exposes auction lifecycle operations over HTTP.
type Service struct {
	app *App
}

// NewService creates a new auction HTTP service.
func NewService(app *App) *Service {
	return &Service{
		app: app,
	}
}

// RegisterRoutes registers auction routes with an HTTP mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auctions", s.handleCreateAuction)
	mux.HandleFunc("GET /api/auctions", s.handleListAuctions)
	mux.HandleFunc("GET /api/auctions/{id}", s.handleGetAuction)
	mux.HandleFunc("PATCH /api/auctions/{id}", s.handleUpdateAuction)
	mux.HandleFunc("DELETE /api/auctions/{id}", s.handleCancelAuction)
}

func (s *Service) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	callerID, err := rest.UserID(r)
	if err != nil {
		rest.Error(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}

	var req CreateAuctionRequest
	if err := rest.Decode(r, &req); err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	req.CreatorID = callerID

	auction, err := s.app.CreateAuction(r.Context(), req)
	if err != nil {
		writeAuctionError(w, err)
		return
	}
	rest.JSON(w, http.StatusCreated, auction)
}

func (s *Service) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	auctions, err := s.app.ListAuctions(r.Context(), filter)
	if err != nil {
		writeAuctionError(w, err)
		return
	}
	if auctions == nil {
		auctions = []*models.Auction{}
	}
	rest.JSON(w, http.StatusOK, auctions)
}

func (s *Service) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_id", "invalid auction id")
		return
	}
	countView := r.URL.Query().Get("view") == "true"

	auction, err := s.app.GetAuction(r.Context(), id, countView)
	if err != nil {
		writeAuctionError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, auction)
}

func (s *Service) handleUpdateAuction(w http.ResponseWriter, r *http.Request) {
	callerID, err := rest.UserID(r)
	if err != nil {
		rest.Error(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_id", "invalid auction id")
		return
	}

	var req UpdateAuctionRequest
	if err := rest.Decode(r, &req); err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	auction, err := s.app.UpdateAuction(r.Context(), id, callerID, req)
	if err != nil {
		writeAuctionError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, auction)
}

func (s *Service) handleCancelAuction(w http.ResponseWriter, r *http.Request) {
	callerID, err := rest.UserID(r)
	if err != nil {
		rest.Error(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rest.Error(w, http.StatusBadRequest, "invalid_id", "invalid auction id")
		return
	}

	auction, err := s.app.CancelAuction(r.Context(), id, callerID)
	if err != nil {
		writeAuctionError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, auction)
}

func parseListFilter(r *http.Request) (ListAuctionsFilter, error) {
	q := r.URL.Query()
	var filter ListAuctionsFilter

	if v := q.Get("product_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errors.New("invalid product_id")
		}
		filter.ProductID = &id
	}
	if v := q.Get("creator_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errors.New("invalid creator_id")
		}
		filter.CreatorID = &id
	}
	if v := q.Get("status"); v != "" {
		status := models.AuctionStatus(v)
		switch status {
		case models.AuctionStatusActive, models.AuctionStatusEnded, models.AuctionStatusCancelled:
			filter.Status = &status
		default:
			return filter, errors.New("invalid status")
		}
	}
	filter.ActiveOnly = q.Get("active") == "true"

	for name, dst := range map[string]**time.Time{"ending_before": &filter.EndingBefore, "ending_after": &filter.EndingAfter} {
		if v := q.Get(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, errors.New("invalid " + name)
			}
			*dst = &t
		}
	}

	filter.SortBy = q.Get("sort")
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	return filter, nil
}

func writeAuctionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAuctionNotFound):
		rest.Error(w, http.StatusNotFound, "auction_not_found", err.Error())
	case errors.Is(err, ErrNotAuctionOwner), errors.Is(err, ErrNotProductOwner):
		rest.Error(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ErrActiveAuctionExists):
		rest.Error(w, http.StatusConflict, "active_auction_exists", err.Error())
	case errors.Is(err, ErrBidsExist):
		rest.Error(w, http.StatusConflict, "bids_exist", err.Error())
	case errors.Is(err, ErrAuctionNotActive),
		errors.Is(err, ErrProductNotActive),
		errors.Is(err, ErrInvalidTimeWindow),
		errors.Is(err, ErrMinBidExceedsStart),
		errors.Is(err, ErrInvalidPrice):
		rest.Error(w, http.StatusUnprocessableEntity, "rule_violation", err.Error())
	default:
		log.Error().Err(err).Msg("auction request failed")
		rest.Error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
