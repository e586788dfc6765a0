package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/openmarket/auctiond/internal/clients/products"
	"github.com/openmarket/auctiond/internal/models"
)

const (
	defaultDurationHours = 24
	defaultListLimit     = 20
	maxListLimit         = 100
)

// AuctionRepository defines what the app layer needs from the auction repository.
type AuctionRepository interface {
	CreateAuction(ctx context.Context, req CreateAuctionRequest, startTime, endTime, now time.Time) (*models.Auction, error)
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	ListAuctions(ctx context.Context, filter ListAuctionsFilter, now time.Time) ([]*models.Auction, error)
	UpdateAuction(ctx context.Context, id uuid.UUID, req UpdateAuctionRequest, now time.Time) (*models.Auction, error)
	CancelAuction(ctx context.Context, id uuid.UUID, now time.Time) (*models.Auction, error)
}

// ProductGateway validates the product a new auction is attached to.
type ProductGateway interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*products.Product, error)
}

// ViewCounter tracks auction page views outside the hot auction row.
type ViewCounter interface {
	Increment(ctx context.Context, auctionID uuid.UUID) (int64, error)
	Pending(ctx context.Context, auctionID uuid.UUID) (int64, error)
}

// App handles auction lifecycle business logic.
type App struct {
	repo     AuctionRepository
	productz ProductGateway
	views    ViewCounter
	clock    clockwork.Clock
}

// NewApp creates a new auction App.
func NewApp(repo AuctionRepository, productz ProductGateway, views ViewCounter, clock clockwork.Clock) *App {
	return &App{
		repo:     repo,
		productz: productz,
		views:    views,
		clock:    clock,
	}
}

// CreateAuction validates and opens a new auction for a product.
func (a *App) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*models.Auction, error) {
	now := a.clock.Now()

	if req.StartPrice.Sign() <= 0 || req.BidIncrement.Sign() <= 0 || req.MinBidAmount.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if req.MinBidAmount.GreaterThan(req.StartPrice) {
		return nil, ErrMinBidExceedsStart
	}

	startTime := now
	if req.StartTime != nil {
		startTime = *req.StartTime
	}

	durationHours := req.DurationHours
	if durationHours <= 0 {
		durationHours = defaultDurationHours
	}
	req.DurationHours = durationHours

	endTime := startTime.Add(time.Duration(durationHours) * time.Hour)
	if req.EndTime != nil {
		endTime = *req.EndTime
	}
	if !endTime.After(now) {
		return nil, ErrInvalidTimeWindow
	}

	product, err := a.productz.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	if product.Status != products.StatusActive {
		return nil, ErrProductNotActive
	}
	if product.OwnerID != req.CreatorID {
		return nil, ErrNotProductOwner
	}

	auction, err := a.repo.CreateAuction(ctx, req, startTime, endTime, now)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("auction_id", auction.ID.String()).
		Str("product_id", auction.ProductID.String()).
		Time("end_time", auction.EndTime).
		Msg("auction created")
	return auction, nil
}

// GetAuction fetches an auction, optionally counting the fetch as a view.
// Views accumulate in redis and are folded into the row when the auction
// closes, so the pending counter is merged into the returned snapshot.
func (a *App) GetAuction(ctx context.Context, id uuid.UUID, countView bool) (*models.Auction, error) {
	auction, err := a.repo.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.views != nil {
		var pending int64
		var verr error
		if countView {
			pending, verr = a.views.Increment(ctx, id)
		} else {
			pending, verr = a.views.Pending(ctx, id)
		}
		if verr != nil {
			log.Warn().Err(verr).Str("auction_id", id.String()).Msg("view counter unavailable")
		} else {
			auction.Views += pending
		}
	}
	return auction, nil
}

// ListAuctions returns auctions matching the filter.
func (a *App) ListAuctions(ctx context.Context, filter ListAuctionsFilter) ([]*models.Auction, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return a.repo.ListAuctions(ctx, filter, a.clock.Now())
}

// UpdateAuction applies changes to a running auction. Price fields are frozen
// once the first bid is admitted.
func (a *App) UpdateAuction(ctx context.Context, id, callerID uuid.UUID, req UpdateAuctionRequest) (*models.Auction, error) {
	auction, err := a.repo.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}
	if auction.CreatorID != callerID {
		return nil, ErrNotAuctionOwner
	}
	if auction.Status != models.AuctionStatusActive {
		return nil, ErrAuctionNotActive
	}

	priceChange := req.StartPrice != nil || req.BidIncrement != nil || req.MinBidAmount != nil
	if priceChange && auction.TotalBids > 0 {
		return nil, ErrBidsExist
	}
	if req.StartPrice != nil && req.StartPrice.Sign() <= 0 ||
		req.BidIncrement != nil && req.BidIncrement.Sign() <= 0 ||
		req.MinBidAmount != nil && req.MinBidAmount.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}

	startPrice := auction.StartPrice
	if req.StartPrice != nil {
		startPrice = *req.StartPrice
	}
	minBid := auction.MinBidAmount
	if req.MinBidAmount != nil {
		minBid = *req.MinBidAmount
	}
	if minBid.GreaterThan(startPrice) {
		return nil, ErrMinBidExceedsStart
	}
	if req.EndTime != nil && !req.EndTime.After(a.clock.Now()) {
		return nil, ErrInvalidTimeWindow
	}

	return a.repo.UpdateAuction(ctx, id, req, a.clock.Now())
}

// CancelAuction transitions an ACTIVE auction with no bids to CANCELLED.
func (a *App) CancelAuction(ctx context.Context, id, callerID uuid.UUID) (*models.Auction, error) {
	auction, err := a.repo.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}
	if auction.CreatorID != callerID {
		return nil, ErrNotAuctionOwner
	}
	if auction.Status != models.AuctionStatusActive {
		return nil, ErrAuctionNotActive
	}
	if auction.TotalBids > 0 {
		return nil, ErrBidsExist
	}

	cancelled, err := a.repo.CancelAuction(ctx, id, a.clock.Now())
	if err != nil {
		return nil, err
	}

	log.Info().Str("auction_id", id.String()).Msg("auction cancelled")
	return cancelled, nil
}
