package bid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/openmarket/auctiond/internal/events"
	"github.com/openmarket/auctiond/internal/models"
)

const (
	defaultMaxAttempts  = 4
	defaultRetryBackoff = 25 * time.Millisecond

	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
	winnersLimit            = 3
)

// BidRepository defines what the app layer needs from the bid repository.
type BidRepository interface {
	AdmitBid(ctx context.Context, p AdmitBidParams) (*AdmitResult, error)
	RemoveBid(ctx context.Context, p RemoveBidParams) (*RemoveResult, error)
	GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	ExtendAuction(ctx context.Context, auctionID uuid.UUID, newEndTime time.Time, version int64, now time.Time) error
	Participants(ctx context.Context, auctionID uuid.UUID, limit int) ([]ParticipantRow, error)
}

// AuctionSource supplies fresh auction snapshots for admission checks.
type AuctionSource interface {
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
}

// Broadcaster pushes events to the live subscriber groups.
type Broadcaster interface {
	BroadcastToAuction(auctionID uuid.UUID, event events.Event)
	BroadcastToUser(userID uuid.UUID, event events.Event)
}

// Notifier dispatches out-of-band notifications. Calls are fire-and-forget;
// implementations swallow and log their own failures.
type Notifier interface {
	NotifyOutbid(ctx context.Context, userID, auctionID uuid.UUID, amount decimal.Decimal)
}

// Config tunes the optimistic-concurrency retry loop.
type Config struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// DefaultConfig returns the standard retry budget.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  defaultMaxAttempts,
		RetryBackoff: defaultRetryBackoff,
	}
}

// App implements the bid admission protocol and the related lifecycle paths.
type App struct {
	repo        BidRepository
	auctions    AuctionSource
	broadcaster Broadcaster
	notifier    Notifier
	clock       clockwork.Clock
	cfg         Config
}

// NewApp creates a new bid App.
func NewApp(repo BidRepository, auctions AuctionSource, broadcaster Broadcaster, notifier Notifier, clock clockwork.Clock, cfg Config) *App {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &App{
		repo:        repo,
		auctions:    auctions,
		broadcaster: broadcaster,
		notifier:    notifier,
		clock:       clock,
		cfg:         cfg,
	}
}

// PlaceBid validates and commits one bid. Preconditions are checked against a
// fresh auction snapshot; the commit is conditioned on the snapshot's version.
// Losing the version race aborts the whole attempt and retries from the top,
// so validation always runs against current state. Exhausting the budget
// reports transient contention, never a corrupt auction.
func (a *App) PlaceBid(ctx context.Context, req PlaceBidRequest) (*models.Bid, error) {
	if req.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	for attempt := 0; attempt < a.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			a.clock.Sleep(a.cfg.RetryBackoff)
		}

		auction, err := a.auctions.GetAuction(ctx, req.AuctionID)
		if err != nil {
			return nil, err
		}

		now := a.clock.Now()
		if auction.Status != models.AuctionStatusActive {
			return nil, ErrAuctionNotActive
		}
		if auction.HasEnded(now) {
			return nil, ErrAuctionEnded
		}
		if auction.CreatorID == req.BidderID {
			return nil, ErrSelfBid
		}
		if min := auction.MinNextBid(); req.Amount.LessThan(min) {
			return nil, fmt.Errorf("%w: minimum next bid is %s", ErrBidTooLow, min)
		}

		result, err := a.repo.AdmitBid(ctx, AdmitBidParams{
			AuctionID: req.AuctionID,
			BidderID:  req.BidderID,
			Amount:    req.Amount,
			Version:   auction.Version,
			PlacedAt:  now,
		})
		if errors.Is(err, ErrVersionConflict) {
			log.Debug().
				Str("auction_id", req.AuctionID.String()).
				Int("attempt", attempt+1).
				Msg("bid lost version race, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		a.announceBid(result)
		a.maybeExtend(ctx, result.Auction)
		return &result.Bid, nil
	}

	log.Warn().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Int("attempts", a.cfg.MaxAttempts).
		Msg("bid admission retry budget exhausted")
	return nil, ErrContention
}

// announceBid emits new_bid to the auction group and outbid to the demoted
// bidder. Emission happens immediately after each commit so per-connection
// delivery order matches commit order.
func (a *App) announceBid(result *AdmitResult) {
	b := result.Bid
	ev, err := events.New(b.AuctionID, events.EventTypeNewBid, b.CreatedAt, events.NewBidPayload{
		BidID:        b.ID.String(),
		AuctionID:    b.AuctionID.String(),
		BidderID:     b.BidderID.String(),
		Amount:       b.Amount.String(),
		CurrentPrice: result.Auction.CurrentPrice.String(),
		TotalBids:    result.Auction.TotalBids,
		PlacedAt:     b.CreatedAt,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build new_bid event")
		return
	}
	a.broadcaster.BroadcastToAuction(b.AuctionID, ev)

	if result.PreviousBidder == nil || *result.PreviousBidder == b.BidderID {
		return
	}
	outbid, err := events.New(b.AuctionID, events.EventTypeOutbid, b.CreatedAt, events.OutbidPayload{
		AuctionID: b.AuctionID.String(),
		NewAmount: b.Amount.String(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build outbid event")
		return
	}
	a.broadcaster.BroadcastToUser(*result.PreviousBidder, outbid)
	a.notifier.NotifyOutbid(context.Background(), *result.PreviousBidder, b.AuctionID, b.Amount)
}

// maybeExtend applies the auto-extension policy after a successful admission.
// The conditional update runs on the version the admission produced; losing
// that race means a concurrent writer already moved the auction forward, so
// the extension is skipped.
func (a *App) maybeExtend(ctx context.Context, st AuctionState) {
	if !st.AutoExtend || st.ExtendMinutes <= 0 {
		return
	}
	now := a.clock.Now()
	window := time.Duration(st.ExtendMinutes) * time.Minute
	if st.EndTime.Sub(now) > window {
		return
	}

	newEndTime := now.Add(window)
	err := a.repo.ExtendAuction(ctx, st.ID, newEndTime, st.Version, now)
	if errors.Is(err, ErrVersionConflict) {
		log.Debug().Str("auction_id", st.ID.String()).Msg("auto-extension lost version race, skipped")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("auction_id", st.ID.String()).Msg("auto-extension failed")
		return
	}

	ev, err := events.New(st.ID, events.EventTypeAuctionExtended, now, events.AuctionExtendedPayload{
		AuctionID: st.ID.String(),
		EndTime:   newEndTime,
		Reason:    "late_bid",
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build auction_extended event")
		return
	}
	a.broadcaster.BroadcastToAuction(st.ID, ev)

	log.Info().
		Str("auction_id", st.ID.String()).
		Time("end_time", newEndTime).
		Msg("auction auto-extended")
}

// RetractBid voluntarily withdraws the caller's own bid. Retracting the
// winning bid promotes the next-highest non-retracted bid through the same
// recompute transaction.
func (a *App) RetractBid(ctx context.Context, auctionID, bidID, callerID uuid.UUID) (*models.Bid, error) {
	return a.removeBid(ctx, auctionID, bidID, callerID, false)
}

// RejectBid lets the auction creator invalidate a specific bid post-hoc.
func (a *App) RejectBid(ctx context.Context, auctionID, bidID, callerID uuid.UUID) (*models.Bid, error) {
	return a.removeBid(ctx, auctionID, bidID, callerID, true)
}

func (a *App) removeBid(ctx context.Context, auctionID, bidID, callerID uuid.UUID, reject bool) (*models.Bid, error) {
	for attempt := 0; attempt < a.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			a.clock.Sleep(a.cfg.RetryBackoff)
		}

		target, err := a.repo.GetBid(ctx, bidID)
		if err != nil {
			return nil, err
		}
		if target.AuctionID != auctionID {
			return nil, ErrBidNotFound
		}
		if target.IsRetracted {
			return nil, ErrBidRetracted
		}

		auction, err := a.auctions.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, err
		}
		if reject {
			if auction.CreatorID != callerID {
				return nil, ErrNotAuctionOwner
			}
		} else {
			if target.BidderID != callerID {
				return nil, ErrNotBidOwner
			}
		}

		now := a.clock.Now()
		if auction.Status != models.AuctionStatusActive {
			return nil, ErrAuctionNotActive
		}
		if auction.HasEnded(now) {
			return nil, ErrAuctionEnded
		}

		result, err := a.repo.RemoveBid(ctx, RemoveBidParams{
			BidID:     bidID,
			AuctionID: auctionID,
			Version:   auction.Version,
			Reject:    reject,
			Now:       now,
		})
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		a.announceRemoval(result, reject, now)
		return &result.Bid, nil
	}
	return nil, ErrContention
}

// announceRemoval emits bid_rejected (for rejections) followed by
// auction_updated carrying the corrected price.
func (a *App) announceRemoval(result *RemoveResult, reject bool, now time.Time) {
	b := result.Bid
	if reject {
		ev, err := events.New(b.AuctionID, events.EventTypeBidRejected, now, events.BidRejectedPayload{
			BidID:      b.ID.String(),
			AuctionID:  b.AuctionID.String(),
			BidderID:   b.BidderID.String(),
			RejectedAt: now,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to build bid_rejected event")
		} else {
			a.broadcaster.BroadcastToAuction(b.AuctionID, ev)
		}
	}

	payload := events.AuctionUpdatedPayload{
		AuctionID:    b.AuctionID.String(),
		CurrentPrice: result.Auction.CurrentPrice.String(),
		TotalBids:    result.Auction.TotalBids,
	}
	if result.NewWinner != nil {
		id := result.NewWinner.ID.String()
		payload.WinningBidID = &id
	}
	ev, err := events.New(b.AuctionID, events.EventTypeAuctionUpdated, now, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build auction_updated event")
		return
	}
	a.broadcaster.BroadcastToAuction(b.AuctionID, ev)
}

// Participants returns the per-bidder aggregation for an auction. Unlike the
// leaderboard this view is uncapped: every distinct bidder gets a row.
func (a *App) Participants(ctx context.Context, auctionID uuid.UUID) ([]ParticipantRow, error) {
	if _, err := a.auctions.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	return a.repo.Participants(ctx, auctionID, 0)
}

// Winners returns the top three participants, ranked 1-3.
func (a *App) Winners(ctx context.Context, auctionID uuid.UUID) ([]ParticipantRow, error) {
	if _, err := a.auctions.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	winners, err := a.repo.Participants(ctx, auctionID, winnersLimit)
	if err != nil {
		return nil, err
	}
	for i := range winners {
		winners[i].Rank = i + 1
	}
	return winners, nil
}

// Leaderboard returns the aggregation capped at the caller's limit.
func (a *App) Leaderboard(ctx context.Context, auctionID uuid.UUID, limit int) ([]ParticipantRow, error) {
	if _, err := a.auctions.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	rows, err := a.repo.Participants(ctx, auctionID, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}
