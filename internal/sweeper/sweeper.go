package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/openmarket/auctiond/internal/events"
)

const (
	defaultInterval  = 10 * time.Second
	defaultBatchSize = 50
)

// SweepRepository defines what the sweeper needs from its repository.
type SweepRepository interface {
	FetchExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	CloseAuction(ctx context.Context, auctionID uuid.UUID, now time.Time, viewsDelta int64) (*CloseResult, error)
}

// Broadcaster pushes the auction_ended event to the live group.
type Broadcaster interface {
	BroadcastToAuction(auctionID uuid.UUID, event events.Event)
}

// Notifier informs every participant of the outcome. Fire-and-forget.
type Notifier interface {
	NotifyAuctionEnded(ctx context.Context, userID, auctionID uuid.UUID, isWinner bool)
}

// ViewSource exposes the pending redis view counter for fold-in on close.
type ViewSource interface {
	Pending(ctx context.Context, auctionID uuid.UUID) (int64, error)
	Clear(ctx context.Context, auctionID uuid.UUID) error
}

// Sweeper is the recurring pass that finds expired auctions, finalizes their
// winners and notifies participants. Multiple instances may run concurrently;
// the conditional close in the repository makes each auction transition
// exactly once.
type Sweeper struct {
	repo        SweepRepository
	broadcaster Broadcaster
	notifier    Notifier
	views       ViewSource
	clock       clockwork.Clock
	interval    time.Duration
	batchSize   int
}

// New creates a Sweeper. views may be nil when redis is not configured.
func New(repo SweepRepository, broadcaster Broadcaster, notifier Notifier, views ViewSource, clock clockwork.Clock, interval time.Duration, batchSize int) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Sweeper{
		repo:        repo,
		broadcaster: broadcaster,
		notifier:    notifier,
		views:       views,
		clock:       clock,
		interval:    interval,
		batchSize:   batchSize,
	}
}

// Run executes sweep passes on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Int("batch_size", s.batchSize).Msg("expiration sweeper started")

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("expiration sweeper shutting down")
			return
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

// sweep closes one batch of expired auctions. Each auction is an independent
// unit of work: a failure is logged and retried on the next pass, since an
// auction left ACTIVE past its end time is always safe to re-attempt.
func (s *Sweeper) sweep(ctx context.Context) {
	ids, err := s.repo.FetchExpired(ctx, s.clock.Now(), s.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch expired auctions")
		return
	}

	for _, id := range ids {
		if err := s.closeOne(ctx, id); err != nil {
			log.Error().Err(err).Str("auction_id", id.String()).Msg("failed to close auction")
		}
	}
}

func (s *Sweeper) closeOne(ctx context.Context, auctionID uuid.UUID) error {
	now := s.clock.Now()

	var pendingViews int64
	if s.views != nil {
		var err error
		pendingViews, err = s.views.Pending(ctx, auctionID)
		if err != nil {
			log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("view counter unavailable, closing without fold-in")
			pendingViews = 0
		}
	}

	result, err := s.repo.CloseAuction(ctx, auctionID, now, pendingViews)
	if errors.Is(err, ErrAlreadyClosed) {
		log.Debug().Str("auction_id", auctionID.String()).Msg("auction already closed by concurrent sweep")
		return nil
	}
	if err != nil {
		return err
	}

	if s.views != nil && pendingViews > 0 {
		if err := s.views.Clear(ctx, auctionID); err != nil {
			log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("failed to clear view counter")
		}
	}

	s.announceEnd(result, now)

	winnerID := uuid.Nil
	if result.Winner != nil {
		winnerID = result.Winner.BidderID
	}
	for _, participant := range result.Participants {
		s.notifier.NotifyAuctionEnded(ctx, participant, auctionID, participant == winnerID)
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Int("total_bids", result.TotalBids).
		Bool("has_winner", result.Winner != nil).
		Msg("auction closed")
	return nil
}

func (s *Sweeper) announceEnd(result *CloseResult, now time.Time) {
	payload := events.AuctionEndedPayload{
		AuctionID:  result.AuctionID.String(),
		FinalPrice: result.FinalPrice.String(),
		TotalBids:  result.TotalBids,
	}
	if result.Winner != nil {
		id := result.Winner.BidderID.String()
		payload.WinnerID = &id
	}

	ev, err := events.New(result.AuctionID, events.EventTypeAuctionEnded, now, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build auction_ended event")
		return
	}
	s.broadcaster.BroadcastToAuction(result.AuctionID, ev)
}
