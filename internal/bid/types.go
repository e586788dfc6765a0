package bid

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/openmarket/auctiond/internal/models"
)

// PlaceBidRequest is one bid submission.
type PlaceBidRequest struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// AdmitBidParams is the input to the transactional bid commit. Version is
// the auction version read in the same admission attempt; the commit fails
// with ErrVersionConflict if another writer bumped it first.
type AdmitBidParams struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	Version   int64
	PlacedAt  time.Time
}

// AuctionState is the slice of the auction row the engine needs right after
// a successful conditional update.
type AuctionState struct {
	ID            uuid.UUID
	CurrentPrice  decimal.Decimal
	TotalBids     int
	EndTime       time.Time
	AutoExtend    bool
	ExtendMinutes int
	Status        models.AuctionStatus
	Version       int64
}

// AdmitResult is the outcome of a committed bid.
type AdmitResult struct {
	Bid            models.Bid
	Auction        AuctionState
	PreviousBidder *uuid.UUID
	PreviousBidID  *uuid.UUID
}

// RemoveBidParams drives the retraction/rejection recompute transaction.
type RemoveBidParams struct {
	BidID     uuid.UUID
	AuctionID uuid.UUID
	Version   int64
	Reject    bool
	Now       time.Time
}

// RemoveResult is the outcome of a retraction or rejection, including the
// promoted winner if any bids remain.
type RemoveResult struct {
	Bid       models.Bid
	Auction   AuctionState
	NewWinner *models.Bid
}

// ParticipantRow is one aggregated leaderboard entry.
type ParticipantRow struct {
	BidderID    uuid.UUID       `json:"bidder_id"`
	BidCount    int             `json:"bid_count"`
	HighestBid  decimal.Decimal `json:"highest_bid"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LastBidAt   time.Time       `json:"last_bid_at"`
	Rank        int             `json:"rank,omitempty"`
}
