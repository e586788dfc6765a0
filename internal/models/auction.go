package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStatus defines the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "ACTIVE"
	AuctionStatusEnded     AuctionStatus = "ENDED"
	AuctionStatusCancelled AuctionStatus = "CANCELLED"
)

// Auction represents a time-boxed auction attached to a product listing.
// The row is exclusively mutated by the lifecycle engine (bid admission,
// auto-extension, sweeper); everything else only reads it. Version is the
// optimistic-concurrency token for every conditional update.
type Auction struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	CreatorID     uuid.UUID       `json:"creator_id"`
	StartPrice    decimal.Decimal `json:"start_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	BidIncrement  decimal.Decimal `json:"bid_increment"`
	MinBidAmount  decimal.Decimal `json:"min_bid_amount"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	DurationHours int             `json:"duration_hours"`
	AutoExtend    bool            `json:"auto_extend"`
	ExtendMinutes int             `json:"extend_minutes"`
	Status        AuctionStatus   `json:"status"`
	TotalBids     int             `json:"total_bids"`
	LastBidAt     *time.Time      `json:"last_bid_at,omitempty"`
	WinnerID      *uuid.UUID      `json:"winner_id,omitempty"`
	Version       int64           `json:"version"`
	Views         int64           `json:"views"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

// HasEnded reports whether the auction's time window has passed at now.
// The status transition itself is owned by the sweeper.
func (a *Auction) HasEnded(now time.Time) bool {
	return now.After(a.EndTime)
}

// MinNextBid returns the smallest amount the next bid must reach.
func (a *Auction) MinNextBid() decimal.Decimal {
	if a.TotalBids > 0 {
		return a.CurrentPrice.Add(a.BidIncrement)
	}
	return a.MinBidAmount
}
