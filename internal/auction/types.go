package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/openmarket/auctiond/internal/models"
)

// CreateAuctionRequest carries everything needed to open an auction.
type CreateAuctionRequest struct {
	ProductID     uuid.UUID       `json:"product_id"`
	CreatorID     uuid.UUID       `json:"-"`
	StartPrice    decimal.Decimal `json:"start_price"`
	BidIncrement  decimal.Decimal `json:"bid_increment"`
	MinBidAmount  decimal.Decimal `json:"min_bid_amount"`
	StartTime     *time.Time      `json:"start_time,omitempty"`
	EndTime       *time.Time      `json:"end_time,omitempty"`
	DurationHours int             `json:"duration_hours,omitempty"`
	AutoExtend    bool            `json:"auto_extend"`
	ExtendMinutes int             `json:"extend_minutes,omitempty"`
}

// UpdateAuctionRequest carries the mutable auction fields. Price fields are
// only honored while the auction has no bids.
type UpdateAuctionRequest struct {
	StartPrice    *decimal.Decimal `json:"start_price,omitempty"`
	BidIncrement  *decimal.Decimal `json:"bid_increment,omitempty"`
	MinBidAmount  *decimal.Decimal `json:"min_bid_amount,omitempty"`
	EndTime       *time.Time       `json:"end_time,omitempty"`
	AutoExtend    *bool            `json:"auto_extend,omitempty"`
	ExtendMinutes *int             `json:"extend_minutes,omitempty"`
}

// ListAuctionsFilter selects and orders auction listings.
type ListAuctionsFilter struct {
	ProductID    *uuid.UUID
	CreatorID    *uuid.UUID
	Status       *models.AuctionStatus
	ActiveOnly   bool
	EndingBefore *time.Time
	EndingAfter  *time.Time
	SortBy       string // "end_time", "price" or "bids"
	Limit        int
	Offset       int
}
