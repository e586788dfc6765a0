package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is one entry in the append-only bid ledger. Bids are never deleted;
// retraction and rejection are soft flags so the ledger stays complete for
// dispute resolution and leaderboards. At most one non-retracted bid per
// auction carries IsWinning.
type Bid struct {
	ID          uuid.UUID       `json:"id"`
	AuctionID   uuid.UUID       `json:"auction_id"`
	BidderID    uuid.UUID       `json:"bidder_id"`
	Amount      decimal.Decimal `json:"amount"`
	IsWinning   bool            `json:"is_winning"`
	IsRetracted bool            `json:"is_retracted"`
	RejectedAt  *time.Time      `json:"rejected_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
