package events

import (
	"time"
)

// Event payload types that are shared between the bid engine, the sweeper
// and the gateway packages.

// NewBidPayload is the payload for a new_bid event.
type NewBidPayload struct {
	BidID        string    `json:"bid_id"`
	AuctionID    string    `json:"auction_id"`
	BidderID     string    `json:"bidder_id"`
	Amount       string    `json:"amount"`
	CurrentPrice string    `json:"current_price"`
	TotalBids    int       `json:"total_bids"`
	PlacedAt     time.Time `json:"placed_at"`
}

// OutbidPayload is the payload for an outbid event, delivered only to the
// bidder whose bid was just demoted.
type OutbidPayload struct {
	AuctionID string `json:"auction_id"`
	NewAmount string `json:"new_amount"`
}

// BidRejectedPayload is the payload for a bid_rejected event.
type BidRejectedPayload struct {
	BidID      string    `json:"bid_id"`
	AuctionID  string    `json:"auction_id"`
	BidderID   string    `json:"bidder_id"`
	RejectedAt time.Time `json:"rejected_at"`
}

// AuctionUpdatedPayload is the payload for an auction_updated event. It is
// emitted whenever the authoritative price or winner changed outside the
// normal new_bid flow (retraction, rejection).
type AuctionUpdatedPayload struct {
	AuctionID    string  `json:"auction_id"`
	CurrentPrice string  `json:"current_price"`
	TotalBids    int     `json:"total_bids"`
	WinningBidID *string `json:"winning_bid_id,omitempty"`
}

// AuctionExtendedPayload is the payload for an auction_extended event.
type AuctionExtendedPayload struct {
	AuctionID string    `json:"auction_id"`
	EndTime   time.Time `json:"end_time"`
	Reason    string    `json:"reason"`
}

// AuctionEndedPayload is the payload for an auction_ended event.
type AuctionEndedPayload struct {
	AuctionID  string  `json:"auction_id"`
	WinnerID   *string `json:"winner_id,omitempty"`
	FinalPrice string  `json:"final_price"`
	TotalBids  int     `json:"total_bids"`
}
