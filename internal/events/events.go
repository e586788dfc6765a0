package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope pushed to every live subscriber of an auction.
type Event struct {
	ID        string          `json:"id"`         // Event UUID
	AuctionID string          `json:"auction_id"` // Auction UUID
	Type      EventType       `json:"type"`       // Event type
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// EventType represents the type of auction event.
type EventType string

const (
	EventTypeNewBid          EventType = "new_bid"
	EventTypeOutbid          EventType = "outbid"
	EventTypeBidRejected     EventType = "bid_rejected"
	EventTypeAuctionUpdated  EventType = "auction_updated"
	EventTypeAuctionExtended EventType = "auction_extended"
	EventTypeAuctionEnded    EventType = "auction_ended"
)

// New builds an event envelope around a marshaled payload.
func New(auctionID uuid.UUID, eventType EventType, ts time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.New().String(),
		AuctionID: auctionID.String(),
		Type:      eventType,
		Timestamp: ts,
		Data:      data,
	}, nil
}
