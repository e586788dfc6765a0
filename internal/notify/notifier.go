package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Publisher pushes notification requests onto NATS subjects consumed by the
// external notification service. Every publish is fire-and-forget: failures
// are logged and swallowed, and must never affect the authoritative auction
// or bid state.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials NATS and returns a Publisher.
func Connect(url, prefix string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("auctiond"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Publisher{nc: nc, prefix: prefix}, nil
}

// NewPublisher wraps an existing NATS connection.
func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	return &Publisher{nc: nc, prefix: prefix}
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

type outbidMessage struct {
	UserID    string    `json:"user_id"`
	AuctionID string    `json:"auction_id"`
	Amount    string    `json:"amount"`
	SentAt    time.Time `json:"sent_at"`
}

type auctionEndedMessage struct {
	UserID    string    `json:"user_id"`
	AuctionID string    `json:"auction_id"`
	IsWinner  bool      `json:"is_winner"`
	SentAt    time.Time `json:"sent_at"`
}

// NotifyOutbid tells a bidder their bid was just demoted.
func (p *Publisher) NotifyOutbid(ctx context.Context, userID, auctionID uuid.UUID, amount decimal.Decimal) {
	p.publish("outbid", outbidMessage{
		UserID:    userID.String(),
		AuctionID: auctionID.String(),
		Amount:    amount.String(),
		SentAt:    time.Now(),
	})
}

// NotifyAuctionEnded tells a participant the auction closed and whether they won.
func (p *Publisher) NotifyAuctionEnded(ctx context.Context, userID, auctionID uuid.UUID, isWinner bool) {
	p.publish("auction_ended", auctionEndedMessage{
		UserID:    userID.String(),
		AuctionID: auctionID.String(),
		IsWinner:  isWinner,
		SentAt:    time.Now(),
	})
}

func (p *Publisher) publish(kind string, msg any) {
	subject := fmt.Sprintf("%s.%s", p.prefix, kind)

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to marshal notification")
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish notification")
	}
}
