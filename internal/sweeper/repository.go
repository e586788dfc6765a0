package sweeper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/openmarket/auctiond/internal/models"
	"github.com/openmarket/auctiond/internal/sqlutil"
)

// ErrAlreadyClosed signals that a concurrent sweep transitioned the auction
// first. The loser treats the auction as handled.
var ErrAlreadyClosed = errors.New("auction already closed")

// CloseResult describes one finalized auction.
type CloseResult struct {
	AuctionID    uuid.UUID
	FinalPrice   decimal.Decimal
	TotalBids    int
	Winner       *models.Bid
	Participants []uuid.UUID
}

// Repository provides the sweeper's store access.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// FetchExpired returns a bounded batch of auction ids whose time window has
// passed but are still ACTIVE.
func (r *Repository) FetchExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM auctions
		WHERE status = 'ACTIVE' AND end_time <= $1 AND deleted_at IS NULL
		ORDER BY end_time ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expired auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CloseAuction transitions one expired auction to ENDED inside a single
// transaction. The update is conditioned on status = 'ACTIVE', so two sweeps
// racing on the same auction close it exactly once; the loser gets
// ErrAlreadyClosed. viewsDelta folds the pending redis view counter into the
// row on the way out.
func (r *Repository) CloseAuction(ctx context.Context, auctionID uuid.UUID, now time.Time, viewsDelta int64) (*CloseResult, error) {
	var result CloseResult

	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var winner models.Bid
		var rejectedAt sql.NullTime
		err := tx.QueryRowContext(ctx, `
			SELECT id, auction_id, bidder_id, amount, is_winning, is_retracted, rejected_at, created_at
			FROM bids
			WHERE auction_id = $1 AND is_retracted = false
			ORDER BY amount DESC, created_at ASC
			LIMIT 1`, auctionID).Scan(
			&winner.ID, &winner.AuctionID, &winner.BidderID, &winner.Amount,
			&winner.IsWinning, &winner.IsRetracted, &rejectedAt, &winner.CreatedAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// no valid bids, the auction closes without a winner
		case err != nil:
			return fmt.Errorf("failed to determine winning bid: %w", err)
		default:
			winner.RejectedAt = sqlutil.FromSqlTime(rejectedAt)
			result.Winner = &winner
		}

		var winnerID uuid.NullUUID
		if result.Winner != nil {
			winnerID = uuid.NullUUID{UUID: result.Winner.BidderID, Valid: true}
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE auctions
			SET status = 'ENDED', winner_id = $2, views = views + $3,
			    updated_at = $4, version = version + 1
			WHERE id = $1 AND status = 'ACTIVE'
			RETURNING id, current_price, total_bids`, auctionID, winnerID, viewsDelta, now).
			Scan(&result.AuctionID, &result.FinalPrice, &result.TotalBids)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlreadyClosed
		}
		if err != nil {
			return fmt.Errorf("failed to transition auction: %w", err)
		}

		// Re-assert the winning-flag invariant on the way out.
		if result.Winner != nil {
			if _, err := tx.ExecContext(ctx, `
				UPDATE bids SET is_winning = false
				WHERE auction_id = $1 AND id <> $2 AND is_winning = true`, auctionID, result.Winner.ID); err != nil {
				return fmt.Errorf("failed to demote stray winning bids: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE bids SET is_winning = true WHERE id = $1`, result.Winner.ID); err != nil {
				return fmt.Errorf("failed to assert winning bid: %w", err)
			}
			result.Winner.IsWinning = true
		} else {
			if _, err := tx.ExecContext(ctx, `
				UPDATE bids SET is_winning = false
				WHERE auction_id = $1 AND is_winning = true`, auctionID); err != nil {
				return fmt.Errorf("failed to clear winning flags: %w", err)
			}
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT DISTINCT bidder_id FROM bids WHERE auction_id = $1`, auctionID)
		if err != nil {
			return fmt.Errorf("failed to collect participants: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var bidderID uuid.UUID
			if err := rows.Scan(&bidderID); err != nil {
				return fmt.Errorf("failed to scan participant: %w", err)
			}
			result.Participants = append(result.Participants, bidderID)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
