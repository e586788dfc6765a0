package bid

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openmarket/auctiond/internal/models"
	"github.com/openmarket/auctiond/internal/sqlutil"
)

const bidColumns = `id, auction_id, bidder_id, amount, is_winning, is_retracted, rejected_at, created_at`

const auctionStateColumns = `id, current_price, total_bids, end_time, auto_extend, extend_minutes, status, version`

// Repository provides access to the bid ledger and the version-conditioned
// auction updates of the admission protocol.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (*models.Bid, error) {
	var b models.Bid
	var rejectedAt sql.NullTime
	err := row.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.IsWinning, &b.IsRetracted, &rejectedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.RejectedAt = sqlutil.FromSqlTime(rejectedAt)
	return &b, nil
}

func scanAuctionState(row rowScanner) (AuctionState, error) {
	var st AuctionState
	err := row.Scan(&st.ID, &st.CurrentPrice, &st.TotalBids, &st.EndTime, &st.AutoExtend, &st.ExtendMinutes, &st.Status, &st.Version)
	return st, err
}

// AdmitBid commits one bid in a single transaction: demote the previous
// winning bid, append the new bid flagged winning, then bump the auction row
// conditioned on the version read by the caller. A zero-row conditional
// update rolls everything back and returns ErrVersionConflict, leaving no
// trace of the attempt.
func (r *Repository) AdmitBid(ctx context.Context, p AdmitBidParams) (*AdmitResult, error) {
	var result AdmitResult

	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var prevBidID, prevBidder uuid.UUID
		err := tx.QueryRowContext(ctx, `
			UPDATE bids SET is_winning = false
			WHERE auction_id = $1 AND is_winning = true AND is_retracted = false
			RETURNING id, bidder_id`, p.AuctionID).Scan(&prevBidID, &prevBidder)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// first bid, nothing to demote
		case err != nil:
			return fmt.Errorf("failed to demote previous winning bid: %w", err)
		default:
			result.PreviousBidID = &prevBidID
			result.PreviousBidder = &prevBidder
		}

		bidRow := tx.QueryRowContext(ctx, `
			INSERT INTO bids (id, auction_id, bidder_id, amount, is_winning, is_retracted, created_at)
			VALUES ($1, $2, $3, $4, true, false, $5)
			RETURNING `+bidColumns,
			uuid.New(), p.AuctionID, p.BidderID, p.Amount, p.PlacedAt)
		bid, err := scanBid(bidRow)
		if err != nil {
			return fmt.Errorf("failed to insert bid: %w", err)
		}
		result.Bid = *bid

		st, err := scanAuctionState(tx.QueryRowContext(ctx, `
			UPDATE auctions
			SET current_price = $2, total_bids = total_bids + 1, last_bid_at = $3,
			    updated_at = $3, version = version + 1
			WHERE id = $1 AND version = $4 AND status = 'ACTIVE' AND deleted_at IS NULL
			RETURNING `+auctionStateColumns,
			p.AuctionID, p.Amount, p.PlacedAt, p.Version))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("failed to update auction price: %w", err)
		}
		result.Auction = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RemoveBid retracts or rejects a bid and recomputes the winner inside one
// transaction, under the same version discipline as AdmitBid. The
// next-highest non-retracted bid (if any) is promoted and the auction price
// is corrected to its amount, or back to the start price.
func (r *Repository) RemoveBid(ctx context.Context, p RemoveBidParams) (*RemoveResult, error) {
	var result RemoveResult

	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		bid, err := scanBid(tx.QueryRowContext(ctx, `
			SELECT `+bidColumns+` FROM bids
			WHERE id = $1 AND auction_id = $2
			FOR UPDATE`, p.BidID, p.AuctionID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBidNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load bid: %w", err)
		}
		if bid.IsRetracted {
			return ErrBidRetracted
		}

		if p.Reject {
			_, err = tx.ExecContext(ctx, `
				UPDATE bids SET is_retracted = true, is_winning = false, rejected_at = $2
				WHERE id = $1`, p.BidID, p.Now)
			rejectedAt := p.Now
			bid.RejectedAt = &rejectedAt
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE bids SET is_retracted = true, is_winning = false
				WHERE id = $1`, p.BidID)
		}
		if err != nil {
			return fmt.Errorf("failed to flag bid: %w", err)
		}
		bid.IsRetracted = true
		bid.IsWinning = false
		result.Bid = *bid

		next, err := scanBid(tx.QueryRowContext(ctx, `
			SELECT `+bidColumns+` FROM bids
			WHERE auction_id = $1 AND is_retracted = false
			ORDER BY amount DESC, created_at ASC
			LIMIT 1`, p.AuctionID))
		var newPrice any
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// ledger is empty again, price falls back to the start price
			newPrice = nil
		case err != nil:
			return fmt.Errorf("failed to find next winning bid: %w", err)
		default:
			if _, err := tx.ExecContext(ctx, `UPDATE bids SET is_winning = true WHERE id = $1`, next.ID); err != nil {
				return fmt.Errorf("failed to promote next winning bid: %w", err)
			}
			next.IsWinning = true
			result.NewWinner = next
			newPrice = next.Amount
		}

		st, err := scanAuctionState(tx.QueryRowContext(ctx, `
			UPDATE auctions
			SET current_price = COALESCE($2::numeric, start_price), updated_at = $3, version = version + 1
			WHERE id = $1 AND version = $4 AND deleted_at IS NULL
			RETURNING `+auctionStateColumns,
			p.AuctionID, newPrice, p.Now, p.Version))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("failed to correct auction price: %w", err)
		}
		result.Auction = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBid fetches a single ledger entry.
func (r *Repository) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	bid, err := scanBid(r.db.QueryRowContext(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return bid, nil
}

// ExtendAuction pushes the auction end time forward, conditioned on the
// version produced by the admission that triggered the extension. A lost
// race means a concurrent writer already moved the auction on; the policy
// treats that as a benign skip.
func (r *Repository) ExtendAuction(ctx context.Context, auctionID uuid.UUID, newEndTime time.Time, version int64, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE auctions SET end_time = $2, updated_at = $3, version = version + 1
		WHERE id = $1 AND version = $4 AND status = 'ACTIVE' AND deleted_at IS NULL`,
		auctionID, newEndTime, now, version)
	if err != nil {
		return fmt.Errorf("failed to extend auction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read extend result: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Participants aggregates the ledger per bidder, excluding retracted bids.
// Ordering is highest bid first with bid count as the tiebreak. A
// non-positive limit returns the full set.
func (r *Repository) Participants(ctx context.Context, auctionID uuid.UUID, limit int) ([]ParticipantRow, error) {
	query := `
		SELECT bidder_id, COUNT(*) AS bid_count, MAX(amount) AS highest_bid,
		       SUM(amount) AS total_amount, MAX(created_at) AS last_bid_at
		FROM bids
		WHERE auction_id = $1 AND is_retracted = false
		GROUP BY bidder_id
		ORDER BY highest_bid DESC, bid_count DESC`
	args := []any{auctionID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate participants: %w", err)
	}
	defer rows.Close()

	var participants []ParticipantRow
	for rows.Next() {
		var p ParticipantRow
		if err := rows.Scan(&p.BidderID, &p.BidCount, &p.HighestBid, &p.TotalAmount, &p.LastBidAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
