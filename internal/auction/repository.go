package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/openmarket/auctiond/internal/models"
	"github.com/openmarket/auctiond/internal/sqlutil"
)

const auctionColumns = `id, product_id, creator_id, start_price, current_price, bid_increment,
	min_bid_amount, start_time, end_time, duration_hours, auto_extend, extend_minutes,
	status, total_bids, last_bid_at, winner_id, version, views, created_at, updated_at, deleted_at`

// Repository provides access to the auction store.
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

func scanAuction(row rowScanner) (*models.Auction, error) {
	var a models.Auction
	var lastBidAt, deletedAt sql.NullTime
	var winnerID uuid.NullUUID

	err := row.Scan(
		&a.ID, &a.ProductID, &a.CreatorID, &a.StartPrice, &a.CurrentPrice, &a.BidIncrement,
		&a.MinBidAmount, &a.StartTime, &a.EndTime, &a.DurationHours, &a.AutoExtend, &a.ExtendMinutes,
		&a.Status, &a.TotalBids, &lastBidAt, &winnerID, &a.Version, &a.Views, &a.CreatedAt, &a.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	a.LastBidAt = sqlutil.FromSqlTime(lastBidAt)
	a.DeletedAt = sqlutil.FromSqlTime(deletedAt)
	a.WinnerID = sqlutil.FromNullUUID(winnerID)
	return &a, nil
}

// CreateAuction inserts a new auction. The one-active-auction-per-product rule
// is enforced by a partial unique index; the insert and the duplicate check
// are therefore a single atomic statement and two concurrent creates for the
// same product cannot both succeed.
func (r *Repository) CreateAuction(ctx context.Context, req CreateAuctionRequest, startTime, endTime, now time.Time) (*models.Auction, error) {
	query := `
		INSERT INTO auctions (
			id, product_id, creator_id, start_price, current_price, bid_increment,
			min_bid_amount, start_time, end_time, duration_hours, auto_extend, extend_minutes,
			status, total_bids, version, views, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $4, $5, $6, $7, $8, $9, $10, $11, 'ACTIVE', 0, 1, 0, $12, $12)
		RETURNING ` + auctionColumns

	row := r.db.QueryRowContext(ctx, query,
		uuid.New(), req.ProductID, req.CreatorID, req.StartPrice, req.BidIncrement,
		req.MinBidAmount, startTime, endTime, req.DurationHours, req.AutoExtend, req.ExtendMinutes,
		now,
	)

	auction, err := scanAuction(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrActiveAuctionExists
		}
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}
	return auction, nil
}

// GetAuction fetches a single non-deleted auction.
func (r *Repository) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 AND deleted_at IS NULL`

	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return auction, nil
}

// ListAuctions returns auctions matching the filter.
func (r *Repository) ListAuctions(ctx context.Context, filter ListAuctionsFilter, now time.Time) ([]*models.Auction, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ProductID != nil {
		where = append(where, "product_id = "+arg(*filter.ProductID))
	}
	if filter.CreatorID != nil {
		where = append(where, "creator_id = "+arg(*filter.CreatorID))
	}
	if filter.Status != nil {
		where = append(where, "status = "+arg(*filter.Status))
	}
	if filter.ActiveOnly {
		p := arg(now)
		where = append(where, "status = 'ACTIVE'", "start_time <= "+p, "end_time > "+p)
	}
	if filter.EndingBefore != nil {
		where = append(where, "end_time < "+arg(*filter.EndingBefore))
	}
	if filter.EndingAfter != nil {
		where = append(where, "end_time > "+arg(*filter.EndingAfter))
	}

	orderBy := "end_time ASC"
	switch filter.SortBy {
	case "price":
		orderBy = "current_price DESC"
	case "bids":
		orderBy = "total_bids DESC"
	}

	query := fmt.Sprintf("SELECT %s FROM auctions WHERE %s ORDER BY %s LIMIT %s OFFSET %s",
		auctionColumns, strings.Join(where, " AND "), orderBy, arg(filter.Limit), arg(filter.Offset))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*models.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

// UpdateAuction applies the given field changes to an ACTIVE auction.
// Business guards (ownership, bids-exist) run in the app layer.
func (r *Repository) UpdateAuction(ctx context.Context, id uuid.UUID, req UpdateAuctionRequest, now time.Time) (*models.Auction, error) {
	sets := []string{}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if req.StartPrice != nil {
		p := arg(*req.StartPrice)
		sets = append(sets, "start_price = "+p, "current_price = "+p)
	}
	if req.BidIncrement != nil {
		sets = append(sets, "bid_increment = "+arg(*req.BidIncrement))
	}
	if req.MinBidAmount != nil {
		sets = append(sets, "min_bid_amount = "+arg(*req.MinBidAmount))
	}
	if req.EndTime != nil {
		sets = append(sets, "end_time = "+arg(*req.EndTime))
	}
	if req.AutoExtend != nil {
		sets = append(sets, "auto_extend = "+arg(*req.AutoExtend))
	}
	if req.ExtendMinutes != nil {
		sets = append(sets, "extend_minutes = "+arg(*req.ExtendMinutes))
	}
	sets = append(sets, "updated_at = "+arg(now), "version = version + 1")

	query := fmt.Sprintf("UPDATE auctions SET %s WHERE id = %s AND status = 'ACTIVE' AND deleted_at IS NULL RETURNING %s",
		strings.Join(sets, ", "), arg(id), auctionColumns)

	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAuctionNotActive
		}
		return nil, fmt.Errorf("failed to update auction: %w", err)
	}
	return auction, nil
}

// CancelAuction transitions ACTIVE -> CANCELLED. The row stays visible so
// cancelled auctions remain fetchable and listable by status; deleted_at is
// reserved for administrative removal. The zero-bids condition is re-checked
// inside the statement so a bid that lands between the app-layer check and
// this update blocks the cancel.
func (r *Repository) CancelAuction(ctx context.Context, id uuid.UUID, now time.Time) (*models.Auction, error) {
	query := `
		UPDATE auctions
		SET status = 'CANCELLED', updated_at = $2, version = version + 1
		WHERE id = $1 AND status = 'ACTIVE' AND total_bids = 0 AND deleted_at IS NULL
		RETURNING ` + auctionColumns

	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, id, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidsExist
		}
		return nil, fmt.Errorf("failed to cancel auction: %w", err)
	}
	return auction, nil
}
