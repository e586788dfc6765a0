package auction

import "errors"

var (
	// ErrAuctionNotFound is returned when the auction does not exist or is soft-deleted.
	ErrAuctionNotFound = errors.New("auction not found")
	// ErrAuctionNotActive is returned for mutations on an ended or cancelled auction.
	ErrAuctionNotActive = errors.New("auction is not active")
	// ErrActiveAuctionExists is returned when the product already has a live auction.
	ErrActiveAuctionExists = errors.New("product already has an active auction")
	// ErrProductNotActive is returned when the listed product is not in ACTIVE state.
	ErrProductNotActive = errors.New("product is not active")
	// ErrNotProductOwner is returned when the caller does not own the product.
	ErrNotProductOwner = errors.New("caller does not own the product")
	// ErrNotAuctionOwner is returned for owner-only actions by a non-owner.
	ErrNotAuctionOwner = errors.New("caller does not own the auction")
	// ErrBidsExist is returned for changes forbidden once bids were placed.
	ErrBidsExist = errors.New("auction already has bids")
	// ErrInvalidTimeWindow is returned when the end time is not in the future.
	ErrInvalidTimeWindow = errors.New("auction end time must be in the future")
	// ErrMinBidExceedsStart is returned when min_bid_amount > start_price.
	ErrMinBidExceedsStart = errors.New("minimum bid amount exceeds start price")
	// ErrInvalidPrice is returned for non-positive price fields.
	ErrInvalidPrice = errors.New("price fields must be positive")
)
