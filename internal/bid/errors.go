package bid

import "errors"

var (
	// ErrBidNotFound is returned when the bid does not exist for the auction.
	ErrBidNotFound = errors.New("bid not found")
	// ErrBidTooLow is returned when the amount is below the minimum next bid.
	ErrBidTooLow = errors.New("bid amount too low")
	// ErrInvalidAmount is returned for a non-positive bid amount.
	ErrInvalidAmount = errors.New("bid amount must be positive")
	// ErrSelfBid is returned when the auction creator bids on their own auction.
	ErrSelfBid = errors.New("cannot bid on own auction")
	// ErrAuctionNotActive is returned for bids on a cancelled or ended auction.
	ErrAuctionNotActive = errors.New("auction is not active")
	// ErrAuctionEnded is returned when the auction's time window has passed.
	ErrAuctionEnded = errors.New("auction has ended")
	// ErrBidRetracted is returned when acting on an already-retracted bid.
	ErrBidRetracted = errors.New("bid already retracted")
	// ErrNotBidOwner is returned when a bidder retracts someone else's bid.
	ErrNotBidOwner = errors.New("caller does not own the bid")
	// ErrNotAuctionOwner is returned when a non-creator rejects a bid.
	ErrNotAuctionOwner = errors.New("caller does not own the auction")

	// ErrVersionConflict signals a lost optimistic-concurrency race. It is
	// internal to one admission attempt; the app layer retries on it.
	ErrVersionConflict = errors.New("auction version conflict")
	// ErrContention is surfaced when the retry budget is exhausted. The
	// auction state is intact; the caller may simply retry.
	ErrContention = errors.New("bid lost too many concurrent races, retry")
)
