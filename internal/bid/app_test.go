package bid

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/openmarket/auctiond/internal/events"
	"github.com/openmarket/auctiond/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeStore is an in-memory stand-in for the bid repository and the auction
// source. It honors the same version compare-and-swap contract as the SQL
// implementation so concurrent admissions race realistically.
type fakeStore struct {
	mu      sync.Mutex
	auction models.Auction
	bids    map[uuid.UUID]*models.Bid
	order   []uuid.UUID

	forcedConflicts int
	lastLimit       int
	extendCalls     int
}

func newFakeStore(a models.Auction) *fakeStore {
	return &fakeStore{
		auction: a,
		bids:    make(map[uuid.UUID]*models.Bid),
	}
}

func (f *fakeStore) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.auction
	return &a, nil
}

func (f *fakeStore) AdmitBid(ctx context.Context, p AdmitBidParams) (*AdmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.forcedConflicts > 0 {
		f.forcedConflicts--
		return nil, ErrVersionConflict
	}
	if p.Version != f.auction.Version || f.auction.Status != models.AuctionStatusActive {
		return nil, ErrVersionConflict
	}

	var result AdmitResult
	for _, b := range f.bids {
		if b.IsWinning && !b.IsRetracted {
			b.IsWinning = false
			id, bidder := b.ID, b.BidderID
			result.PreviousBidID = &id
			result.PreviousBidder = &bidder
		}
	}

	b := &models.Bid{
		ID:        uuid.New(),
		AuctionID: p.AuctionID,
		BidderID:  p.BidderID,
		Amount:    p.Amount,
		IsWinning: true,
		CreatedAt: p.PlacedAt,
	}
	f.bids[b.ID] = b
	f.order = append(f.order, b.ID)

	f.auction.CurrentPrice = p.Amount
	f.auction.TotalBids++
	f.auction.LastBidAt = &p.PlacedAt
	f.auction.Version++

	result.Bid = *b
	result.Auction = f.auctionStateLocked()
	return &result, nil
}

func (f *fakeStore) RemoveBid(ctx context.Context, p RemoveBidParams) (*RemoveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.Version != f.auction.Version {
		return nil, ErrVersionConflict
	}

	b, ok := f.bids[p.BidID]
	if !ok || b.AuctionID != p.AuctionID {
		return nil, ErrBidNotFound
	}
	if b.IsRetracted {
		return nil, ErrBidRetracted
	}

	b.IsRetracted = true
	b.IsWinning = false
	if p.Reject {
		rejectedAt := p.Now
		b.RejectedAt = &rejectedAt
	}

	var result RemoveResult
	result.Bid = *b

	var next *models.Bid
	for _, id := range f.order {
		cand := f.bids[id]
		if cand.IsRetracted {
			continue
		}
		if next == nil || cand.Amount.GreaterThan(next.Amount) {
			next = cand
		}
	}
	if next != nil {
		next.IsWinning = true
		nw := *next
		result.NewWinner = &nw
		f.auction.CurrentPrice = next.Amount
	} else {
		f.auction.CurrentPrice = f.auction.StartPrice
	}
	f.auction.Version++
	result.Auction = f.auctionStateLocked()
	return &result, nil
}

func (f *fakeStore) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bids[id]
	if !ok {
		return nil, ErrBidNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeStore) ExtendAuction(ctx context.Context, auctionID uuid.UUID, newEndTime time.Time, version int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extendCalls++
	if version != f.auction.Version {
		return ErrVersionConflict
	}
	f.auction.EndTime = newEndTime
	f.auction.Version++
	return nil
}

func (f *fakeStore) Participants(ctx context.Context, auctionID uuid.UUID, limit int) ([]ParticipantRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit

	n := len(f.order)
	if limit > 0 && limit < n {
		n = limit
	}
	rows := make([]ParticipantRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, ParticipantRow{BidderID: uuid.New()})
	}
	return rows, nil
}

func (f *fakeStore) auctionStateLocked() AuctionState {
	return AuctionState{
		ID:            f.auction.ID,
		CurrentPrice:  f.auction.CurrentPrice,
		TotalBids:     f.auction.TotalBids,
		EndTime:       f.auction.EndTime,
		AutoExtend:    f.auction.AutoExtend,
		ExtendMinutes: f.auction.ExtendMinutes,
		Status:        f.auction.Status,
		Version:       f.auction.Version,
	}
}

func (f *fakeStore) winningBids() []*models.Bid {
	f.mu.Lock()
	defer f.mu.Unlock()
	var winners []*models.Bid
	for _, b := range f.bids {
		if b.IsWinning && !b.IsRetracted {
			winners = append(winners, b)
		}
	}
	return winners
}

type fakeBroadcaster struct {
	mu         sync.Mutex
	auctionEvs []events.Event
	userEvs    map[uuid.UUID][]events.Event
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{userEvs: make(map[uuid.UUID][]events.Event)}
}

func (f *fakeBroadcaster) BroadcastToAuction(auctionID uuid.UUID, event events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auctionEvs = append(f.auctionEvs, event)
}

func (f *fakeBroadcaster) BroadcastToUser(userID uuid.UUID, event events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userEvs[userID] = append(f.userEvs[userID], event)
}

func (f *fakeBroadcaster) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]events.EventType, len(f.auctionEvs))
	for i, ev := range f.auctionEvs {
		types[i] = ev.Type
	}
	return types
}

type fakeNotifier struct {
	mu      sync.Mutex
	outbids []uuid.UUID
}

func (f *fakeNotifier) NotifyOutbid(ctx context.Context, userID, auctionID uuid.UUID, amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outbids = append(f.outbids, userID)
}

func activeAuction(now time.Time) models.Auction {
	return models.Auction{
		ID:           uuid.New(),
		ProductID:    uuid.New(),
		CreatorID:    uuid.New(),
		StartPrice:   dec("100000"),
		CurrentPrice: dec("100000"),
		BidIncrement: dec("1000"),
		MinBidAmount: dec("100000"),
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(time.Hour),
		Status:       models.AuctionStatusActive,
		Version:      1,
	}
}

type fixture struct {
	store       *fakeStore
	broadcaster *fakeBroadcaster
	notifier    *fakeNotifier
	clock       clockwork.Clock
	app         *App
}

func newFixture(t *testing.T, a models.Auction, clock clockwork.Clock) *fixture {
	t.Helper()
	store := newFakeStore(a)
	broadcaster := newFakeBroadcaster()
	notifier := &fakeNotifier{}
	app := NewApp(store, store, broadcaster, notifier, clock, Config{MaxAttempts: 4, RetryBackoff: time.Millisecond})
	return &fixture{store: store, broadcaster: broadcaster, notifier: notifier, clock: clock, app: app}
}

func TestPlaceBid_FirstBidScenario(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)
	ctx := context.Background()

	bidderA := uuid.New()
	bidderB := uuid.New()

	// First bid at the minimum is accepted.
	bidA, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: bidderA, Amount: dec("100000")})
	require.NoError(t, err)
	assert.True(t, bidA.IsWinning)

	current, _ := fx.store.GetAuction(ctx, a.ID)
	assert.True(t, current.CurrentPrice.Equal(dec("100000")))

	// Below the increment threshold is rejected with no state change.
	_, err = fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: bidderB, Amount: dec("100500")})
	require.ErrorIs(t, err, ErrBidTooLow)
	current, _ = fx.store.GetAuction(ctx, a.ID)
	assert.True(t, current.CurrentPrice.Equal(dec("100000")))
	assert.Equal(t, 1, current.TotalBids)

	// Meeting the increment demotes the previous winner.
	bidB, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: bidderB, Amount: dec("101000")})
	require.NoError(t, err)
	assert.True(t, bidB.IsWinning)

	current, _ = fx.store.GetAuction(ctx, a.ID)
	assert.True(t, current.CurrentPrice.Equal(dec("101000")))

	stored, err := fx.store.GetBid(ctx, bidA.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsWinning)

	winners := fx.store.winningBids()
	require.Len(t, winners, 1)
	assert.Equal(t, bidB.ID, winners[0].ID)

	// Demoted bidder got the outbid notification, but not the new bidder.
	assert.Equal(t, []uuid.UUID{bidderA}, fx.notifier.outbids)
}

func TestPlaceBid_FirstBidBelowMinimum(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)

	_, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("99999")})
	require.ErrorIs(t, err, ErrBidTooLow)
	assert.Empty(t, fx.store.winningBids())
}

func TestPlaceBid_InvalidAmount(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)

	_, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("0")})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPlaceBid_SelfBidForbidden(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)

	_, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: a.CreatorID, Amount: dec("100000")})
	require.ErrorIs(t, err, ErrSelfBid)
}

func TestPlaceBid_EndedAuction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	a.EndTime = clock.Now().Add(-time.Minute)
	fx := newFixture(t, a, clock)

	_, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.ErrorIs(t, err, ErrAuctionEnded)
}

func TestPlaceBid_InactiveAuction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	a.Status = models.AuctionStatusCancelled
	fx := newFixture(t, a, clock)

	_, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.ErrorIs(t, err, ErrAuctionNotActive)
}

func TestPlaceBid_RetriesAfterLostRace(t *testing.T) {
	a := activeAuction(time.Now())
	fx := newFixture(t, a, clockwork.NewRealClock())
	fx.store.forcedConflicts = 2

	bid, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.NoError(t, err)
	assert.True(t, bid.IsWinning)
}

func TestPlaceBid_ContentionBudgetExhausted(t *testing.T) {
	a := activeAuction(time.Now())
	fx := newFixture(t, a, clockwork.NewRealClock())
	fx.store.forcedConflicts = 100

	_, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.ErrorIs(t, err, ErrContention)

	// Nothing was applied.
	current, _ := fx.store.GetAuction(context.Background(), a.ID)
	assert.Equal(t, 0, current.TotalBids)
	assert.True(t, current.CurrentPrice.Equal(dec("100000")))
}

func TestPlaceBid_ConcurrentSameAmount(t *testing.T) {
	a := activeAuction(time.Now())
	fx := newFixture(t, a, clockwork.NewRealClock())
	ctx := context.Background()

	_, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.NoError(t, err)

	// Two bidders race for the same next-valid amount.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("101000")})
		}(i)
	}
	wg.Wait()

	var accepted, tooLow int
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		default:
			require.ErrorIs(t, err, ErrBidTooLow)
			tooLow++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, tooLow)

	winners := fx.store.winningBids()
	require.Len(t, winners, 1)
	current, _ := fx.store.GetAuction(ctx, a.ID)
	assert.True(t, current.CurrentPrice.Equal(winners[0].Amount))
	assert.True(t, current.CurrentPrice.Equal(dec("101000")))
}

func TestPlaceBid_ConcurrentBiddersSingleWinner(t *testing.T) {
	a := activeAuction(time.Now())
	fx := newFixture(t, a, clockwork.NewRealClock())
	ctx := context.Background()

	amounts := []string{"100000", "101000", "102000", "103000", "104000"}
	var wg sync.WaitGroup
	for _, amt := range amounts {
		wg.Add(1)
		go func(amt string) {
			defer wg.Done()
			// Lower bids may legitimately lose; only the invariant matters.
			fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec(amt)})
		}(amt)
	}
	wg.Wait()

	winners := fx.store.winningBids()
	require.Len(t, winners, 1)
	current, _ := fx.store.GetAuction(ctx, a.ID)
	assert.True(t, current.CurrentPrice.Equal(winners[0].Amount))
	assert.True(t, current.TotalBids >= 1)
}

func TestAutoExtend_InsideWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	a.AutoExtend = true
	a.ExtendMinutes = 5
	a.EndTime = clock.Now().Add(3 * time.Minute)
	fx := newFixture(t, a, clock)

	_, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.NoError(t, err)

	current, _ := fx.store.GetAuction(context.Background(), a.ID)
	assert.True(t, current.EndTime.Equal(clock.Now().Add(5*time.Minute)))
	assert.Contains(t, fx.broadcaster.eventTypes(), events.EventTypeAuctionExtended)
}

func TestAutoExtend_OutsideWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	a.AutoExtend = true
	a.ExtendMinutes = 5
	a.EndTime = clock.Now().Add(10 * time.Minute)
	fx := newFixture(t, a, clock)

	_, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.NoError(t, err)

	current, _ := fx.store.GetAuction(context.Background(), a.ID)
	assert.True(t, current.EndTime.Equal(a.EndTime), "end time must not move for bids outside the window")
	assert.NotContains(t, fx.broadcaster.eventTypes(), events.EventTypeAuctionExtended)
}

func TestAutoExtend_NeverShortens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	a.AutoExtend = true
	a.ExtendMinutes = 5
	a.EndTime = clock.Now().Add(4 * time.Minute)
	fx := newFixture(t, a, clock)

	before := a.EndTime
	_, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.NoError(t, err)

	current, _ := fx.store.GetAuction(context.Background(), a.ID)
	assert.True(t, current.EndTime.After(before))
}

func TestAutoExtend_Disabled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	a.EndTime = clock.Now().Add(time.Minute)
	fx := newFixture(t, a, clock)

	_, err := fx.app.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.NoError(t, err)
	assert.Equal(t, 0, fx.store.extendCalls)
}

func TestRetractBid_WinningBidPromotesNext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)
	ctx := context.Background()

	bidderA := uuid.New()
	bidderB := uuid.New()
	bidA, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: bidderA, Amount: dec("100000")})
	require.NoError(t, err)
	bidB, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: bidderB, Amount: dec("101000")})
	require.NoError(t, err)

	retracted, err := fx.app.RetractBid(ctx, a.ID, bidB.ID, bidderB)
	require.NoError(t, err)
	assert.True(t, retracted.IsRetracted)
	assert.False(t, retracted.IsWinning)

	// The next-highest non-retracted bid is promoted and the price corrected.
	winners := fx.store.winningBids()
	require.Len(t, winners, 1)
	assert.Equal(t, bidA.ID, winners[0].ID)
	current, _ := fx.store.GetAuction(ctx, a.ID)
	assert.True(t, current.CurrentPrice.Equal(dec("100000")))

	assert.Contains(t, fx.broadcaster.eventTypes(), events.EventTypeAuctionUpdated)
}

func TestRetractBid_LastBidResetsToStartPrice(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)
	ctx := context.Background()

	bidder := uuid.New()
	placed, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: bidder, Amount: dec("105000")})
	require.NoError(t, err)

	_, err = fx.app.RetractBid(ctx, a.ID, placed.ID, bidder)
	require.NoError(t, err)

	assert.Empty(t, fx.store.winningBids())
	current, _ := fx.store.GetAuction(ctx, a.ID)
	assert.True(t, current.CurrentPrice.Equal(a.StartPrice))
}

func TestRetractBid_OnlyOwnBid(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)
	ctx := context.Background()

	placed, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.NoError(t, err)

	_, err = fx.app.RetractBid(ctx, a.ID, placed.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotBidOwner)
}

func TestRetractBid_AlreadyRetracted(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)
	ctx := context.Background()

	bidder := uuid.New()
	placed, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: bidder, Amount: dec("100000")})
	require.NoError(t, err)

	_, err = fx.app.RetractBid(ctx, a.ID, placed.ID, bidder)
	require.NoError(t, err)
	_, err = fx.app.RetractBid(ctx, a.ID, placed.ID, bidder)
	require.ErrorIs(t, err, ErrBidRetracted)
}

func TestRejectBid_CreatorOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)
	ctx := context.Background()

	placed, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec("100000")})
	require.NoError(t, err)

	_, err = fx.app.RejectBid(ctx, a.ID, placed.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotAuctionOwner)

	rejected, err := fx.app.RejectBid(ctx, a.ID, placed.ID, a.CreatorID)
	require.NoError(t, err)
	assert.True(t, rejected.IsRetracted)
	require.NotNil(t, rejected.RejectedAt)

	types := fx.broadcaster.eventTypes()
	assert.Contains(t, types, events.EventTypeBidRejected)
	assert.Contains(t, types, events.EventTypeAuctionUpdated)
}

func TestCurrentPriceMonotonicallyIncreases(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)
	ctx := context.Background()

	last := a.CurrentPrice
	for _, amt := range []string{"100000", "101000", "102500", "104000"} {
		_, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec(amt)})
		require.NoError(t, err)

		current, _ := fx.store.GetAuction(ctx, a.ID)
		assert.True(t, current.CurrentPrice.GreaterThanOrEqual(last))
		last = current.CurrentPrice
	}
}

func TestLeaderboard_LimitClamping(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)
	ctx := context.Background()

	_, err := fx.app.Leaderboard(ctx, a.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, fx.store.lastLimit)

	_, err = fx.app.Leaderboard(ctx, a.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, fx.store.lastLimit)

	_, err = fx.app.Leaderboard(ctx, a.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, fx.store.lastLimit)
}

func TestParticipants_Uncapped(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)
	ctx := context.Background()

	amount := dec("100000")
	for i := 0; i < 120; i++ {
		_, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: amount})
		require.NoError(t, err)
		amount = amount.Add(a.BidIncrement)
	}

	rows, err := fx.app.Participants(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fx.store.lastLimit)
	assert.Len(t, rows, 120)
}

func TestWinners_TopThreeRanked(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := activeAuction(clock.Now())
	fx := newFixture(t, a, clock)
	ctx := context.Background()

	for _, amt := range []string{"100000", "101000", "102000", "103000"} {
		_, err := fx.app.PlaceBid(ctx, PlaceBidRequest{AuctionID: a.ID, BidderID: uuid.New(), Amount: dec(amt)})
		require.NoError(t, err)
	}

	winners, err := fx.app.Winners(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, winners, 3)
	for i, w := range winners {
		assert.Equal(t, i+1, w.Rank)
	}
}
