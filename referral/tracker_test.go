package referral_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flixbits-rewards-service/models"
	"flixbits-rewards-service/referral"
	"flixbits-rewards-service/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	store   *store.Memory
	wallet  *store.MemoryWallet
	tracker *referral.Tracker
}

// newFixture seeds accounts A (owner of USER-ABC123), B and C plus a flat
// 50/50 default campaign.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := store.NewMemory()
	mem.PutAccount(&models.Account{
		ID: "a-id", ExternalUserID: "user-a", Username: "alice", Role: models.RoleUser,
		ReferralCode: strPtr("USER-ABC123"),
	})
	mem.PutAccount(&models.Account{
		ID: "b-id", ExternalUserID: "user-b", Username: "bob", Role: models.RoleUser,
	})
	mem.PutAccount(&models.Account{
		ID: "c-id", ExternalUserID: "user-c", Username: "carol", Role: models.RoleUser,
	})
	mem.PutCampaign(&models.ReferralCampaign{
		ID: "default", Name: "Default", Slug: "default",
		ReferrerBonus: 50, ReferredBonus: 50, BonusAmount: 100,
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour),
		Active: true, IsDefault: true,
	})

	w := store.NewMemoryWallet()
	return &fixture{store: mem, wallet: w, tracker: referral.NewTracker(mem, w)}
}

func TestRedeemSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, models.ReferralStatusCompleted, rec.Status)
	assert.True(t, rec.BonusPaid)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, "user-a", rec.ReferrerID)
	assert.Equal(t, "user-b", rec.ReferredID)
	assert.Equal(t, rec.BonusAmount, rec.ReferrerBonus+rec.ReferredBonus)

	assert.EqualValues(t, 50, f.wallet.Balance("user-a"))
	assert.EqualValues(t, 50, f.wallet.Balance("user-b"))

	b, err := f.store.AccountByExternalID(ctx, "user-b")
	require.NoError(t, err)
	require.NotNil(t, b.ReferredBy)
	assert.Equal(t, "user-a", *b.ReferredBy)

	// exactly one record with ReferredID = B
	recs, err := f.store.RecordsForUser(ctx, "user-b")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "user-b", recs[0].ReferredID)
}

func TestRedeemCaseInsensitiveCode(t *testing.T) {
	f := newFixture(t)

	rec, err := f.tracker.Redeem(context.Background(), "  user-abc123 ", "user-b")
	require.NoError(t, err)
	assert.Equal(t, "USER-ABC123", rec.ReferralCode)
}

func TestRedeemUnknownCode(t *testing.T) {
	f := newFixture(t)

	rec, err := f.tracker.Redeem(context.Background(), "USER-NOPE99", "user-b")
	assert.ErrorIs(t, err, referral.ErrUnknownCode)
	assert.Nil(t, rec)
	assert.EqualValues(t, 0, f.wallet.Balance("user-b"))
}

func TestRedeemUnsyncedRedeemer(t *testing.T) {
	f := newFixture(t)

	// valid code, but the redeeming account has no local snapshot yet
	rec, err := f.tracker.Redeem(context.Background(), "USER-ABC123", "ghost")
	assert.ErrorIs(t, err, referral.ErrNotFound)
	assert.Empty(t, referral.Kind(err))
	assert.Nil(t, rec)
	assert.EqualValues(t, 0, f.wallet.Balance("user-a"))
}

func TestRedeemSelfReferral(t *testing.T) {
	f := newFixture(t)

	rec, err := f.tracker.Redeem(context.Background(), "USER-ABC123", "user-a")
	assert.ErrorIs(t, err, referral.ErrSelfReferral)
	assert.Nil(t, rec)
	assert.EqualValues(t, 0, f.wallet.Balance("user-a"))
}

func TestRedeemTwiceIsAlreadyReferred(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
	require.NoError(t, err)

	balA := f.wallet.Balance("user-a")
	balB := f.wallet.Balance("user-b")

	rec, err := f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
	assert.ErrorIs(t, err, referral.ErrAlreadyReferred)
	assert.Nil(t, rec)

	// repeating the failing call is safe: balances and ledger unchanged
	assert.Equal(t, balA, f.wallet.Balance("user-a"))
	assert.Equal(t, balB, f.wallet.Balance("user-b"))
	recs, err := f.store.RecordsForUser(ctx, "user-b")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRedeemDifferentCodeAfterSuccessStillRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// C gets a code, B redeems A's code first
	require.NoError(t, f.store.AssignReferralCode(ctx, "user-c", "USER-XYZ789", false))
	_, err := f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
	require.NoError(t, err)

	_, err = f.tracker.Redeem(ctx, "USER-XYZ789", "user-b")
	assert.ErrorIs(t, err, referral.ErrAlreadyReferred)
	assert.EqualValues(t, 0, f.wallet.Balance("user-c"))
}

func TestRedeemNoCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// deactivate the only campaign
	f.store.PutCampaign(&models.ReferralCampaign{
		ID: "default", Name: "Default", Slug: "default",
		ReferrerBonus: 50, ReferredBonus: 50, BonusAmount: 100,
		Active: false, IsDefault: true,
	})

	rec, err := f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
	assert.ErrorIs(t, err, referral.ErrCampaignInactive)
	assert.Nil(t, rec)

	// no state touched
	assert.EqualValues(t, 0, f.wallet.Balance("user-a"))
	b, _ := f.store.AccountByExternalID(ctx, "user-b")
	assert.Nil(t, b.ReferredBy)
	recs, _ := f.store.RecordsForUser(ctx, "user-b")
	assert.Empty(t, recs)
}

func TestRedeemFirstCreditFails(t *testing.T) {
	f := newFixture(t)
	f.wallet.FailOnCredit = 1
	ctx := context.Background()

	rec, err := f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
	assert.ErrorIs(t, err, referral.ErrCreditFailure)
	assert.Nil(t, rec)

	assert.EqualValues(t, 0, f.wallet.Balance("user-a"))
	assert.EqualValues(t, 0, f.wallet.Balance("user-b"))
	recs, _ := f.store.RecordsForUser(ctx, "user-b")
	assert.Empty(t, recs, "tentative ledger append must be rolled back")
	b, _ := f.store.AccountByExternalID(ctx, "user-b")
	assert.Nil(t, b.ReferredBy)
}

func TestRedeemSecondCreditFailsCompensatesFirst(t *testing.T) {
	f := newFixture(t)
	f.wallet.FailOnCredit = 2
	ctx := context.Background()

	rec, err := f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
	assert.ErrorIs(t, err, referral.ErrCreditFailure)
	assert.Nil(t, rec)

	// referrer's credit was applied, then compensated back to zero
	assert.EqualValues(t, 0, f.wallet.Balance("user-a"))
	assert.EqualValues(t, 0, f.wallet.Balance("user-b"))
	recs, _ := f.store.RecordsForUser(ctx, "user-b")
	assert.Empty(t, recs)
	b, _ := f.store.AccountByExternalID(ctx, "user-b")
	assert.Nil(t, b.ReferredBy)

	// the compensation is visible in the transaction log
	var rollbacks int
	for _, txn := range f.wallet.Transactions() {
		if txn.Reason == referral.ReasonReferralRollback {
			rollbacks++
		}
	}
	assert.Equal(t, 1, rollbacks)
}

func TestRedeemAfterFailureSucceeds(t *testing.T) {
	f := newFixture(t)
	f.wallet.FailOnCredit = 1
	ctx := context.Background()

	_, err := f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
	require.ErrorIs(t, err, referral.ErrCreditFailure)

	// wallet recovers; the caller retries
	f.wallet.FailOnCredit = 0
	rec, err := f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusCompleted, rec.Status)
	assert.EqualValues(t, 50, f.wallet.Balance("user-a"))
	assert.EqualValues(t, 50, f.wallet.Balance("user-b"))
}

func TestConcurrentRedemptionExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		default:
			assert.True(t, errors.Is(err, referral.ErrAlreadyReferred), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent attempt may win")

	assert.EqualValues(t, 50, f.wallet.Balance("user-a"))
	assert.EqualValues(t, 50, f.wallet.Balance("user-b"))
	recs, _ := f.store.RecordsForUser(ctx, "user-b")
	assert.Len(t, recs, 1)
}

func TestRedeemUsesTargetedCampaignOverDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	f.store.PutCampaign(&models.ReferralCampaign{
		ID: "sellers", Name: "Seller Boost", Slug: "seller-boost",
		TargetAudience: "seller",
		ReferrerBonus:  200, ReferredBonus: 100, BonusAmount: 300,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour),
		Active: true,
	})
	f.store.PutAccount(&models.Account{
		ID: "d-id", ExternalUserID: "user-d", Username: "dana", Role: models.RoleSeller,
	})

	rec, err := f.tracker.Redeem(ctx, "USER-ABC123", "user-d")
	require.NoError(t, err)
	assert.Equal(t, "sellers", rec.CampaignID)
	assert.EqualValues(t, 200, f.wallet.Balance("user-a"))
	assert.EqualValues(t, 100, f.wallet.Balance("user-d"))

	// a plain user still gets the default split
	rec, err = f.tracker.Redeem(ctx, "USER-ABC123", "user-b")
	require.NoError(t, err)
	assert.Equal(t, "default", rec.CampaignID)
}
