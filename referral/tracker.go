package referral

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"flixbits-rewards-service/models"

	"github.com/google/uuid"
)

const (
	ReasonReferralBonus    = "referral_bonus"
	ReasonReferralRollback = "referral_rollback"
)

// Tracker owns redemption: it validates a candidate code against the account
// registry and the ledger, then credits both parties exactly once as one
// logical transaction.
type Tracker struct {
	Store  Store
	Wallet Wallet

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewTracker(store Store, wallet Wallet) *Tracker {
	return &Tracker{
		Store:  store,
		Wallet: wallet,
		Now:    time.Now,
		locks:  make(map[string]*userLock),
	}
}

// lockUser serializes redemption attempts per redeeming user. Entries are
// refcounted and dropped from the map once released, so the map only holds
// users with a redemption in flight. The ledger's unique index on referred_id
// is the backstop for multi-instance deployments.
func (t *Tracker) lockUser(externalID string) *userLock {
	t.mu.Lock()
	l, ok := t.locks[externalID]
	if !ok {
		l = &userLock{}
		t.locks[externalID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return l
}

func (t *Tracker) unlockUser(externalID string, l *userLock) {
	l.mu.Unlock()
	t.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, externalID)
	}
	t.mu.Unlock()
}

// Redeem applies the candidate code for the redeeming user. Validation runs
// in order — unknown code, self-referral, already referred, no campaign —
// and the first failure wins with no state touched. On success both balances
// are credited and a completed ledger record is returned; any downstream
// credit failure triggers compensating rollback so partial application never
// survives.
func (t *Tracker) Redeem(ctx context.Context, code, redeemingUserID string) (*models.ReferralRecord, error) {
	lock := t.lockUser(redeemingUserID)
	defer t.unlockUser(redeemingUserID, lock)

	code = NormalizeCode(code)

	owner, err := t.Store.AccountByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownCode
		}
		return nil, fmt.Errorf("resolving code owner: %w", err)
	}

	if owner.ExternalUserID == redeemingUserID {
		return nil, ErrSelfReferral
	}

	redeemer, err := t.Store.AccountByExternalID(ctx, redeemingUserID)
	if err != nil {
		return nil, fmt.Errorf("loading redeeming account: %w", err)
	}
	if redeemer.ReferredBy != nil && *redeemer.ReferredBy != "" {
		return nil, ErrAlreadyReferred
	}

	now := t.Now()
	campaigns, err := t.Store.ActiveCampaigns(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("loading campaigns: %w", err)
	}
	policy, err := SelectPolicy(campaigns, redeemer.Role, now)
	if err != nil {
		return nil, err
	}

	rec := &models.ReferralRecord{
		ID:            uuid.NewString(),
		ReferrerID:    owner.ExternalUserID,
		ReferrerName:  owner.Username,
		ReferredID:    redeemer.ExternalUserID,
		ReferredName:  redeemer.Username,
		ReferralCode:  code,
		CampaignID:    policy.ID,
		Status:        models.ReferralStatusPending,
		BonusAmount:   policy.BonusAmount,
		ReferrerBonus: policy.ReferrerBonus,
		ReferredBonus: policy.ReferredBonus,
	}
	rec.CreatedAt = now

	if err := t.Store.CreateRecord(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// concurrent redemption by the same user won the insert
			return nil, ErrAlreadyReferred
		}
		return nil, fmt.Errorf("appending ledger record: %w", err)
	}

	if err := t.Wallet.Credit(ctx, owner.ExternalUserID, policy.ReferrerBonus, ReasonReferralBonus, rec.ID); err != nil {
		t.rollback(ctx, rec, false, false)
		return nil, fmt.Errorf("%w: referrer credit: %v", ErrCreditFailure, err)
	}

	if err := t.Wallet.Credit(ctx, redeemer.ExternalUserID, policy.ReferredBonus, ReasonReferralBonus, rec.ID); err != nil {
		t.rollback(ctx, rec, true, false)
		return nil, fmt.Errorf("%w: redeemer credit: %v", ErrCreditFailure, err)
	}

	if err := t.Store.SetReferredBy(ctx, redeemer.ExternalUserID, owner.ExternalUserID); err != nil {
		t.rollback(ctx, rec, true, true)
		if errors.Is(err, ErrAlreadySet) {
			return nil, ErrAlreadyReferred
		}
		return nil, fmt.Errorf("linking referred_by: %w", err)
	}

	completedAt := t.Now()
	rec.Status = models.ReferralStatusCompleted
	rec.CompletedAt = &completedAt
	rec.BonusPaid = true
	if err := t.Store.UpdateRecord(ctx, rec); err != nil {
		// Credits and link are applied; the record stays pending and will be
		// reconciled by the expiry sweep. Surface the error regardless.
		return nil, fmt.Errorf("completing ledger record: %w", err)
	}

	return rec, nil
}

// rollback undoes the tentative ledger append and whatever credits had been
// applied before the failure. Partial credit is worse than total failure.
func (t *Tracker) rollback(ctx context.Context, rec *models.ReferralRecord, referrerPaid, referredPaid bool) {
	if referrerPaid {
		_ = t.Wallet.Debit(ctx, rec.ReferrerID, rec.ReferrerBonus, ReasonReferralRollback, rec.ID)
	}
	if referredPaid {
		_ = t.Wallet.Debit(ctx, rec.ReferredID, rec.ReferredBonus, ReasonReferralRollback, rec.ID)
	}
	_ = t.Store.DeleteRecord(ctx, rec.ID)
}
