package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"flixbits-rewards-service/models"
	"flixbits-rewards-service/referral"
)

// Memory is the in-memory referral.Store. It enforces the same uniqueness
// rules as the Postgres schema (referral_code, referred_id) so the tracker
// behaves identically in tests and in small single-node deployments.
type Memory struct {
	mu        sync.Mutex
	accounts  map[string]*models.Account // by ExternalUserID
	records   map[string]*models.ReferralRecord
	campaigns map[string]*models.ReferralCampaign
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[string]*models.Account),
		records:   make(map[string]*models.ReferralRecord),
		campaigns: make(map[string]*models.ReferralCampaign),
	}
}

// PutAccount upserts an account snapshot (test/bootstrap helper).
func (m *Memory) PutAccount(acct *models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *acct
	m.accounts[acct.ExternalUserID] = &cp
}

// PutCampaign upserts a campaign (test/bootstrap helper).
func (m *Memory) PutCampaign(c *models.ReferralCampaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[c.ID] = &cp
}

func (m *Memory) AccountByExternalID(_ context.Context, externalID string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[externalID]
	if !ok {
		return nil, referral.ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (m *Memory) AccountByReferralCode(_ context.Context, code string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acct := range m.accounts {
		if acct.ReferralCode != nil && *acct.ReferralCode == code {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, referral.ErrNotFound
}

func (m *Memory) AssignReferralCode(_ context.Context, externalID, code string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[externalID]
	if !ok {
		return referral.ErrNotFound
	}
	if !force && acct.ReferralCode != nil && *acct.ReferralCode != "" {
		return referral.ErrAlreadySet
	}
	for id, other := range m.accounts {
		if id != externalID && other.ReferralCode != nil && *other.ReferralCode == code {
			return referral.ErrDuplicate
		}
	}
	acct.ReferralCode = &code
	return nil
}

func (m *Memory) SetReferredBy(_ context.Context, externalID, referrerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[externalID]
	if !ok {
		return referral.ErrNotFound
	}
	if acct.ReferredBy != nil && *acct.ReferredBy != "" {
		return referral.ErrAlreadySet
	}
	acct.ReferredBy = &referrerID
	return nil
}

func (m *Memory) CreateRecord(_ context.Context, rec *models.ReferralRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.ReferredID == rec.ReferredID {
			return referral.ErrDuplicate
		}
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *Memory) UpdateRecord(_ context.Context, rec *models.ReferralRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return referral.ErrNotFound
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *Memory) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *Memory) RecordsForUser(_ context.Context, externalID string) ([]models.ReferralRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []models.ReferralRecord
	for _, rec := range m.records {
		if rec.ReferrerID == externalID || rec.ReferredID == externalID {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs, nil
}

func (m *Memory) CompletedRecords(_ context.Context) ([]models.ReferralRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []models.ReferralRecord
	for _, rec := range m.records {
		if rec.Status == models.ReferralStatusCompleted {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs, nil
}

func (m *Memory) ListRecords(_ context.Context, status models.ReferralStatus) ([]models.ReferralRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []models.ReferralRecord
	for _, rec := range m.records {
		if status == "" || rec.Status == status {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs, nil
}

func (m *Memory) ActiveCampaigns(_ context.Context, now time.Time) ([]models.ReferralCampaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var campaigns []models.ReferralCampaign
	for _, c := range m.campaigns {
		if !c.Active {
			continue
		}
		if c.IsDefault || (!now.Before(c.StartDate) && !now.After(c.EndDate)) {
			campaigns = append(campaigns, *c)
		}
	}
	return campaigns, nil
}

func (m *Memory) ExpirePending(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, rec := range m.records {
		if rec.Status == models.ReferralStatusPending && rec.CreatedAt.Before(cutoff) {
			rec.Status = models.ReferralStatusExpired
			n++
		}
	}
	return n, nil
}

var _ referral.Store = (*Memory)(nil)

// MemoryWallet is an in-memory referral.Wallet keeping balances alongside a
// flat transaction log. FailOnCredit n makes the nth and later credit calls
// fail (1-based; 0 = never), for exercising the tracker's compensation path.
type MemoryWallet struct {
	mu           sync.Mutex
	balances     map[string]int64
	txns         []models.FlixbitsTransaction
	credits      int
	FailOnCredit int
}

func NewMemoryWallet() *MemoryWallet {
	return &MemoryWallet{balances: make(map[string]int64)}
}

func (w *MemoryWallet) Credit(_ context.Context, externalID string, amount int64, reason, recordID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.credits++
	if w.FailOnCredit > 0 && w.credits >= w.FailOnCredit {
		return errors.New("wallet service unavailable")
	}
	w.balances[externalID] += amount
	w.txns = append(w.txns, models.FlixbitsTransaction{
		UserID: externalID, Amount: amount, Reason: reason, ReferralRecordID: &recordID,
	})
	return nil
}

func (w *MemoryWallet) Debit(_ context.Context, externalID string, amount int64, reason, recordID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[externalID] -= amount
	w.txns = append(w.txns, models.FlixbitsTransaction{
		UserID: externalID, Amount: -amount, Reason: reason, ReferralRecordID: &recordID,
	})
	return nil
}

// Balance reports the current balance for a user.
func (w *MemoryWallet) Balance(externalID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[externalID]
}

// Transactions returns a copy of the applied transaction log.
func (w *MemoryWallet) Transactions() []models.FlixbitsTransaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.FlixbitsTransaction, len(w.txns))
	copy(out, w.txns)
	return out
}

var _ referral.Wallet = (*MemoryWallet)(nil)
