package referral

import (
	"context"
	"time"

	"flixbits-rewards-service/models"
)

// Store is the persistence collaborator behind the tracker, aggregator and
// code issuer. The production implementation sits on Postgres via GORM; tests
// run the same logic against an in-memory fake.
//
// Implementations must enforce two uniqueness rules and surface violations as
// ErrDuplicate / ErrAlreadySet: ReferralCode is unique across accounts, and
// ReferredID is unique across referral records.
type Store interface {
	AccountByExternalID(ctx context.Context, externalID string) (*models.Account, error)
	AccountByReferralCode(ctx context.Context, code string) (*models.Account, error)

	// AssignReferralCode persists a freshly generated code. With force=false
	// it returns ErrAlreadySet when the account already has one; force=true
	// overwrites (admin reset). A collision with another account's code
	// returns ErrDuplicate.
	AssignReferralCode(ctx context.Context, externalID, code string, force bool) error

	// SetReferredBy links the redeemer to the code owner. Returns
	// ErrAlreadySet when the field is already populated.
	SetReferredBy(ctx context.Context, externalID, referrerID string) error

	// CreateRecord appends to the ledger. Returns ErrDuplicate when a record
	// for the same ReferredID already exists.
	CreateRecord(ctx context.Context, rec *models.ReferralRecord) error
	UpdateRecord(ctx context.Context, rec *models.ReferralRecord) error
	DeleteRecord(ctx context.Context, id string) error

	// RecordsForUser returns every record where the user appears as referrer
	// or as referred, newest first.
	RecordsForUser(ctx context.Context, externalID string) ([]models.ReferralRecord, error)
	CompletedRecords(ctx context.Context) ([]models.ReferralRecord, error)

	// ListRecords returns the ledger newest first, filtered to one status
	// when status is non-empty.
	ListRecords(ctx context.Context, status models.ReferralStatus) ([]models.ReferralRecord, error)

	ActiveCampaigns(ctx context.Context, now time.Time) ([]models.ReferralCampaign, error)

	// ExpirePending flips pending records created before the cutoff to
	// expired and reports how many were swept.
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// Wallet is the balance collaborator: the generic "move N Flixbits for user X"
// operation. In a single-service deployment it mutates the local balance
// mirror; behind a gateway it can be the remote wallet service, whose
// failures the tracker compensates for.
type Wallet interface {
	Credit(ctx context.Context, externalID string, amount int64, reason, recordID string) error
	Debit(ctx context.Context, externalID string, amount int64, reason, recordID string) error
}
