package models

import "time"

// ReferralStatus is the lifecycle state of a ledger entry.
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusExpired   ReferralStatus = "expired"
)

// ReferralRecord is one entry in the append-only referral ledger. Completed
// records are never deleted; they are the audit trail behind the leaderboard
// and per-user statistics.
//
// The uniqueIndex on ReferredID is the database-level backstop for the
// one-redemption-per-lifetime rule: two concurrent redemptions by the same
// user cannot both insert.
type ReferralRecord struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReferrerID   string `gorm:"index;not null" json:"referrer_id"`       // ExternalUserID of the code owner
	ReferrerName string `gorm:"not null" json:"referrer_name"`
	ReferredID   string `gorm:"uniqueIndex;not null" json:"referred_id"` // ExternalUserID of the redeemer
	ReferredName string `gorm:"not null" json:"referred_name"`

	ReferralCode string `gorm:"not null" json:"referral_code"`
	CampaignID   string `gorm:"index" json:"campaign_id,omitempty"`

	Status ReferralStatus `gorm:"not null;default:'pending';index" json:"status"`

	// BonusAmount == ReferrerBonus + ReferredBonus, fixed at redemption time
	// from the active campaign. Deactivating a campaign later never rewrites
	// these.
	BonusAmount   int64 `gorm:"not null" json:"bonus_amount"`
	ReferrerBonus int64 `gorm:"not null" json:"referrer_bonus"`
	ReferredBonus int64 `gorm:"not null" json:"referred_bonus"`

	BonusPaid   bool       `gorm:"not null;default:false" json:"bonus_paid"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
