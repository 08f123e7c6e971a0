package models

import "time"

// FlixbitsTransaction is one signed movement on a user's Flixbits balance.
// Every credit or compensating debit applied by the referral tracker leaves a
// row here, so the balance mirror can always be reconciled against the ledger.
type FlixbitsTransaction struct {
	ID               string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID           string    `gorm:"index;not null" json:"user_id"` // ExternalUserID
	Amount           int64     `gorm:"not null" json:"amount"`        // negative for debits
	Reason           string    `gorm:"not null" json:"reason"`        // e.g. "referral_bonus", "referral_rollback"
	ReferralRecordID *string   `gorm:"index" json:"referral_record_id,omitempty"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}
