package models

import (
	"time"

	"gorm.io/gorm"
)

// Account roles mirrored from the profile service.
const (
	RoleUser       = "user"
	RoleInfluencer = "influencer"
	RoleSeller     = "seller"
	RoleAdmin      = "admin"
)

// Account is the local snapshot of a Flixbits user needed for referrals.
// Owned by the rewards service; populated via the profile sync worker and
// mutated locally only for referral fields and the Flixbits balance mirror.
type Account struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // profile service UUID
	Username       string `gorm:"index;not null" json:"username"`
	Email          string `json:"email,omitempty"`
	Role           string `gorm:"not null;default:'user'" json:"role"`

	// ReferralCode is assigned lazily, once, the first time the user asks for
	// it. Uniqueness is enforced here, not by the generator.
	ReferralCode *string `gorm:"uniqueIndex" json:"referral_code,omitempty"`

	// ReferredBy holds the external id of the account whose code this user
	// redeemed. Set at most once over the account's lifetime.
	ReferredBy *string `gorm:"index" json:"referred_by,omitempty"`

	// Flixbits is the reward-point balance mirror.
	Flixbits int64 `gorm:"not null;default:0" json:"flixbits"`

	LastSeen *time.Time `json:"last_seen,omitempty"`
	IsBanned bool       `json:"is_banned" gorm:"default:false"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
