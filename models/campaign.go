package models

import (
	"strings"
	"time"
)

// ReferralCampaign is an admin-configured bonus policy: how many Flixbits each
// side of a referral earns, for which audience, during which window. Exactly
// one campaign is consulted per redemption; the chosen split is copied onto
// the ReferralRecord so later edits never change history.
type ReferralCampaign struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	Slug      string `gorm:"uniqueIndex;not null" json:"slug"`
	BannerURL string `gorm:"type:text" json:"banner_url,omitempty"`

	// TargetAudience is a comma-separated role tag set ("influencer,seller").
	// Empty means the campaign applies to every role.
	TargetAudience string `json:"target_audience"`

	// ReferrerBonus + ReferredBonus == BonusAmount by construction.
	BonusAmount   int64 `gorm:"not null" json:"bonus_amount"`
	ReferrerBonus int64 `gorm:"not null" json:"referrer_bonus"`
	ReferredBonus int64 `gorm:"not null" json:"referred_bonus"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`

	Active bool `gorm:"not null;default:true;index" json:"active"`

	// IsDefault marks the system-wide fallback consulted when no targeted
	// campaign matches. The default ignores audience and date window.
	IsDefault bool `gorm:"not null;default:false;index" json:"is_default"`

	Timestamps
}

// AudienceRoles splits the tag set into individual role tags.
func (c *ReferralCampaign) AudienceRoles() []string {
	if c.TargetAudience == "" {
		return nil
	}
	var roles []string
	for _, tag := range strings.Split(c.TargetAudience, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			roles = append(roles, tag)
		}
	}
	return roles
}
