package referral

import (
	"time"

	"flixbits-rewards-service/models"
)

// SelectPolicy picks the campaign whose split applies to a redemption by a
// user with the given role, at the given instant.
//
// Targeted campaigns (non-empty audience containing the role, date window
// containing now) beat catch-all campaigns (empty audience, window containing
// now); within each tier the most recently started wins. When nothing
// matches, the system-wide default campaign is the fallback; the default
// ignores audience and window. No match and no default means redemption
// cannot price a bonus: ErrCampaignInactive.
func SelectPolicy(campaigns []models.ReferralCampaign, role string, now time.Time) (*models.ReferralCampaign, error) {
	var targeted, catchAll, fallback *models.ReferralCampaign

	for i := range campaigns {
		c := &campaigns[i]
		if !c.Active {
			continue
		}
		if c.IsDefault {
			if fallback == nil || c.StartDate.After(fallback.StartDate) {
				fallback = c
			}
			continue
		}
		if now.Before(c.StartDate) || now.After(c.EndDate) {
			continue
		}
		roles := c.AudienceRoles()
		if len(roles) == 0 {
			if catchAll == nil || c.StartDate.After(catchAll.StartDate) {
				catchAll = c
			}
			continue
		}
		for _, r := range roles {
			if r == role {
				if targeted == nil || c.StartDate.After(targeted.StartDate) {
					targeted = c
				}
				break
			}
		}
	}

	switch {
	case targeted != nil:
		return targeted, nil
	case catchAll != nil:
		return catchAll, nil
	case fallback != nil:
		return fallback, nil
	}
	return nil, ErrCampaignInactive
}

// ValidateSplit checks the construction rule for campaign bonuses.
func ValidateSplit(referrerBonus, referredBonus, bonusAmount int64) bool {
	return referrerBonus >= 0 && referredBonus >= 0 && referrerBonus+referredBonus == bonusAmount
}
