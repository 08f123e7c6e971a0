package referral_test

import (
	"testing"
	"time"

	"flixbits-rewards-service/models"
	"flixbits-rewards-service/referral"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func campaign(id, audience string, start, end time.Time, active, isDefault bool) models.ReferralCampaign {
	return models.ReferralCampaign{
		ID: id, Name: id, Slug: id,
		TargetAudience: audience,
		ReferrerBonus:  50, ReferredBonus: 50, BonusAmount: 100,
		StartDate: start, EndDate: end,
		Active: active, IsDefault: isDefault,
	}
}

func TestSelectPolicyTargetedBeatsCatchAll(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	campaigns := []models.ReferralCampaign{
		campaign("catch-all", "", now.Add(-time.Hour), now.Add(time.Hour), true, false),
		campaign("sellers", "seller,influencer", now.Add(-time.Hour), now.Add(time.Hour), true, false),
		campaign("default", "", time.Time{}, time.Time{}, true, true),
	}

	got, err := referral.SelectPolicy(campaigns, models.RoleSeller, now)
	require.NoError(t, err)
	assert.Equal(t, "sellers", got.ID)

	got, err = referral.SelectPolicy(campaigns, models.RoleUser, now)
	require.NoError(t, err)
	assert.Equal(t, "catch-all", got.ID)
}

func TestSelectPolicyWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	campaigns := []models.ReferralCampaign{
		campaign("past", "", now.Add(-48*time.Hour), now.Add(-24*time.Hour), true, false),
		campaign("future", "", now.Add(24*time.Hour), now.Add(48*time.Hour), true, false),
		campaign("default", "", time.Time{}, time.Time{}, true, true),
	}

	got, err := referral.SelectPolicy(campaigns, models.RoleUser, now)
	require.NoError(t, err)
	assert.Equal(t, "default", got.ID, "out-of-window campaigns fall through to the default")
}

func TestSelectPolicyInactiveSkipped(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	campaigns := []models.ReferralCampaign{
		campaign("disabled", "", now.Add(-time.Hour), now.Add(time.Hour), false, false),
	}

	_, err := referral.SelectPolicy(campaigns, models.RoleUser, now)
	assert.ErrorIs(t, err, referral.ErrCampaignInactive)
}

func TestSelectPolicyNoCampaigns(t *testing.T) {
	_, err := referral.SelectPolicy(nil, models.RoleUser, time.Now())
	assert.ErrorIs(t, err, referral.ErrCampaignInactive)
}

func TestSelectPolicyMostRecentStartWins(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	campaigns := []models.ReferralCampaign{
		campaign("older", "seller", now.Add(-72*time.Hour), now.Add(time.Hour), true, false),
		campaign("newer", "seller", now.Add(-time.Hour), now.Add(time.Hour), true, false),
	}

	got, err := referral.SelectPolicy(campaigns, models.RoleSeller, now)
	require.NoError(t, err)
	assert.Equal(t, "newer", got.ID)
}

func TestSelectPolicyBoundaryInstantsIncluded(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	campaigns := []models.ReferralCampaign{
		campaign("window", "", start, end, true, false),
	}

	got, err := referral.SelectPolicy(campaigns, models.RoleUser, start)
	require.NoError(t, err)
	assert.Equal(t, "window", got.ID)

	got, err = referral.SelectPolicy(campaigns, models.RoleUser, end)
	require.NoError(t, err)
	assert.Equal(t, "window", got.ID)
}

func TestValidateSplit(t *testing.T) {
	assert.True(t, referral.ValidateSplit(50, 50, 100))
	assert.True(t, referral.ValidateSplit(0, 100, 100))
	assert.False(t, referral.ValidateSplit(60, 50, 100))
	assert.False(t, referral.ValidateSplit(-10, 110, 100))
}

func TestAudienceRoles(t *testing.T) {
	c := models.ReferralCampaign{TargetAudience: " seller, influencer ,,seller"}
	assert.Equal(t, []string{"seller", "influencer", "seller"}, c.AudienceRoles())

	empty := models.ReferralCampaign{}
	assert.Nil(t, empty.AudienceRoles())
}
