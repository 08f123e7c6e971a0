package referral

import "errors"

// Redemption failure kinds. All of them are recoverable and user-facing: the
// redemption fails with a reported reason and no state changes. Repeating the
// same failing call is safe and yields the same error.
var (
	ErrUnknownCode      = errors.New("referral code does not resolve to any account")
	ErrSelfReferral     = errors.New("cannot redeem your own referral code")
	ErrAlreadyReferred  = errors.New("account has already redeemed a referral code")
	ErrCampaignInactive = errors.New("no active referral campaign and no default configured")
	ErrCreditFailure    = errors.New("balance credit failed; redemption rolled back")
)

// Store-level sentinels returned by Store implementations and translated by
// the tracker into the kinds above.
var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate value")
	ErrAlreadySet = errors.New("field already set")
)

// Kind returns the wire name for a redemption error, or "" for unexpected
// internal errors.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCode):
		return "UnknownCode"
	case errors.Is(err, ErrSelfReferral):
		return "SelfReferral"
	case errors.Is(err, ErrAlreadyReferred):
		return "AlreadyReferred"
	case errors.Is(err, ErrCampaignInactive):
		return "CampaignInactive"
	case errors.Is(err, ErrCreditFailure):
		return "CreditFailure"
	}
	return ""
}
