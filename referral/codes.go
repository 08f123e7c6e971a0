package referral

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"flixbits-rewards-service/models"
)

// codeCharset drops 0/O/1/I to keep hand-typed codes unambiguous. 32^6 codes
// keeps collision probability negligible at expected user-base scale; the
// store's unique index is the actual guarantee.
const (
	codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength  = 6
)

// rolePrefix maps an account role to the shareable code prefix.
func rolePrefix(role string) string {
	switch role {
	case models.RoleInfluencer:
		return "INFL"
	case models.RoleSeller:
		return "SELL"
	default:
		return "USER"
	}
}

// GenerateCode produces a candidate code of the form {prefix}-{random6}.
// Generation itself cannot fail or collide-check; uniqueness is enforced at
// assignment time by the store.
func GenerateCode(role string) string {
	b := make([]byte, codeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(fmt.Sprintf("referral: crypto/rand: %v", err))
		}
		b[i] = codeCharset[n.Int64()]
	}
	return rolePrefix(role) + "-" + string(b)
}

// NormalizeCode canonicalizes user input before lookup: codes are
// case-insensitive on the wire but stored upper-case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CodeIssuer hands out referral codes, at most one per account.
type CodeIssuer struct {
	Store Store
}

func NewCodeIssuer(store Store) *CodeIssuer {
	return &CodeIssuer{Store: store}
}

// Ensure returns the account's referral code, generating and persisting one
// the first time it is asked for. Idempotent: once assigned, the same code is
// returned forever unless an administrator resets it.
func (ci *CodeIssuer) Ensure(ctx context.Context, externalID string) (string, error) {
	acct, err := ci.Store.AccountByExternalID(ctx, externalID)
	if err != nil {
		return "", err
	}
	if acct.ReferralCode != nil && *acct.ReferralCode != "" {
		return *acct.ReferralCode, nil
	}

	for attempt := 0; attempt < 5; attempt++ {
		code := GenerateCode(acct.Role)
		err := ci.Store.AssignReferralCode(ctx, externalID, code, false)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, ErrAlreadySet) {
			// lost a race with a concurrent Ensure; reread the winner
			acct, err = ci.Store.AccountByExternalID(ctx, externalID)
			if err != nil {
				return "", err
			}
			if acct.ReferralCode != nil {
				return *acct.ReferralCode, nil
			}
			continue
		}
		if errors.Is(err, ErrDuplicate) {
			continue // collision with another account's code, draw again
		}
		return "", err
	}
	return "", fmt.Errorf("could not assign a unique referral code for %s", externalID)
}

// Reset discards the account's current code and assigns a fresh one.
// Admin-only; normal flows never regenerate.
func (ci *CodeIssuer) Reset(ctx context.Context, externalID string) (string, error) {
	acct, err := ci.Store.AccountByExternalID(ctx, externalID)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < 5; attempt++ {
		code := GenerateCode(acct.Role)
		err := ci.Store.AssignReferralCode(ctx, externalID, code, true)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("could not assign a unique referral code for %s", externalID)
}
