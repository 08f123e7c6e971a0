package referral_test

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"flixbits-rewards-service/models"
	"flixbits-rewards-service/referral"
	"flixbits-rewards-service/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^(USER|INFL|SELL)-[A-HJ-NP-Z2-9]{6}$`)

func TestGenerateCodeFormat(t *testing.T) {
	for i := 0; i < 200; i++ {
		assert.Regexp(t, codePattern, referral.GenerateCode(models.RoleUser))
	}
	assert.Regexp(t, `^INFL-`, referral.GenerateCode(models.RoleInfluencer))
	assert.Regexp(t, `^SELL-`, referral.GenerateCode(models.RoleSeller))
	assert.Regexp(t, `^USER-`, referral.GenerateCode("something-else"))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "USER-ABC123", referral.NormalizeCode("  user-abc123\t"))
}

func TestEnsureIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	mem.PutAccount(&models.Account{ID: "a-id", ExternalUserID: "user-a", Username: "alice", Role: models.RoleUser})
	issuer := referral.NewCodeIssuer(mem)
	ctx := context.Background()

	first, err := issuer.Ensure(ctx, "user-a")
	require.NoError(t, err)
	assert.Regexp(t, codePattern, first)

	for i := 0; i < 5; i++ {
		again, err := issuer.Ensure(ctx, "user-a")
		require.NoError(t, err)
		assert.Equal(t, first, again, "a code is generated once and reused forever")
	}
}

func TestEnsureConcurrentSingleCode(t *testing.T) {
	mem := store.NewMemory()
	mem.PutAccount(&models.Account{ID: "a-id", ExternalUserID: "user-a", Username: "alice", Role: models.RoleUser})
	issuer := referral.NewCodeIssuer(mem)

	const n = 8
	codes := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i], errs[i] = issuer.Ensure(context.Background(), "user-a")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, codes[0], codes[i])
	}
}

func TestEnsureUnknownAccount(t *testing.T) {
	issuer := referral.NewCodeIssuer(store.NewMemory())
	_, err := issuer.Ensure(context.Background(), "ghost")
	assert.ErrorIs(t, err, referral.ErrNotFound)
}

func TestResetReplacesCode(t *testing.T) {
	mem := store.NewMemory()
	mem.PutAccount(&models.Account{ID: "a-id", ExternalUserID: "user-a", Username: "alice", Role: models.RoleUser})
	issuer := referral.NewCodeIssuer(mem)
	ctx := context.Background()

	first, err := issuer.Ensure(ctx, "user-a")
	require.NoError(t, err)

	reset, err := issuer.Reset(ctx, "user-a")
	require.NoError(t, err)
	assert.NotEqual(t, first, reset)
	assert.Regexp(t, codePattern, reset)

	// the new code sticks
	again, err := issuer.Ensure(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, reset, again)

	// the old code no longer resolves
	_, err = mem.AccountByReferralCode(ctx, first)
	assert.ErrorIs(t, err, referral.ErrNotFound)
}
