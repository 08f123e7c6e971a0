package referral

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserLockReleasedAfterRedemption(t *testing.T) {
	tr := NewTracker(nil, nil)

	const attempts = 32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "user-a"
			if i%2 == 1 {
				id = "user-b"
			}
			l := tr.lockUser(id)
			tr.unlockUser(id, l)
		}(i)
	}
	wg.Wait()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Empty(t, tr.locks, "lock map must not retain users with no redemption in flight")
}

func TestUserLockSerializesSameUser(t *testing.T) {
	tr := NewTracker(nil, nil)

	// unsynchronized increment; only the user lock serializes it
	var n int
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := tr.lockUser("user-a")
			n++
			tr.unlockUser("user-a", l)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, n)
}
