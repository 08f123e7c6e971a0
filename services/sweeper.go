package services

import (
	"context"
	"time"

	"flixbits-rewards-service/logging"
	"flixbits-rewards-service/referral"

	"github.com/go-co-op/gocron/v2"
)

// StartExpirySweep runs the background job that flips stale pending ledger
// records to expired. Redemption completes synchronously, so a pending record
// only survives a crash between the ledger append and completion; after
// pendingTTL it is swept rather than left ambiguous forever.
func StartExpirySweep(store referral.Store, interval, pendingTTL time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-pendingTTL)
			n, err := store.ExpirePending(context.Background(), cutoff)
			if err != nil {
				logging.Error("expiry sweep failed", "error", err)
				return
			}
			if n > 0 {
				logging.Info("expired stale pending referrals", "count", n, "cutoff", cutoff)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
