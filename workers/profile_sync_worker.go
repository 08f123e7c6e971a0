// workers/profile_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"flixbits-rewards-service/logging"
	"flixbits-rewards-service/models"
	"flixbits-rewards-service/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileSnapshot matches the JSON the profile sync service returns per user.
type ProfileSnapshot struct {
	ID            string    `json:"id"`
	ExternalID    string    `json:"external_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	AccountStatus string    `json:"account_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type profileChangesResponse struct {
	Users []ProfileSnapshot `json:"users"`
}

// ProfileSyncWorker keeps the local Account table in step with the profile
// service, so redemption and the leaderboard see current usernames and roles.
// Referral fields and the balance mirror are owned locally and never
// overwritten by a sync.
type ProfileSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewProfileSyncWorker(db *gorm.DB, baseURL, endpointPath, serviceToken string, interval time.Duration) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		db:           db,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	logging.Info("starting profile sync worker", "base_url", w.baseURL, "interval", w.interval)

	// initial backfill from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		logging.Warn("initial profile sync failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.lastSyncTime()); err != nil {
				logging.Error("profile sync batch failed", "error", err)
			}
		case <-ctx.Done():
			logging.Info("profile sync worker stopped")
			return
		}
	}
}

// lastSyncTime is the most recent UpdatedAt in the local Account table.
func (w *ProfileSyncWorker) lastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM accounts WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

func (w *ProfileSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid profile sync URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("creating sync request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling profile sync service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("profile sync service returned %d: %s", resp.StatusCode, string(body))
	}

	var response profileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("decoding profile sync response: %w", err)
	}

	if len(response.Users) == 0 {
		return nil
	}

	var upserted, failed int
	for _, snap := range response.Users {
		role := snap.Role
		if role == "" {
			role = models.RoleUser
		}
		acct := models.Account{
			ExternalUserID: snap.ExternalID,
			Username:       snap.Username,
			Email:          snap.Email,
			Role:           role,
			IsBanned:       snap.AccountStatus == "suspended" || snap.AccountStatus == "deactivated",
		}

		// Upsert on external id; only profile-owned columns are assigned so
		// referral_code, referred_by and flixbits survive every sync.
		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "email", "role", "is_banned", "updated_at",
			}),
		}).Create(&acct).Error; err != nil {
			failed++
			logging.Warn("account upsert failed",
				"external_id", snap.ExternalID, "username", snap.Username, "error", err)
		} else {
			upserted++
		}
	}

	logging.Info("profile sync batch done", "received", len(response.Users), "upserted", upserted, "failed", failed)
	return nil
}
