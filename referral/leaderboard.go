package referral

import (
	"sort"
	"time"

	"flixbits-rewards-service/models"
)

// LeaderboardEntry is one row of the referral leaderboard projection.
type LeaderboardEntry struct {
	UserID           string `json:"user_id"`
	Username         string `json:"username"`
	ReferralCount    int    `json:"referral_count"`
	TotalBonusEarned int64  `json:"total_bonus_earned"`

	firstReferralAt time.Time
}

// Leaderboard derives the ordered standings from a ledger snapshot: one entry
// per user who appears as referrer in at least one completed record, counting
// completed records and summing the referrer-side bonus where it was paid.
//
// Ordering is descending referral count, then descending total bonus, then
// earliest first referral. Recomputed from the ledger on every read; no
// running aggregate is kept. limit <= 0 means no truncation.
func Leaderboard(records []models.ReferralRecord, limit int) []LeaderboardEntry {
	byUser := make(map[string]*LeaderboardEntry)

	for i := range records {
		rec := &records[i]
		if rec.Status != models.ReferralStatusCompleted {
			continue
		}
		e, ok := byUser[rec.ReferrerID]
		if !ok {
			e = &LeaderboardEntry{
				UserID:          rec.ReferrerID,
				Username:        rec.ReferrerName,
				firstReferralAt: rec.CreatedAt,
			}
			byUser[rec.ReferrerID] = e
		}
		e.ReferralCount++
		if rec.BonusPaid {
			e.TotalBonusEarned += rec.ReferrerBonus
		}
		if rec.CreatedAt.Before(e.firstReferralAt) {
			e.firstReferralAt = rec.CreatedAt
		}
	}

	entries := make([]LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ReferralCount != b.ReferralCount {
			return a.ReferralCount > b.ReferralCount
		}
		if a.TotalBonusEarned != b.TotalBonusEarned {
			return a.TotalBonusEarned > b.TotalBonusEarned
		}
		if !a.firstReferralAt.Equal(b.firstReferralAt) {
			return a.firstReferralAt.Before(b.firstReferralAt)
		}
		return a.UserID < b.UserID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// UserStats is the per-user referral summary shown on the dashboard.
type UserStats struct {
	UserID           string `json:"user_id"`
	ReferralCount    int    `json:"referral_count"`
	TotalBonusEarned int64  `json:"total_bonus_earned"`
	WasReferred      bool   `json:"was_referred"`
}

// Stats aggregates one user's side of the ledger.
func Stats(records []models.ReferralRecord, externalID string) UserStats {
	s := UserStats{UserID: externalID}
	for i := range records {
		rec := &records[i]
		if rec.ReferredID == externalID && rec.Status == models.ReferralStatusCompleted {
			s.WasReferred = true
		}
		if rec.ReferrerID != externalID || rec.Status != models.ReferralStatusCompleted {
			continue
		}
		s.ReferralCount++
		if rec.BonusPaid {
			s.TotalBonusEarned += rec.ReferrerBonus
		}
	}
	return s
}
