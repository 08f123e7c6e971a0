package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"flixbits-rewards-service/models"
	"flixbits-rewards-service/referral"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm is the Postgres-backed referral.Store.
type Gorm struct {
	DB *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{DB: db}
}

func (s *Gorm) AccountByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	var acct models.Account
	err := s.DB.WithContext(ctx).Where("external_user_id = ?", externalID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, referral.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Gorm) AccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	var acct models.Account
	err := s.DB.WithContext(ctx).Where("referral_code = ?", code).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, referral.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Gorm) AssignReferralCode(ctx context.Context, externalID, code string, force bool) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acct models.Account
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_user_id = ?", externalID).
			First(&acct).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return referral.ErrNotFound
			}
			return err
		}
		if !force && acct.ReferralCode != nil && *acct.ReferralCode != "" {
			return referral.ErrAlreadySet
		}
		// Unique-index probe before write keeps the common collision case off
		// the constraint-violation path.
		var count int64
		if err := tx.Model(&models.Account{}).
			Where("referral_code = ? AND external_user_id <> ?", code, externalID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return referral.ErrDuplicate
		}
		if err := tx.Model(&acct).Update("referral_code", code).Error; err != nil {
			if isUniqueViolation(err) {
				return referral.ErrDuplicate
			}
			return err
		}
		return nil
	})
}

func (s *Gorm) SetReferredBy(ctx context.Context, externalID, referrerID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acct models.Account
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_user_id = ?", externalID).
			First(&acct).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return referral.ErrNotFound
			}
			return err
		}
		if acct.ReferredBy != nil && *acct.ReferredBy != "" {
			return referral.ErrAlreadySet
		}
		return tx.Model(&acct).Update("referred_by", referrerID).Error
	})
}

func (s *Gorm) CreateRecord(ctx context.Context, rec *models.ReferralRecord) error {
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return referral.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Gorm) UpdateRecord(ctx context.Context, rec *models.ReferralRecord) error {
	return s.DB.WithContext(ctx).Save(rec).Error
}

func (s *Gorm) DeleteRecord(ctx context.Context, id string) error {
	// Hard delete: a rolled-back tentative append must not linger as a
	// soft-deleted row holding the referred_id unique slot.
	return s.DB.WithContext(ctx).Unscoped().
		Delete(&models.ReferralRecord{}, "id = ?", id).Error
}

func (s *Gorm) RecordsForUser(ctx context.Context, externalID string) ([]models.ReferralRecord, error) {
	var recs []models.ReferralRecord
	err := s.DB.WithContext(ctx).
		Where("referrer_id = ? OR referred_id = ?", externalID, externalID).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}

func (s *Gorm) CompletedRecords(ctx context.Context) ([]models.ReferralRecord, error) {
	var recs []models.ReferralRecord
	err := s.DB.WithContext(ctx).
		Where("status = ?", models.ReferralStatusCompleted).
		Order("created_at ASC").
		Find(&recs).Error
	return recs, err
}

func (s *Gorm) ListRecords(ctx context.Context, status models.ReferralStatus) ([]models.ReferralRecord, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var recs []models.ReferralRecord
	err := q.Find(&recs).Error
	return recs, err
}

func (s *Gorm) ActiveCampaigns(ctx context.Context, now time.Time) ([]models.ReferralCampaign, error) {
	var campaigns []models.ReferralCampaign
	// Default campaigns are window-exempt, so fetch them alongside in-window
	// ones and let policy selection sort out precedence.
	err := s.DB.WithContext(ctx).
		Where("active = ?", true).
		Where("is_default = ? OR (start_date <= ? AND end_date >= ?)", true, now, now).
		Find(&campaigns).Error
	return campaigns, err
}

func (s *Gorm) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.ReferralRecord{}).
		Where("status = ? AND created_at < ?", models.ReferralStatusPending, cutoff).
		Update("status", models.ReferralStatusExpired)
	return res.RowsAffected, res.Error
}

// isUniqueViolation matches Postgres error 23505 surfaced through gorm.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil &&
		(strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key"))
}

var _ referral.Store = (*Gorm)(nil)

// Seed inserts the system-wide default campaign when none exists, so a fresh
// deployment can price redemptions immediately.
func (s *Gorm) Seed(ctx context.Context, referrerBonus, referredBonus int64) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.ReferralCampaign{}).
		Where("is_default = ? AND active = ?", true, true).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	def := models.ReferralCampaign{
		Name:          "Default Referral Bonus",
		Slug:          "default-referral-bonus",
		ReferrerBonus: referrerBonus,
		ReferredBonus: referredBonus,
		BonusAmount:   referrerBonus + referredBonus,
		StartDate:     time.Now(),
		EndDate:       time.Now().AddDate(100, 0, 0),
		Active:        true,
		IsDefault:     true,
	}
	if err := s.DB.WithContext(ctx).Create(&def).Error; err != nil {
		return fmt.Errorf("seeding default campaign: %w", err)
	}
	return nil
}
