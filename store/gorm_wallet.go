package store

import (
	"context"
	"errors"
	"fmt"

	"flixbits-rewards-service/models"
	"flixbits-rewards-service/referral"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWallet realizes referral.Wallet on the local balance mirror: the
// account's Flixbits column and an audit row move together in one
// transaction.
type GormWallet struct {
	DB *gorm.DB
}

func NewGormWallet(db *gorm.DB) *GormWallet {
	return &GormWallet{DB: db}
}

func (w *GormWallet) Credit(ctx context.Context, externalID string, amount int64, reason, recordID string) error {
	return w.apply(ctx, externalID, amount, reason, recordID)
}

func (w *GormWallet) Debit(ctx context.Context, externalID string, amount int64, reason, recordID string) error {
	return w.apply(ctx, externalID, -amount, reason, recordID)
}

func (w *GormWallet) apply(ctx context.Context, externalID string, amount int64, reason, recordID string) error {
	if amount == 0 {
		return nil
	}
	return w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acct models.Account
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_user_id = ?", externalID).
			First(&acct).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return referral.ErrNotFound
			}
			return err
		}
		if err := tx.Model(&acct).Update("flixbits", gorm.Expr("flixbits + ?", amount)).Error; err != nil {
			return fmt.Errorf("updating balance for %s: %w", externalID, err)
		}
		txn := models.FlixbitsTransaction{
			ID:     uuid.NewString(),
			UserID: externalID,
			Amount: amount,
			Reason: reason,
		}
		if recordID != "" {
			txn.ReferralRecordID = &recordID
		}
		return tx.Create(&txn).Error
	})
}

var _ referral.Wallet = (*GormWallet)(nil)
