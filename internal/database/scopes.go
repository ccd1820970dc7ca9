package database

import (
	"context"

	"go-store-pos/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileEmail returns the email on the user's profile, or "" when there is none.
func ProfileEmail(ctx context.Context, db *gorm.DB, userID uuid.UUID) (string, error) {
	var emails []string
	err := db.WithContext(ctx).Model(&models.UserInfo{}).
		Where("user_id = ?", userID).
		Limit(1).
		Pluck("email", &emails).Error
	if err != nil || len(emails) == 0 {
		return "", err
	}
	return emails[0], nil
}

// StoreSaleIDs selects the ids of sales a user of the store has a movement
// for. Use it as a subquery; it is how a sale is tied to a store.
func StoreSaleIDs(db *gorm.DB, storeID uuid.UUID) *gorm.DB {
	return db.Model(&models.Movement{}).
		Select("DISTINCT movements.sale_id").
		Joins("JOIN users ON users.id = movements.user_id").
		Where("users.store_id = ? AND movements.type = ? AND movements.sale_id IS NOT NULL", storeID, models.MovementSale)
}
