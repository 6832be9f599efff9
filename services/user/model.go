package user

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID              string    `gorm:"column:id;primaryKey"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
	Name            string    `gorm:"column:name"`
	Email           string    `gorm:"column:email;uniqueIndex;not null"`
	KajabiContactID *string   `gorm:"column:kajabi_contact_id;uniqueIndex"`
}

func (User) TableName() string { return "users" }

// FindByKajabiContact returns the user currently linked to the external
// contact ID, or nil when no linkage exists.
func FindByKajabiContact(ctx context.Context, tx *gorm.DB, contactID string) (*User, error) {
	var u User
	err := tx.WithContext(ctx).Where("kajabi_contact_id = ?", contactID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func FindByEmail(ctx context.Context, tx *gorm.DB, email string) (*User, error) {
	var u User
	err := tx.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// LinkKajabiContact stamps the contact linkage onto a user. The column is
// unique, so a concurrent linker makes this fail; callers resolve the race by
// re-reading the winning row.
func LinkKajabiContact(ctx context.Context, tx *gorm.DB, userID, contactID string) error {
	return tx.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"kajabi_contact_id": contactID,
			"updated_at":        time.Now(),
		}).Error
}
