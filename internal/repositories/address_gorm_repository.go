package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"marketplace/internal/models"
)

// GORMAddressRepository is a GORM implementation of AddressRepository.
type GORMAddressRepository struct {
	db *gorm.DB
}

// NewGORMAddressRepository creates a new instance of GORMAddressRepository.
func NewGORMAddressRepository(db *gorm.DB) *GORMAddressRepository {
	return &GORMAddressRepository{
		db: db,
	}
}

// GetUserAddress returns the address only if it belongs to userID.
func (r *GORMAddressRepository) GetUserAddress(ctx context.Context, userID, addressID string) (*models.UserAddress, error) {
	var address models.UserAddress
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("address %s of user %s: %w", addressID, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get address %s: %w", addressID, err)
	}
	return &address, nil
}

// ListPickupAddresses returns the pickup addresses of the given sellers with the seller loaded.
func (r *GORMAddressRepository) ListPickupAddresses(ctx context.Context, sellerIDs []string) ([]models.SellerAddress, error) {
	if len(sellerIDs) == 0 {
		return []models.SellerAddress{}, nil
	}

	var addresses []models.SellerAddress
	err := r.db.WithContext(ctx).
		Preload("Seller").
		Where("seller_id IN ? AND type = ?", sellerIDs, models.SellerAddressPickup).
		Order("seller_id").
		Find(&addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pickup addresses: %w", err)
	}
	return addresses, nil
}
