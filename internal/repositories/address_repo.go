package repositories

import (
	"context"

	"marketplace/internal/models"
)

// AddressRepository reads buyer delivery addresses and seller pickup addresses.
type AddressRepository interface {
	GetUserAddress(ctx context.Context, userID, addressID string) (*models.UserAddress, error)
	ListPickupAddresses(ctx context.Context, sellerIDs []string) ([]models.SellerAddress, error)
}
