package models

import "time"

// UserAddress is a buyer's saved delivery address.
type UserAddress struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID        string    `json:"user_id" gorm:"index;type:varchar(36);not null"`
	RecipientName string    `json:"recipient_name" gorm:"type:varchar(255)"`
	PhoneNumber   string    `json:"phone_number" gorm:"type:varchar(32)"`
	StreetAddress string    `json:"street_address" gorm:"type:varchar(255)"`
	Barangay      string    `json:"barangay" gorm:"type:varchar(255)"`
	City          string    `json:"city" gorm:"type:varchar(255)"`
	Province      string    `json:"province" gorm:"type:varchar(255)"`
	PostalCode    string    `json:"postal_code" gorm:"type:varchar(16)"`
	Landmark      string    `json:"landmark" gorm:"type:varchar(255)"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Snapshot copies the address fields an order keeps.
func (a *UserAddress) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		RecipientName: a.RecipientName,
		PhoneNumber:   a.PhoneNumber,
		StreetAddress: a.StreetAddress,
		Barangay:      a.Barangay,
		City:          a.City,
		Province:      a.Province,
		PostalCode:    a.PostalCode,
		Landmark:      a.Landmark,
	}
}

const SellerAddressPickup = "pickup"

// SellerAddress is a seller's pickup (or business) address.
type SellerAddress struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SellerID  string    `json:"seller_id" gorm:"index;type:varchar(36);not null"`
	Type      string    `json:"type" gorm:"type:varchar(16);not null"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`

	Seller Seller `json:"-" gorm:"foreignKey:SellerID"`
}
