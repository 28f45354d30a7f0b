package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle stage of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:        {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed:      {OrderStatusPreparing: true, OrderStatusCancelled: true},
	OrderStatusPreparing:      {OrderStatusOutForDelivery: true},
	OrderStatusOutForDelivery: {OrderStatusDelivered: true},
	OrderStatusDelivered:      {OrderStatusRefunded: true},
	OrderStatusCancelled:      {},
	OrderStatusRefunded:       {},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

const (
	PaymentMethodCashOnDelivery = "cash_on_delivery"
	PaymentStatusPending        = "pending"

	ItemStatusPending   = "pending"
	ItemStatusCancelled = "cancelled"
)

// AddressSnapshot is the delivery address copied onto the order at creation time.
type AddressSnapshot struct {
	RecipientName string `json:"recipient_name" gorm:"type:varchar(255)"`
	PhoneNumber   string `json:"phone_number" gorm:"type:varchar(32)"`
	StreetAddress string `json:"street_address" gorm:"type:varchar(255)"`
	Barangay      string `json:"barangay" gorm:"type:varchar(255)"`
	City          string `json:"city" gorm:"type:varchar(255)"`
	Province      string `json:"province" gorm:"type:varchar(255)"`
	PostalCode    string `json:"postal_code" gorm:"type:varchar(16)"`
	Landmark      string `json:"landmark" gorm:"type:varchar(255)"`
}

// Order is a buyer's purchase. Money columns are fixed at placement time.
type Order struct {
	ID                 string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber        string          `json:"order_number" gorm:"uniqueIndex;type:varchar(32);not null"`
	UserID             string          `json:"user_id" gorm:"index;type:varchar(36);not null"`
	Status             OrderStatus     `json:"status" gorm:"index;type:varchar(32);not null"`
	PaymentMethod      string          `json:"payment_method" gorm:"type:varchar(32);not null"`
	PaymentStatus      string          `json:"payment_status" gorm:"type:varchar(32);not null"`
	Subtotal           decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	DeliveryFee        decimal.Decimal `json:"delivery_fee" gorm:"type:decimal(12,2);not null"`
	VoucherDiscount    decimal.Decimal `json:"voucher_discount" gorm:"type:decimal(12,2);not null"`
	TotalAmount        decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	VoucherID          *string         `json:"voucher_id" gorm:"index;type:varchar(36)"`
	DeliveryAddressID  string          `json:"delivery_address_id" gorm:"type:varchar(36);not null"`
	DeliveryAddress    AddressSnapshot `json:"delivery_address" gorm:"embedded;embeddedPrefix:delivery_"`
	DeliveryNotes      string          `json:"delivery_notes" gorm:"type:text"`
	CancellationReason string          `json:"cancellation_reason,omitempty" gorm:"type:varchar(255)"`
	CreatedAt          time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt          time.Time       `json:"updated_at"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	DeliveredAt        *time.Time      `json:"delivered_at"`

	Items         []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	Voucher       *Voucher             `json:"voucher,omitempty" gorm:"foreignKey:VoucherID"`
}

// OrderItem is one product line of an order. UnitPrice is the price captured at placement.
type OrderItem struct {
	ID                 string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID            string          `json:"order_id" gorm:"index;type:varchar(36);not null"`
	ProductID          string          `json:"product_id" gorm:"index;type:varchar(36);not null"`
	SellerID           string          `json:"seller_id" gorm:"index;type:varchar(36);not null"`
	Quantity           int             `json:"quantity" gorm:"not null"`
	UnitPrice          decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	TotalPrice         decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null"`
	PreparationOptions string          `json:"preparation_options" gorm:"type:text"`
	ItemStatus         string          `json:"item_status" gorm:"type:varchar(32);not null"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// OrderStatusHistory is an append-only audit row per status change.
type OrderStatusHistory struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	OrderID   string      `json:"order_id" gorm:"index;type:varchar(36);not null"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(32);not null"`
	Notes     string      `json:"notes" gorm:"type:varchar(255)"`
	UpdatedBy *string     `json:"updated_by" gorm:"type:varchar(36)"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName keeps the singular table name used by the existing schema.
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// PreorderItem links an order item to a future-dated reservation. Stock for these
// items is not restored on cancellation.
type PreorderItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderItemID string    `json:"order_item_id" gorm:"index;type:varchar(36);not null"`
	ReleaseDate time.Time `json:"release_date"`
	CreatedAt   time.Time `json:"created_at"`
}
