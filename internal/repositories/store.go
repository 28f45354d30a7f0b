package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that take part in one unit of work.
// Repositories obtained from the Store passed to Transaction's callback run inside
// that transaction.
type Store interface {
	Orders() OrderRepository
	Products() ProductRepository
	Vouchers() VoucherRepository
	Addresses() AddressRepository
	Carts() CartRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GORMStore is a Store backed by a gorm connection or transaction.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a new GORMStore.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

func (s *GORMStore) Orders() OrderRepository { return NewGORMOrderRepository(s.db) }
func (s *GORMStore) Products() ProductRepository { return NewGORMProductRepository(s.db) }
func (s *GORMStore) Vouchers() VoucherRepository { return NewGORMVoucherRepository(s.db) }
func (s *GORMStore) Addresses() AddressRepository { return NewGORMAddressRepository(s.db) }
func (s *GORMStore) Carts() CartRepository { return NewGORMCartRepository(s.db) }

// Transaction runs fn in a database transaction. Returning an error from fn rolls
// everything back.
func (s *GORMStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMStore{db: tx})
	})
}
