package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"marketplace/internal/delivery"
	"marketplace/internal/models"
	"marketplace/internal/repositories"
)

// QuoteCache stores computed fee quotes. Implementations return found=false on a miss.
type QuoteCache interface {
	GetJSON(ctx context.Context, key string, dst any) (found bool, err error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// FeeQuote is the delivery estimate for one seller. Degraded quotes carry the default
// fee because the seller's pickup address has no usable coordinates.
type FeeQuote struct {
	SellerID    string          `json:"sellerId"`
	StoreName   string          `json:"storeName"`
	Distance    *float64        `json:"distance"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Degraded    bool            `json:"degraded"`
	Error       string          `json:"error,omitempty"`
}

// DeliveryService produces the pre-checkout per-seller delivery fee estimate.
type DeliveryService struct {
	store      repositories.Store
	schedule   delivery.FeeSchedule
	defaultFee decimal.Decimal
	cache      QuoteCache
	cacheTTL   time.Duration
}

// NewDeliveryService creates a new DeliveryService. cache may be nil.
func NewDeliveryService(store repositories.Store, schedule delivery.FeeSchedule, defaultFee decimal.Decimal, cache QuoteCache, cacheTTL time.Duration) *DeliveryService {
	return &DeliveryService{
		store:      store,
		schedule:   schedule,
		defaultFee: defaultFee,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// QuoteFees prices delivery from every requested seller's pickup address to the buyer's
// address. Sellers without a pickup address are left out of the result.
func (s *DeliveryService) QuoteFees(ctx context.Context, userID, addressID string, sellerIDs []string) (map[string]FeeQuote, error) {
	if strings.TrimSpace(addressID) == "" || len(sellerIDs) == 0 {
		return nil, newError(CodeInvalidInput, "Delivery address ID and seller IDs are required")
	}

	address, err := s.store.Addresses().GetUserAddress(ctx, userID, addressID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(CodeInvalidAddress, "Delivery address not found")
		}
		return nil, internalError("Failed to calculate delivery fees", err)
	}
	if address.Latitude == nil || address.Longitude == nil {
		return nil, newError(CodeInvalidCoordinates, "Delivery address does not have valid coordinates")
	}
	dropoff := delivery.Coordinates{Latitude: *address.Latitude, Longitude: *address.Longitude}
	if err := dropoff.Validate(); err != nil {
		return nil, &DomainError{Code: CodeInvalidCoordinates, Message: "Delivery address does not have valid coordinates", Err: err}
	}

	ids := make([]string, 0, len(sellerIDs))
	seen := make(map[string]bool, len(sellerIDs))
	for _, sellerID := range sellerIDs {
		if sellerID == "" || seen[sellerID] {
			continue
		}
		seen[sellerID] = true
		ids = append(ids, sellerID)
	}

	pickups, err := s.store.Addresses().ListPickupAddresses(ctx, ids)
	if err != nil {
		return nil, internalError("Failed to calculate delivery fees", err)
	}

	quotes := make(map[string]FeeQuote, len(ids))
	for _, pickup := range pickups {
		if _, done := quotes[pickup.SellerID]; done {
			continue
		}
		key, cacheable := quoteKey(pickup, dropoff)
		var cached FeeQuote
		if cacheable && s.lookup(ctx, key, &cached) {
			quotes[pickup.SellerID] = cached
			continue
		}
		quote := s.quote(pickup, dropoff)
		quotes[pickup.SellerID] = quote
		if cacheable && !quote.Degraded {
			s.remember(ctx, key, quote)
		}
	}

	if len(quotes) == 0 {
		return nil, newError(CodePickupAddressNotFound, "No seller pickup addresses found")
	}
	return quotes, nil
}

func (s *DeliveryService) quote(pickup models.SellerAddress, dropoff delivery.Coordinates) FeeQuote {
	q := FeeQuote{
		SellerID:  pickup.SellerID,
		StoreName: pickup.Seller.StoreName,
	}
	degrade := func() FeeQuote {
		q.DeliveryFee = s.defaultFee.Round(2)
		q.Degraded = true
		q.Error = "Seller pickup address does not have valid coordinates"
		return q
	}

	if pickup.Latitude == nil || pickup.Longitude == nil {
		return degrade()
	}
	route, err := s.schedule.QuoteRoute(delivery.Coordinates{Latitude: *pickup.Latitude, Longitude: *pickup.Longitude}, dropoff)
	if err != nil {
		return degrade()
	}

	distance := math.Round(route.DistanceKm*100) / 100
	q.Distance = &distance
	q.DeliveryFee = route.Fee
	return q
}

func (s *DeliveryService) lookup(ctx context.Context, key string, dst *FeeQuote) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		slog.WarnContext(ctx, "delivery quote cache read failed", "key", key, "error", err)
		return false
	}
	return found
}

func (s *DeliveryService) remember(ctx context.Context, key string, quote FeeQuote) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, quote, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "delivery quote cache write failed", "key", key, "error", err)
	}
}

// quoteKey identifies a quote by the pickup address and both endpoints, so edits
// to a seller's pickup coordinates never hit an old entry.
func quoteKey(pickup models.SellerAddress, dropoff delivery.Coordinates) (string, bool) {
	if pickup.Latitude == nil || pickup.Longitude == nil {
		return "", false
	}
	return fmt.Sprintf("delivery:quote:%s:%s:%.6f,%.6f:%.6f,%.6f", pickup.SellerID, pickup.ID,
		*pickup.Latitude, *pickup.Longitude, dropoff.Latitude, dropoff.Longitude), true
}
