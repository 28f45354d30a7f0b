package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/repositories"
	"marketplace/internal/services"
)

func TestNotificationService_HandleOrderEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := repositories.NewGORMNotificationRepository(f.db)
	service := services.NewNotificationService(repo)

	body, err := json.Marshal(services.OrderEvent{
		EventID:     "e1",
		Type:        services.EventOrderPlaced,
		OrderID:     "o1",
		OrderNumber: "ORD20260101000000ABCDEF12",
		UserID:      "u1",
		OccurredAt:  time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, service.HandleOrderEvent(ctx, body))

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Order Placed", list[0].Title)
	assert.Contains(t, list[0].Message, "ORD20260101000000ABCDEF12")
	assert.Equal(t, "order", list[0].Type)
	assert.Equal(t, "o1", list[0].ReferenceID)
	assert.Equal(t, "order", list[0].ReferenceType)
	assert.Equal(t, "open_order_details", list[0].Action)
	assert.False(t, list[0].IsRead)
}

func TestNotificationService_RejectsMalformedEvents(t *testing.T) {
	f := newFixture(t)
	service := services.NewNotificationService(repositories.NewGORMNotificationRepository(f.db))

	for _, body := range []string{
		`not json`,
		`{"type":"order.placed","order_id":"o1"}`,
		`{"type":"order.shipped","order_id":"o1","user_id":"u1"}`,
	} {
		err := service.HandleOrderEvent(context.Background(), []byte(body))
		assert.ErrorIs(t, err, services.ErrMalformedEvent, body)
	}
}
