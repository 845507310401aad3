package stockwatch

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/greenmarket/storefront/internal/kafka"
	"github.com/greenmarket/storefront/internal/orders"
)

type fakeStock struct {
	stock   map[int64]int
	err     error
	lookups []int64
}

func (f *fakeStock) ProductStock(_ context.Context, id int64) (string, int, error) {
	f.lookups = append(f.lookups, id)
	if f.err != nil {
		return "", 0, f.err
	}
	n, ok := f.stock[id]
	if !ok {
		return "", 0, ErrUnknownProduct
	}
	return "Organic Apples", n, nil
}

type fakeDedup struct {
	seen   map[string]bool
	marked []string
}

func newFakeDedup() *fakeDedup { return &fakeDedup{seen: map[string]bool{}} }

func (f *fakeDedup) Seen(_ context.Context, key string) (bool, error) { return f.seen[key], nil }

func (f *fakeDedup) Mark(_ context.Context, key string) error {
	f.seen[key] = true
	f.marked = append(f.marked, key)
	return nil
}

func testService(stock *fakeStock, dedup *fakeDedup) *Service {
	return &Service{Stock: stock, Dedup: dedup, Threshold: 5, ServiceName: "test-stockwatch"}
}

func orderCreatedMessage(eventID string, items ...orders.ItemQty) kafkago.Message {
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    orders.EventOrderCreated,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test-api",
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID: 42,
			UserID:  7,
			Items:   items,
			Total:   decimal.RequireFromString("28.08"),
		}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderCreatedMarksAfterSuccess(t *testing.T) {
	stock := &fakeStock{stock: map[int64]int{3: 2}}
	dedup := newFakeDedup()
	svc := testService(stock, dedup)
	msg := orderCreatedMessage("ev-1", orders.ItemQty{ProductID: 3, Qty: 2})

	require.NoError(t, svc.HandleOrderCreated(context.Background(), msg))
	assert.Equal(t, []string{"dedup:test-stockwatch:ev-1"}, dedup.marked)

	// redelivery of a handled event short-circuits on dedup
	require.NoError(t, svc.HandleOrderCreated(context.Background(), msg))
	assert.Equal(t, []int64{3}, stock.lookups, "no second lookup for a seen event")
	assert.Len(t, dedup.marked, 1)
}

func TestHandleOrderCreatedRetriesAfterFailure(t *testing.T) {
	stock := &fakeStock{err: errors.New("connection refused")}
	dedup := newFakeDedup()
	svc := testService(stock, dedup)
	msg := orderCreatedMessage("ev-2", orders.ItemQty{ProductID: 3, Qty: 1})

	// a transient failure must not mark the event as seen
	require.Error(t, svc.HandleOrderCreated(context.Background(), msg))
	assert.Empty(t, dedup.marked)

	// the redelivered message is processed, not skipped
	stock.err = nil
	stock.stock = map[int64]int{3: 1}
	require.NoError(t, svc.HandleOrderCreated(context.Background(), msg))
	assert.Len(t, dedup.marked, 1)
}

func TestHandleOrderCreatedSkipsVanishedProduct(t *testing.T) {
	stock := &fakeStock{stock: map[int64]int{9: 1}}
	dedup := newFakeDedup()
	svc := testService(stock, dedup)

	msg := orderCreatedMessage("ev-3",
		orders.ItemQty{ProductID: 3, Qty: 1}, // deleted since the order
		orders.ItemQty{ProductID: 9, Qty: 1},
	)
	require.NoError(t, svc.HandleOrderCreated(context.Background(), msg))
	assert.Equal(t, []int64{3, 9}, stock.lookups)
	assert.Len(t, dedup.marked, 1)
}

func TestHandleOrderCreatedIgnoresOtherEventTypes(t *testing.T) {
	stock := &fakeStock{}
	dedup := newFakeDedup()
	svc := testService(stock, dedup)

	env := orders.Envelope{EventID: "ev-4", EventType: "ProductUpdated", EventVersion: 1}
	msg := kafkago.Message{Value: kafkax.MustMarshal(env)}

	require.NoError(t, svc.HandleOrderCreated(context.Background(), msg))
	assert.Empty(t, stock.lookups)
	assert.Empty(t, dedup.marked)
}

func TestHandleOrderCreatedBadPayload(t *testing.T) {
	stock := &fakeStock{}
	dedup := newFakeDedup()
	svc := testService(stock, dedup)

	env := orders.Envelope{
		EventID:   "ev-5",
		EventType: orders.EventOrderCreated,
		Payload:   []byte(`"not an object"`),
	}
	msg := kafkago.Message{Value: kafkax.MustMarshal(env)}

	require.Error(t, svc.HandleOrderCreated(context.Background(), msg))
	assert.Empty(t, dedup.marked, "undecodable event must stay eligible for retry")
}
