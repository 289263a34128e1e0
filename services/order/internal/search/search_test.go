package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Skotchmaster/marketplace/services/order/internal/events"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeES struct {
	mu   sync.Mutex
	docs map[string]OrderDoc
	seen []string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, r.Method+" "+r.URL.Path)

	switch {
	case r.URL.Path == "/orders/_search":
		hits := make([]map[string]any, 0, len(f.docs))
		for _, d := range f.docs {
			hits = append(hits, map[string]any{"_source": d})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{"total": map[string]any{"value": len(hits)}, "hits": hits},
		})
	case r.Method == http.MethodPut || r.Method == http.MethodPost:
		var d OrderDoc
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &d); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.docs[d.ID] = d
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{}`))
	}
}

func newIndex(t *testing.T) (*Index, *fakeES) {
	t.Helper()
	fake := &fakeES{docs: map[string]OrderDoc{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := NewClient(srv.URL, "", "")
	require.NoError(t, err)
	return &Index{ES: es, Name: "orders"}, fake
}

func TestIndexer_PutsOrderAndSearchFindsIt(t *testing.T) {
	ix, fake := newIndex(t)
	ctx := context.Background()
	pid := "pi_123"
	order := &models.Order{
		ID:              uuid.New(),
		Items:           []models.OrderItem{{Name: "iPhone13"}},
		TotalAmount:     decimal.NewFromInt(500),
		ShippingAddress: models.ShippingAddress{FullName: "Ann Lee", Email: "ann@shop.test", City: "Berlin"},
		PaymentID:       &pid,
		Status:          models.OrderStatusProcessing,
		PaymentStatus:   models.PaymentStatusPaid,
	}

	require.NoError(t, NewIndexer(ix, nil).Handle(ctx, events.Event{Type: events.OrderConfirmed, Order: order}))
	require.Contains(t, fake.docs, order.ID.String())
	assert.Equal(t, "500.00", fake.docs[order.ID.String()].TotalAmount)
	assert.Equal(t, []string{"iPhone13"}, fake.docs[order.ID.String()].Items)

	total, docs, err := ix.Search(ctx, "ann", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, docs, 1)
	assert.Equal(t, "pi_123", docs[0].PaymentID)
}

func TestIndexer_IgnoresEventsWithoutOrder(t *testing.T) {
	ix, fake := newIndex(t)
	require.NoError(t, NewIndexer(ix, nil).Handle(context.Background(), events.Event{Type: events.RefundProcessed}))
	assert.Empty(t, fake.seen)
}

type orderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
}

func (s *orderStore) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, errors.New("order not found")
	}
	cp := *o
	return &cp, nil
}

func TestIndexer_StaleSnapshotDoesNotOverwriteNewerState(t *testing.T) {
	ix, fake := newIndex(t)
	ctx := context.Background()
	id := uuid.New()
	store := &orderStore{orders: map[uuid.UUID]*models.Order{
		id: {ID: id, Status: models.OrderStatusShipped, PaymentStatus: models.PaymentStatusPaid, TrackingNumber: "TRK1"},
	}}
	indexer := NewIndexer(ix, store)

	stale := &models.Order{ID: id, Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusUnpaid}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, indexer.Handle(ctx, events.Event{Type: events.OrderCreated, Order: stale}))
		}()
	}
	wg.Wait()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Contains(t, fake.docs, id.String())
	assert.Equal(t, string(models.OrderStatusShipped), fake.docs[id.String()].Status)
	assert.Equal(t, "TRK1", fake.docs[id.String()].TrackingNumber)
}

func TestIndexer_LoadErrorSkipsWrite(t *testing.T) {
	ix, fake := newIndex(t)
	indexer := NewIndexer(ix, &orderStore{orders: map[uuid.UUID]*models.Order{}})

	err := indexer.Handle(context.Background(), events.Event{Type: events.OrderCreated, Order: &models.Order{ID: uuid.New()}})
	require.Error(t, err)
	assert.Empty(t, fake.seen)
}
