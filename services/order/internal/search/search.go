// Package search keeps an elasticsearch index of orders for the admin
// order search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/marketplace/services/order/internal/events"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
)

type OrderDoc struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	Email          string    `json:"email,omitempty"`
	FullName       string    `json:"full_name,omitempty"`
	City           string    `json:"city,omitempty"`
	Country        string    `json:"country,omitempty"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	PaymentID      string    `json:"payment_id,omitempty"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	CouponCode     string    `json:"coupon_code,omitempty"`
	Items          []string  `json:"items"`
	TotalAmount    string    `json:"total_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewOrderDoc(o *models.Order) OrderDoc {
	doc := OrderDoc{
		ID:             o.ID.String(),
		Email:          o.ShippingAddress.Email,
		FullName:       o.ShippingAddress.FullName,
		City:           o.ShippingAddress.City,
		Country:        o.ShippingAddress.Country,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		TrackingNumber: o.TrackingNumber,
		CouponCode:     o.CouponCode,
		Items:          make([]string, 0, len(o.Items)),
		TotalAmount:    o.TotalAmount.StringFixed(2),
		CreatedAt:      o.CreatedAt,
	}
	if o.UserID != nil {
		doc.UserID = o.UserID.String()
	}
	if o.PaymentID != nil {
		doc.PaymentID = *o.PaymentID
	}
	for _, it := range o.Items {
		doc.Items = append(doc.Items, it.Name)
	}
	return doc
}

type Index struct {
	ES   *elasticsearch.Client
	Name string
}

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
}

func (ix *Index) Put(ctx context.Context, doc OrderDoc) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := ix.ES.Index(ix.Name, bytes.NewReader(body),
		ix.ES.Index.WithContext(ctx),
		ix.ES.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es index: %s: %s", res.Status(), strings.TrimSpace(string(msg)))
	}
	return nil
}

// Search runs a fuzzy match over customer, item and tracking fields.
func (ix *Index) Search(ctx context.Context, query string, from, size int) (int64, []OrderDoc, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"email^2", "full_name^2", "items", "tracking_number^3", "payment_id^3", "city", "coupon_code"},
				"fuzziness": "AUTO",
			},
		},
		"sort": []any{map[string]any{"created_at": map[string]any{"order": "desc"}}},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(ctx),
		ix.ES.Search.WithIndex(ix.Name),
		ix.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("es search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 }                        `json:"total"`
			Hits  []struct{ Source OrderDoc `json:"_source"` } `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	docs := make([]OrderDoc, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}

// Orders loads the current state of an order.
type Orders interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Indexer is the notification subscriber that mirrors orders into the index.
// Writes are serialized and each one re-reads the order, so a handler that
// runs late cannot overwrite a newer document with its event snapshot.
type Indexer struct {
	index  *Index
	orders Orders
	mu     sync.Mutex
}

// NewIndexer indexes event snapshots as-is when orders is nil.
func NewIndexer(index *Index, orders Orders) *Indexer {
	return &Indexer{index: index, orders: orders}
}

func (*Indexer) Name() string { return "search" }

func (i *Indexer) Handle(ctx context.Context, e events.Event) error {
	if e.Order == nil {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	order := e.Order
	if i.orders != nil {
		latest, err := i.orders.GetOrder(ctx, e.Order.ID)
		if err != nil {
			return fmt.Errorf("load order %s: %w", e.Order.ID, err)
		}
		order = latest
	}
	return i.index.Put(ctx, NewOrderDoc(order))
}
