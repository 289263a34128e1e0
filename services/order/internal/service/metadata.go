package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway metadata limits: 50 keys, 500 characters per value.
const (
	metadataValueLimit = 500
	metadataMaxKeys    = 50
	guestUser          = "guest"
)

const (
	mdUserID      = "user_id"
	mdEmail       = "email"
	mdSubtotal    = "subtotal"
	mdShippingFee = "shipping_fee"
	mdTax         = "tax"
	mdDiscount    = "discount"
	mdTotal       = "total"
	mdCouponCode  = "coupon_code"
	mdAddress     = "address"
	mdItemsChunks = "items_chunks"
	mdItemsPrefix = "items_"
)

// metaItem is the compact line encoding; images are left out to save space.
type metaItem struct {
	ID    uuid.UUID          `json:"i"`
	Type  models.ProductType `json:"t"`
	Name  string             `json:"n"`
	Price decimal.Decimal    `json:"p"`
	Qty   int                `json:"q"`
}

// EncodeMetadata writes the checkout snapshot as gateway metadata. The item
// list is split into chunks instead of being truncated.
func EncodeMetadata(userID *uuid.UUID, email string, snap models.CheckoutSnapshot) (map[string]string, error) {
	md := map[string]string{
		mdUserID:      guestUser,
		mdEmail:       email,
		mdSubtotal:    snap.Subtotal.StringFixed(2),
		mdShippingFee: snap.ShippingFee.StringFixed(2),
		mdTax:         snap.Tax.StringFixed(2),
		mdDiscount:    snap.Discount.StringFixed(2),
		mdTotal:       snap.Total.StringFixed(2),
		mdCouponCode:  snap.CouponCode,
	}
	if userID != nil {
		md[mdUserID] = userID.String()
	}

	addr, err := json.Marshal(snap.Address)
	if err != nil {
		return nil, err
	}
	if len(addr) > metadataValueLimit {
		return nil, fmt.Errorf("%w: shipping address too long", ErrValidation)
	}
	md[mdAddress] = string(addr)

	items := make([]metaItem, len(snap.Items))
	for i, l := range snap.Items {
		items[i] = metaItem{ID: l.ProductID, Type: l.ProductType, Name: l.Name, Price: l.Price, Qty: l.Quantity}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	chunks := 0
	for s := string(raw); len(s) > 0; chunks++ {
		n := min(metadataValueLimit, len(s))
		for n < len(s) && !utf8.RuneStart(s[n]) {
			n--
		}
		md[mdItemsPrefix+strconv.Itoa(chunks)] = s[:n]
		s = s[n:]
	}
	md[mdItemsChunks] = strconv.Itoa(chunks)

	if len(md) > metadataMaxKeys {
		return nil, fmt.Errorf("%w: cart too large for checkout", ErrValidation)
	}
	return md, nil
}

// DecodeMetadata rebuilds the checkout hand-off from gateway metadata. It is
// the fallback when no pending checkout record exists.
func DecodeMetadata(md map[string]string) (*models.PendingCheckout, error) {
	n, err := strconv.Atoi(md[mdItemsChunks])
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%w: metadata has no items", ErrValidation)
	}
	var raw []byte
	for i := 0; i < n; i++ {
		part, ok := md[mdItemsPrefix+strconv.Itoa(i)]
		if !ok {
			return nil, fmt.Errorf("%w: metadata item chunk %d missing", ErrValidation, i)
		}
		raw = append(raw, part...)
	}
	var items []metaItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: metadata items: %v", ErrValidation, err)
	}

	pc := &models.PendingCheckout{Email: md[mdEmail]}
	if v := md[mdUserID]; v != "" && v != guestUser {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata user id: %v", ErrValidation, err)
		}
		pc.UserID = &id
	}
	if v := md[mdAddress]; v != "" {
		if err := json.Unmarshal([]byte(v), &pc.Snapshot.Address); err != nil {
			return nil, fmt.Errorf("%w: metadata address: %v", ErrValidation, err)
		}
	}

	snap := &pc.Snapshot
	snap.CouponCode = md[mdCouponCode]
	for _, f := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{mdSubtotal, &snap.Subtotal},
		{mdShippingFee, &snap.ShippingFee},
		{mdTax, &snap.Tax},
		{mdDiscount, &snap.Discount},
		{mdTotal, &snap.Total},
	} {
		v, err := decimal.NewFromString(md[f.key])
		if err != nil {
			return nil, fmt.Errorf("%w: metadata %s: %v", ErrValidation, f.key, err)
		}
		*f.dst = v
	}

	snap.Items = make([]models.CheckoutLine, len(items))
	for i, it := range items {
		snap.Items[i] = models.CheckoutLine{ProductID: it.ID, ProductType: it.Type, Name: it.Name, Price: it.Price, Quantity: it.Qty}
	}
	return pc, nil
}
