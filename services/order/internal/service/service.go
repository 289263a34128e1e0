package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/marketplace/pkg/tokens"
	"github.com/Skotchmaster/marketplace/services/order/internal/catalog"
	"github.com/Skotchmaster/marketplace/services/order/internal/events"
	"github.com/Skotchmaster/marketplace/services/order/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/order/internal/repo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.Event) {}

type CheckoutURLs struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

type Deps struct {
	Repo     *repo.GormRepo
	Catalog  *catalog.Registry
	Gateway  gateway.Gateway
	Events   Publisher
	Pricing  Pricing
	Checkout CheckoutURLs
}

func (d Deps) publisher() Publisher {
	if d.Events == nil {
		return nopPublisher{}
	}
	return d.Events
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   string
	Email  string
}

func (a Actor) IsAdmin() bool {
	return a.Role == tokens.RoleAdmin
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
