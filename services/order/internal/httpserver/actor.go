package httpserver

import (
	"errors"
	"net/http"

	middleware "github.com/Skotchmaster/marketplace/pkg/middleware/auth"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/service"
	"github.com/Skotchmaster/marketplace/services/order/internal/transport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var errUnauthorized = errors.New("unauthorized")

func actorFrom(c echo.Context) (service.Actor, error) {
	s, ok := c.Get(middleware.CtxUserID).(string)
	if !ok || s == "" {
		return service.Actor{}, errUnauthorized
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return service.Actor{}, errUnauthorized
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	email, _ := c.Get(middleware.CtxEmail).(string)
	return service.Actor{UserID: id, Role: role, Email: email}, nil
}

// optionalActor returns nil for guests.
func optionalActor(c echo.Context) *service.Actor {
	a, err := actorFrom(c)
	if err != nil {
		return nil
	}
	return &a
}

func unauthorized() error {
	return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

func cartLines(items []transport.CartItem) []service.CartLine {
	out := make([]service.CartLine, 0, len(items))
	for _, it := range items {
		out = append(out, service.CartLine{
			ProductID:   it.ProductID,
			ProductType: models.ProductType(it.ProductType),
			Quantity:    it.Quantity,
		})
	}
	return out
}

func shippingAddress(a transport.Address) models.ShippingAddress {
	return models.ShippingAddress{
		FullName:   a.FullName,
		Email:      a.Email,
		Phone:      a.Phone,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
