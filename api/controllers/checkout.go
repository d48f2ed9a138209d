package controllers

import (
	"net/http"

	"github.com/aaronbui99/storefront-backend/api/responses"
	"github.com/aaronbui99/storefront-backend/api/validators"
	"github.com/aaronbui99/storefront-backend/internal/checkout"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
	"github.com/aaronbui99/storefront-backend/pkg/logger"
	"github.com/aaronbui99/storefront-backend/pkg/types"
)

type addressRequest struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"omitempty,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,len=2"`
	Phone      string `json:"phone" validate:"omitempty,max=30"`
}

func (a *addressRequest) toAddress() types.Address {
	if a == nil {
		return types.Address{}
	}
	return types.Address{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

type checkoutRequest struct {
	ShippingAddress    *addressRequest `json:"shipping_address" validate:"required"`
	BillingAddress     *addressRequest `json:"billing_address,omitempty"`
	ShippingMethodCode string          `json:"shipping_method" validate:"required,max=50"`
	CustomerNote       string          `json:"customer_note" validate:"omitempty,max=1000"`
}

// Checkout turns the customer's cart into a pending order.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := contextUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Checkout(r.Context(), userID, checkout.Input{
			ShippingAddress:    payload.ShippingAddress.toAddress(),
			BillingAddress:     payload.BillingAddress.toAddress(),
			ShippingMethodCode: payload.ShippingMethodCode,
			CustomerNote:       validators.SanitizeString(payload.CustomerNote, 1000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListShippingMethods serves the selectable delivery options.
func ListShippingMethods(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		methods, err := svc.ListShippingMethods(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, methods)
	}
}
