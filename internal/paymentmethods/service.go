package paymentmethods

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db"
	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
)

// AddInput holds the validated payload to save a payment method. The
// client tokenizes the card with Stripe.js and only the resulting method
// id ever reaches the server.
type AddInput struct {
	StripeMethodID string
	Email          string
}

// Service manages the payment methods a customer keeps on file.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) (*MethodListResult, error)
	Add(ctx context.Context, userID uuid.UUID, input AddInput) (*MethodDTO, error)
	Remove(ctx context.Context, userID, methodID uuid.UUID) (*MethodListResult, error)
}

type service struct {
	repo   *Repository
	stripe StripeMethodClient
}

// NewService constructs a payment methods service instance.
func NewService(repo *Repository, stripeClient StripeMethodClient) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment methods repository required")
	}
	if stripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &service{repo: repo, stripe: stripeClient}, nil
}

// List returns the caller's active methods, default first.
func (s *service) List(ctx context.Context, userID uuid.UUID) (*MethodListResult, error) {
	methods, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}

	out := make([]MethodDTO, 0, len(methods))
	for i := range methods {
		out = append(out, *NewMethodDTO(&methods[i]))
	}
	return &MethodListResult{PaymentMethods: out}, nil
}

// Add attaches a tokenized method to the caller's Stripe customer and
// saves its display details. The caller's first method becomes the
// default.
func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddInput) (*MethodDTO, error) {
	stripeMethodID := strings.TrimSpace(input.StripeMethodID)
	if stripeMethodID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method id required")
	}

	cust, err := s.ensureCustomer(ctx, userID, input.Email)
	if err != nil {
		return nil, err
	}

	method, err := s.stripe.GetMethod(ctx, stripeMethodID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stripe payment method")
	}
	if _, err := s.stripe.AttachMethod(ctx, stripeMethodID, cust.StripeCustomerID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment method")
	}

	existing, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count payment methods")
	}

	saved := &models.SavedPaymentMethod{
		UserID:         userID,
		StripeMethodID: stripeMethodID,
		Method:         methodTypeOf(method),
		IsDefault:      existing == 0,
		IsActive:       true,
	}
	if method.Card != nil {
		saved.CardBrand = string(method.Card.Brand)
		saved.CardLast4 = method.Card.Last4
		saved.CardExpMonth = int(method.Card.ExpMonth)
		saved.CardExpYear = int(method.Card.ExpYear)
	}
	if _, err := s.repo.Create(ctx, saved); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment method already saved")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment method")
	}
	return NewMethodDTO(saved), nil
}

// Remove detaches the method from Stripe and deactivates the row, then
// returns the remaining methods. The row stays behind so past payments
// keep their reference.
func (s *service) Remove(ctx context.Context, userID, methodID uuid.UUID) (*MethodListResult, error) {
	method, err := s.repo.FindActiveByIDAndUser(ctx, methodID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}

	if _, err := s.stripe.DetachMethod(ctx, method.StripeMethodID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach payment method")
	}
	if err := s.repo.Deactivate(ctx, method.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate payment method")
	}
	return s.List(ctx, userID)
}

// ensureCustomer returns the user's Stripe customer link, creating the
// Stripe customer on first use. A concurrent first save loses the insert
// race and picks up the winner's row.
func (s *service) ensureCustomer(ctx context.Context, userID uuid.UUID, email string) (*models.StripeCustomer, error) {
	cust, err := s.repo.FindCustomerByUser(ctx, userID)
	if err == nil {
		return cust, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stripe customer")
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{"user_id": userID.String()},
	}
	if email = strings.TrimSpace(email); email != "" {
		params.Email = stripe.String(email)
	}
	stripeCust, err := s.stripe.CreateCustomer(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}

	created, err := s.repo.CreateCustomer(ctx, &models.StripeCustomer{
		UserID:           userID,
		StripeCustomerID: stripeCust.ID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.loadExistingCustomer(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save stripe customer")
	}
	return created, nil
}

func (s *service) loadExistingCustomer(ctx context.Context, userID uuid.UUID) (*models.StripeCustomer, error) {
	cust, err := s.repo.FindCustomerByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stripe customer")
	}
	return cust, nil
}

func methodTypeOf(method *stripe.PaymentMethod) enums.PaymentMethod {
	if method == nil {
		return enums.PaymentMethodStripeCard
	}
	switch method.Type {
	case stripe.PaymentMethodTypeUSBankAccount:
		return enums.PaymentMethodStripeBank
	case stripe.PaymentMethodTypeLink:
		return enums.PaymentMethodStripeWallet
	default:
		return enums.PaymentMethodStripeCard
	}
}
