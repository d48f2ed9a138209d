package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
	"github.com/aaronbui99/storefront-backend/pkg/pagination"
)

// RefundInput holds the validated payload to refund a payment. A zero
// AmountCents means refund the full remaining balance.
type RefundInput struct {
	AmountCents int64
	Reason      enums.RefundReason
	Note        string
}

// Service exposes payment intent creation, webhook-driven settlement, and
// refunds.
type Service interface {
	CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*IntentDTO, error)
	Confirm(ctx context.Context, userID uuid.UUID, intentID string) (*PaymentDTO, error)
	GetForOrder(ctx context.Context, userID, orderID uuid.UUID) (*PaymentDTO, error)
	List(ctx context.Context, userID uuid.UUID, page pagination.Params) (*PaymentListResult, error)
	HandleIntentSucceeded(ctx context.Context, intentID string) error
	HandleIntentFailed(ctx context.Context, intentID, failureCode, failureMessage string) error
	HandleIntentCanceled(ctx context.Context, intentID string) error
	Refund(ctx context.Context, userID, paymentID uuid.UUID, input RefundInput) (*PaymentDTO, error)
}

type orderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type orderTransitioner interface {
	TransitionInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, to enums.OrderStatus, note string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo       *Repository
	ordersRepo orderReader
	ordersSvc  orderTransitioner
	stripe     StripePaymentClient
	tx         txRunner
}

// NewService constructs a payment service instance.
func NewService(
	repo *Repository,
	ordersRepo orderReader,
	ordersSvc orderTransitioner,
	stripeClient StripePaymentClient,
	tx txRunner,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if stripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:       repo,
		ordersRepo: ordersRepo,
		ordersSvc:  ordersSvc,
		stripe:     stripeClient,
		tx:         tx,
	}, nil
}

// CreateIntent creates a Stripe PaymentIntent for a pending order. The amount
// always comes from the stored order total, never from the client.
func (s *service) CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*IntentDTO, error) {
	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order in status %s cannot be paid", order.Status))
	}

	active, err := s.repo.HasActivePayment(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing payments")
	}
	if active {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has a payment in flight")
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(order.TotalCents),
		Currency:    stripe.String(order.Currency),
		Description: stripe.String(fmt.Sprintf("Order %s", order.Number)),
		Metadata: map[string]string{
			"order_id": order.ID.String(),
			"user_id":  order.UserID.String(),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	intent, err := s.stripe.CreateIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe payment intent")
	}

	payment, err := s.repo.Create(ctx, &models.Payment{
		OrderID:        order.ID,
		StripeIntentID: intent.ID,
		Status:         enums.PaymentStatusPending,
		Method:         enums.PaymentMethodStripeCard,
		Currency:       order.Currency,
		AmountCents:    order.TotalCents,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
	}

	return &IntentDTO{
		PaymentID:      payment.ID,
		StripeIntentID: intent.ID,
		ClientSecret:   intent.ClientSecret,
		AmountCents:    payment.AmountCents,
		Currency:       payment.Currency,
		Status:         payment.Status.String(),
	}, nil
}

// Confirm polls Stripe for the intent's current state and settles the payment
// accordingly. The client calls this after completing the payment flow instead
// of waiting for the webhook.
func (s *service) Confirm(ctx context.Context, userID uuid.UUID, intentID string) (*PaymentDTO, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}

	payment, err := s.repo.FindByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	order, err := s.ordersRepo.FindByID(ctx, payment.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	intent, err := s.stripe.GetIntent(ctx, intentID, &stripe.PaymentIntentParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe payment intent")
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		if err := s.HandleIntentSucceeded(ctx, intentID); err != nil {
			return nil, err
		}
	case stripe.PaymentIntentStatusCanceled:
		if err := s.HandleIntentCanceled(ctx, intentID); err != nil {
			return nil, err
		}
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if intent.LastPaymentError != nil {
			code, message := string(intent.LastPaymentError.Code), intent.LastPaymentError.Msg
			if err := s.HandleIntentFailed(ctx, intentID, code, message); err != nil {
				return nil, err
			}
		}
	case stripe.PaymentIntentStatusProcessing:
		if payment.Status == enums.PaymentStatusPending {
			if err := s.repo.Updates(ctx, payment.ID, map[string]any{
				"status": enums.PaymentStatusProcessing,
			}); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
			}
		}
	}

	reloaded, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
	}
	return NewPaymentDTO(reloaded), nil
}

// List pages through the user's payments.
func (s *service) List(ctx context.Context, userID uuid.UUID, page pagination.Params) (*PaymentListResult, error) {
	result, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return result, nil
}

// GetForOrder returns the latest payment on an order owned by the user.
func (s *service) GetForOrder(ctx context.Context, userID, orderID uuid.UUID) (*PaymentDTO, error) {
	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	payment, err := s.repo.FindLatestByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return NewPaymentDTO(payment), nil
}

// HandleIntentSucceeded marks the payment succeeded and confirms the order in
// the same transaction, so neither write can land without the other.
func (s *service) HandleIntentSucceeded(ctx context.Context, intentID string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		payment, err := txRepo.LockByIntentID(ctx, intentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for intent")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		if payment.Status == enums.PaymentStatusSucceeded {
			// replayed delivery
			return nil
		}
		if payment.Status != enums.PaymentStatusPending && payment.Status != enums.PaymentStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment in status %s cannot succeed", payment.Status))
		}

		now := time.Now().UTC()
		if err := txRepo.Updates(ctx, payment.ID, map[string]any{
			"status":       enums.PaymentStatusSucceeded,
			"succeeded_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}

		return s.ordersSvc.TransitionInTx(ctx, tx, payment.OrderID, enums.OrderStatusConfirmed, "payment succeeded")
	})
}

// HandleIntentFailed records the failure details on the payment.
func (s *service) HandleIntentFailed(ctx context.Context, intentID, failureCode, failureMessage string) error {
	return s.markTerminal(ctx, intentID, enums.PaymentStatusFailed, map[string]any{
		"failure_code":    strings.TrimSpace(failureCode),
		"failure_message": strings.TrimSpace(failureMessage),
	})
}

// HandleIntentCanceled marks the payment cancelled.
func (s *service) HandleIntentCanceled(ctx context.Context, intentID string) error {
	return s.markTerminal(ctx, intentID, enums.PaymentStatusCancelled, nil)
}

func (s *service) markTerminal(ctx context.Context, intentID string, to enums.PaymentStatus, extra map[string]any) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		payment, err := txRepo.LockByIntentID(ctx, intentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for intent")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		if payment.Status == to {
			return nil
		}
		if payment.Status != enums.PaymentStatusPending && payment.Status != enums.PaymentStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment in status %s cannot move to %s", payment.Status, to))
		}

		updates := map[string]any{"status": to}
		for k, v := range extra {
			updates[k] = v
		}
		if err := txRepo.Updates(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		return nil
	})
}

// Refund draws against the payment's remaining balance. A full refund moves
// the payment to refunded and the order to refunded in the same transaction;
// a partial refund leaves the payment partially refunded.
func (s *service) Refund(ctx context.Context, userID, paymentID uuid.UUID, input RefundInput) (*PaymentDTO, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	order, err := s.ordersRepo.FindByID(ctx, payment.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	if payment.Status != enums.PaymentStatusSucceeded && payment.Status != enums.PaymentStatusPartiallyRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment in status %s cannot be refunded", payment.Status))
	}

	amount := input.AmountCents
	if amount == 0 {
		amount = payment.RefundableCents()
	}
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if amount > payment.RefundableCents() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds remaining balance").
			WithDetails(map[string]int64{
				"refundable_cents": payment.RefundableCents(),
				"requested_cents":  amount,
			})
	}

	reason := input.Reason
	if reason == "" {
		reason = enums.RefundReasonRequestedByCustomer
	}
	if !reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund reason")
	}

	stripeRefund, err := s.stripe.CreateRefund(ctx, &stripe.RefundParams{
		PaymentIntent: stripe.String(payment.StripeIntentID),
		Amount:        stripe.Int64(amount),
		Reason:        stripe.String(stripeRefundReason(reason)),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe refund")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		locked, err := txRepo.LockForUpdate(ctx, payment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		// re-check under lock: a concurrent refund may have drained the balance
		if amount > locked.RefundableCents() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund exceeds remaining balance").
				WithDetails(map[string]int64{"refundable_cents": locked.RefundableCents()})
		}

		if _, err := txRepo.CreateRefund(ctx, &models.PaymentRefund{
			PaymentID:      locked.ID,
			StripeRefundID: stripeRefund.ID,
			Status:         enums.RefundStatusSucceeded,
			Reason:         reason,
			AmountCents:    amount,
			Note:           strings.TrimSpace(input.Note),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert refund")
		}

		refunded := locked.AmountRefundedCents + amount
		status := enums.PaymentStatusPartiallyRefunded
		if refunded >= locked.AmountCents {
			status = enums.PaymentStatusRefunded
		}
		if err := txRepo.Updates(ctx, locked.ID, map[string]any{
			"amount_refunded_cents": refunded,
			"status":                status,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}

		if status == enums.PaymentStatusRefunded {
			return s.ordersSvc.TransitionInTx(ctx, tx, locked.OrderID, enums.OrderStatusRefunded, "payment fully refunded")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reloaded, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
	}
	return NewPaymentDTO(reloaded), nil
}

// stripeRefundReason maps internal reasons onto the values Stripe accepts.
func stripeRefundReason(reason enums.RefundReason) string {
	switch reason {
	case enums.RefundReasonDuplicate, enums.RefundReasonFraudulent, enums.RefundReasonRequestedByCustomer:
		return reason.String()
	default:
		return string(enums.RefundReasonRequestedByCustomer)
	}
}
