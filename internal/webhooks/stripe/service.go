package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
)

type paymentSettler interface {
	HandleIntentSucceeded(ctx context.Context, intentID string) error
	HandleIntentFailed(ctx context.Context, intentID, failureCode, failureMessage string) error
	HandleIntentCanceled(ctx context.Context, intentID string) error
}

type ServiceParams struct {
	Repo     *Repository
	Payments paymentSettler
}

// Service routes verified Stripe events to the payment settlement handlers.
// Every event lands in the webhook_events ledger before it is dispatched, so
// a delivery that slips past the Redis guard still cannot settle twice.
type Service struct {
	repo     *Repository
	payments paymentSettler
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook repo required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	return &Service{
		repo:     params.Repo,
		payments: params.Payments,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if event.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event id required")
	}

	record, err := s.claim(ctx, event)
	if err != nil {
		return err
	}
	if record == nil {
		// already settled by an earlier delivery
		return nil
	}

	if dispatchErr := s.dispatch(ctx, event); dispatchErr != nil {
		if markErr := s.repo.MarkFailed(ctx, record.ID, dispatchErr.Error()); markErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, markErr, "record webhook failure")
		}
		return dispatchErr
	}

	if err := s.repo.MarkProcessed(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark webhook processed")
	}
	return nil
}

// claim inserts the ledger row, or picks up the existing one when this is a
// redelivery. A nil record means the event was already fully processed.
func (s *Service) claim(ctx context.Context, event *stripe.Event) (*models.WebhookEvent, error) {
	record := &models.WebhookEvent{
		StripeEventID: event.ID,
		EventType:     string(event.Type),
		Payload:       event.Data.Raw,
	}
	inserted, err := s.repo.Insert(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert webhook event")
	}
	if inserted {
		return record, nil
	}

	existing, err := s.repo.FindByEventID(ctx, event.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook event vanished after conflict")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load webhook event")
	}
	if existing.ProcessedAt != nil {
		return nil, nil
	}
	// earlier delivery failed mid-flight, retry against its row
	return existing, nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.payments.HandleIntentSucceeded(ctx, intent.ID)
	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		code, message := failureDetails(intent)
		return s.payments.HandleIntentFailed(ctx, intent.ID, code, message)
	case stripe.EventTypePaymentIntentCanceled:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.payments.HandleIntentCanceled(ctx, intent.ID)
	default:
		// unhandled types are acknowledged so Stripe stops retrying
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

func failureDetails(intent *stripe.PaymentIntent) (code, message string) {
	if intent.LastPaymentError == nil {
		return "", ""
	}
	return string(intent.LastPaymentError.Code), intent.LastPaymentError.Msg
}
