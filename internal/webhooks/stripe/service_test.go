package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
)

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  stripe_event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  payload TEXT,
  processed_at DATETIME,
  process_error TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`).Error)
	return db
}

type stubSettler struct {
	succeeded []string
	failed    []string
	canceled  []string
	failCode  string
	failMsg   string
	err       error
}

func (s *stubSettler) HandleIntentSucceeded(ctx context.Context, intentID string) error {
	if s.err != nil {
		return s.err
	}
	s.succeeded = append(s.succeeded, intentID)
	return nil
}

func (s *stubSettler) HandleIntentFailed(ctx context.Context, intentID, failureCode, failureMessage string) error {
	if s.err != nil {
		return s.err
	}
	s.failed = append(s.failed, intentID)
	s.failCode = failureCode
	s.failMsg = failureMessage
	return nil
}

func (s *stubSettler) HandleIntentCanceled(ctx context.Context, intentID string) error {
	if s.err != nil {
		return s.err
	}
	s.canceled = append(s.canceled, intentID)
	return nil
}

func newWebhookService(t *testing.T) (*Service, *gorm.DB, *stubSettler) {
	t.Helper()
	db := setupWebhookTestDB(t)
	settler := &stubSettler{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Payments: settler,
	})
	require.NoError(t, err)
	return svc, db, settler
}

func intentEvent(t *testing.T, eventType stripe.EventType, intent *stripe.PaymentIntent) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(intent)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   fmt.Sprintf("evt_%s_%d", intent.ID, time.Now().UnixNano()),
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEvent_intentSucceededDispatchesOnce(t *testing.T) {
	svc, db, settler := newWebhookService(t)
	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{ID: "pi_ok"})

	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, []string{"pi_ok"}, settler.succeeded)

	var record models.WebhookEvent
	require.NoError(t, db.First(&record, "stripe_event_id = ?", event.ID).Error)
	assert.Equal(t, string(stripe.EventTypePaymentIntentSucceeded), record.EventType)
	require.NotNil(t, record.ProcessedAt)

	// replayed delivery never reaches the settler again
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Len(t, settler.succeeded, 1)
}

func TestHandleEvent_intentFailedCarriesFailureDetails(t *testing.T) {
	svc, _, settler := newWebhookService(t)
	event := intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, &stripe.PaymentIntent{
		ID: "pi_declined",
		LastPaymentError: &stripe.Error{
			Code: stripe.ErrorCodeCardDeclined,
			Msg:  "Your card was declined.",
		},
	})

	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, []string{"pi_declined"}, settler.failed)
	assert.Equal(t, string(stripe.ErrorCodeCardDeclined), settler.failCode)
	assert.Equal(t, "Your card was declined.", settler.failMsg)
}

func TestHandleEvent_intentCanceled(t *testing.T) {
	svc, _, settler := newWebhookService(t)
	event := intentEvent(t, stripe.EventTypePaymentIntentCanceled, &stripe.PaymentIntent{ID: "pi_gone"})

	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, []string{"pi_gone"}, settler.canceled)
}

func TestHandleEvent_unhandledTypeAcknowledged(t *testing.T) {
	svc, db, settler := newWebhookService(t)
	event := &stripe.Event{
		ID:   "evt_other",
		Type: stripe.EventTypeChargeSucceeded,
		Data: &stripe.EventData{Raw: []byte(`{}`)},
	}

	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Empty(t, settler.succeeded)

	var record models.WebhookEvent
	require.NoError(t, db.First(&record, "stripe_event_id = ?", "evt_other").Error)
	require.NotNil(t, record.ProcessedAt)
}

func TestHandleEvent_dispatchFailureIsRetryable(t *testing.T) {
	svc, db, settler := newWebhookService(t)
	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{ID: "pi_retry"})

	settler.err = pkgerrors.New(pkgerrors.CodeDependency, "order lock timed out")
	require.Error(t, svc.HandleEvent(context.Background(), event))

	var record models.WebhookEvent
	require.NoError(t, db.First(&record, "stripe_event_id = ?", event.ID).Error)
	assert.Nil(t, record.ProcessedAt)
	assert.Contains(t, record.ProcessError, "order lock timed out")

	// the redelivery retries against the same ledger row
	settler.err = nil
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, []string{"pi_retry"}, settler.succeeded)

	require.NoError(t, db.First(&record, "stripe_event_id = ?", event.ID).Error)
	require.NotNil(t, record.ProcessedAt)
	assert.Empty(t, record.ProcessError)
}

func TestHandleEvent_missingData(t *testing.T) {
	svc, _, _ := newWebhookService(t)

	err := svc.HandleEvent(context.Background(), &stripe.Event{ID: "evt_empty"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

type fakeIdempotencyStore struct {
	keys map[string]bool
}

func (f *fakeIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	if f.keys[key] {
		return "1", nil
	}
	return "", nil
}

func (f *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("sf:idempotency:%s:%s", scope, id)
}

func (f *fakeIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func TestEventGuard_checkMarkDelete(t *testing.T) {
	guard, err := NewEventGuard(&fakeIdempotencyStore{}, time.Hour, "stripe-webhook")
	require.NoError(t, err)

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Delete(context.Background(), "evt_1"))
	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}
