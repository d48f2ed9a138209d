package paymentmethods

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
)

func setupMethodsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{`
CREATE TABLE IF NOT EXISTS stripe_customers (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  stripe_customer_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS saved_payment_methods (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  stripe_method_id TEXT NOT NULL UNIQUE,
  method TEXT NOT NULL DEFAULT 'stripe_card',
  card_brand TEXT NOT NULL DEFAULT '',
  card_last4 TEXT NOT NULL DEFAULT '',
  card_exp_month INTEGER NOT NULL DEFAULT 0,
  card_exp_year INTEGER NOT NULL DEFAULT 0,
  is_default INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type stubStripeClient struct {
	customersCreated int
	attached         []string
	detached         []string
	methodResp       *stripe.PaymentMethod
	attachErr        error
}

func (s *stubStripeClient) CreateCustomer(_ context.Context, _ *stripe.CustomerParams) (*stripe.Customer, error) {
	s.customersCreated++
	return &stripe.Customer{ID: fmt.Sprintf("cus_%s", uuid.NewString()[:12])}, nil
}

func (s *stubStripeClient) GetMethod(_ context.Context, id string) (*stripe.PaymentMethod, error) {
	if s.methodResp != nil {
		return s.methodResp, nil
	}
	return &stripe.PaymentMethod{
		ID:   id,
		Type: stripe.PaymentMethodTypeCard,
		Card: &stripe.PaymentMethodCard{
			Brand:    stripe.PaymentMethodCardBrandVisa,
			Last4:    "4242",
			ExpMonth: 12,
			ExpYear:  2030,
		},
	}, nil
}

func (s *stubStripeClient) AttachMethod(_ context.Context, id, _ string) (*stripe.PaymentMethod, error) {
	if s.attachErr != nil {
		return nil, s.attachErr
	}
	s.attached = append(s.attached, id)
	return &stripe.PaymentMethod{ID: id}, nil
}

func (s *stubStripeClient) DetachMethod(_ context.Context, id string) (*stripe.PaymentMethod, error) {
	s.detached = append(s.detached, id)
	return &stripe.PaymentMethod{ID: id}, nil
}

func newMethodsService(t *testing.T) (Service, *gorm.DB, *stubStripeClient) {
	t.Helper()
	db := setupMethodsTestDB(t)
	stripeStub := &stubStripeClient{}
	svc, err := NewService(NewRepository(db), stripeStub)
	require.NoError(t, err)
	return svc, db, stripeStub
}

func newStripeMethodID() string {
	return fmt.Sprintf("pm_%s", uuid.NewString()[:12])
}

func TestAdd_firstMethodBecomesDefault(t *testing.T) {
	svc, db, stripeStub := newMethodsService(t)
	userID := uuid.New()

	first, err := svc.Add(context.Background(), userID, AddInput{
		StripeMethodID: newStripeMethodID(),
		Email:          "shopper@example.com",
	})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.Equal(t, enums.PaymentMethodStripeCard.String(), first.Method)
	assert.Equal(t, "visa", first.CardBrand)
	assert.Equal(t, "4242", first.CardLast4)
	assert.Equal(t, 12, first.CardExpMonth)
	assert.Equal(t, 2030, first.CardExpYear)

	second, err := svc.Add(context.Background(), userID, AddInput{
		StripeMethodID: newStripeMethodID(),
		Email:          "shopper@example.com",
	})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	// the Stripe customer is created once and reused
	assert.Equal(t, 1, stripeStub.customersCreated)
	require.Len(t, stripeStub.attached, 2)

	var customerCount int64
	require.NoError(t, db.Model(&models.StripeCustomer{}).Where("user_id = ?", userID).Count(&customerCount).Error)
	assert.Equal(t, int64(1), customerCount)
}

func TestAdd_duplicateMethodRejected(t *testing.T) {
	svc, _, _ := newMethodsService(t)
	userID := uuid.New()
	stripeMethodID := newStripeMethodID()

	_, err := svc.Add(context.Background(), userID, AddInput{StripeMethodID: stripeMethodID})
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), userID, AddInput{StripeMethodID: stripeMethodID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestAdd_missingMethodIDRejected(t *testing.T) {
	svc, _, stripeStub := newMethodsService(t)

	_, err := svc.Add(context.Background(), uuid.New(), AddInput{StripeMethodID: "   "})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Zero(t, stripeStub.customersCreated)
	assert.Empty(t, stripeStub.attached)
}

func TestRemove_detachesAndHidesMethod(t *testing.T) {
	svc, db, stripeStub := newMethodsService(t)
	userID := uuid.New()
	stripeMethodID := newStripeMethodID()

	added, err := svc.Add(context.Background(), userID, AddInput{StripeMethodID: stripeMethodID})
	require.NoError(t, err)

	result, err := svc.Remove(context.Background(), userID, added.ID)
	require.NoError(t, err)
	assert.Empty(t, result.PaymentMethods)
	require.Len(t, stripeStub.detached, 1)
	assert.Equal(t, stripeMethodID, stripeStub.detached[0])

	// the row survives deactivated so payment history keeps its reference
	var reloaded models.SavedPaymentMethod
	require.NoError(t, db.First(&reloaded, "id = ?", added.ID).Error)
	assert.False(t, reloaded.IsActive)
	assert.False(t, reloaded.IsDefault)
}

func TestRemove_foreignMethodHidden(t *testing.T) {
	svc, _, stripeStub := newMethodsService(t)

	added, err := svc.Add(context.Background(), uuid.New(), AddInput{StripeMethodID: newStripeMethodID()})
	require.NoError(t, err)

	_, err = svc.Remove(context.Background(), uuid.New(), added.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.Empty(t, stripeStub.detached)
}

func TestAdd_replacementAfterRemovalNotDefault(t *testing.T) {
	svc, _, _ := newMethodsService(t)
	userID := uuid.New()

	first, err := svc.Add(context.Background(), userID, AddInput{StripeMethodID: newStripeMethodID()})
	require.NoError(t, err)
	_, err = svc.Remove(context.Background(), userID, first.ID)
	require.NoError(t, err)

	replacement, err := svc.Add(context.Background(), userID, AddInput{StripeMethodID: newStripeMethodID()})
	require.NoError(t, err)
	assert.False(t, replacement.IsDefault)
}

func TestList_defaultFirstSkipsInactive(t *testing.T) {
	svc, db, _ := newMethodsService(t)
	userID := uuid.New()

	base := time.Now().UTC().Add(-time.Hour)
	rows := []models.SavedPaymentMethod{
		{UserID: userID, StripeMethodID: newStripeMethodID(), Method: enums.PaymentMethodStripeCard, IsActive: true, CreatedAt: base},
		{UserID: userID, StripeMethodID: newStripeMethodID(), Method: enums.PaymentMethodStripeCard, IsDefault: true, IsActive: true, CreatedAt: base.Add(time.Minute)},
		{UserID: userID, StripeMethodID: newStripeMethodID(), Method: enums.PaymentMethodStripeCard, IsActive: false, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	result, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, result.PaymentMethods, 2)
	assert.True(t, result.PaymentMethods[0].IsDefault)
	assert.False(t, result.PaymentMethods[1].IsDefault)
}
