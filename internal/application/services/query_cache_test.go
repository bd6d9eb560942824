package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application/mocks"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQueryService_ReadsAfterEventlessWrites(t *testing.T) {
	var invoices *cache.InvoiceCache
	setup := func(t *testing.T) (*testhelpers.InMemoryStore, *services.QueryService, *domain.Invoice) {
		invoices = cache.NewInvoiceCache(16, time.Minute)
		store := testhelpers.NewInMemoryStore(&testhelpers.RecordingPublisher{})
		store.UseCache(invoices)
		inv := testhelpers.NewPendingInvoice(t)
		store.Seed(inv)
		return store, services.NewQueryService(store.Repository(), invoices), inv
	}

	t.Run("tax update is visible", func(t *testing.T) {
		store, query, inv := setup(t)
		cached, err := query.FindByID(context.Background(), inv.ID)
		require.NoError(t, err)
		require.Equal(t, "1.50 DZD", cached.TaxAmount.String())

		tax := decimal.RequireFromString("7.00")
		_, err = services.NewUpdateService(store, discardLogger()).Update(context.Background(),
			services.UpdateInvoiceCommand{InvoiceID: inv.ID, Tax: &tax})
		require.NoError(t, err)

		got, err := query.FindByID(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "7.00 DZD", got.TaxAmount.String())
	})

	t.Run("added item is visible", func(t *testing.T) {
		store, query, inv := setup(t)
		_, err := query.FindByID(context.Background(), inv.ID)
		require.NoError(t, err)

		_, err = services.NewUpdateService(store, discardLogger()).AddItem(context.Background(), services.AddItemCommand{
			InvoiceID: inv.ID,
			Item:      services.ItemCommand{ProductID: "prod-9", Description: "Follow-up", Quantity: 1, UnitPrice: decimal.RequireFromString("4.00")},
		})
		require.NoError(t, err)

		got, err := query.FindByID(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Len(t, got.Items, 2)
	})

	t.Run("pending checkout is visible", func(t *testing.T) {
		store, query, inv := setup(t)
		_, err := query.FindByID(context.Background(), inv.ID)
		require.NoError(t, err)

		processor := mocks.NewMockPaymentProcessor(t)
		checkout := testhelpers.PendingCheckout("chk_cache")
		processor.EXPECT().ProcessPayment(mock.Anything, mock.Anything).Return(checkout, nil).Once()
		processor.EXPECT().PaymentURL(checkout).Return(checkout.PaymentReference()).Once()

		_, err = services.NewPaymentService(store.Repository(), store, processor, discardLogger()).
			ProcessPayment(context.Background(), services.ProcessPaymentCommand{
				InvoiceID:     inv.ID,
				PaymentMethod: "edahabia",
				SuccessURL:    "https://ficmart.test/success",
				FailureURL:    "https://ficmart.test/failure",
			})
		require.NoError(t, err)

		got, err := query.FindByID(context.Background(), inv.ID)
		require.NoError(t, err)
		require.NotNil(t, got.PaymentDetails)
		assert.Equal(t, "chk_cache", got.PaymentDetails.TransactionID())
	})

	t.Run("rolled back write keeps cached copy", func(t *testing.T) {
		store, query, inv := setup(t)
		_, err := query.FindByID(context.Background(), inv.ID)
		require.NoError(t, err)
		store.UpdateFn = func(context.Context, *domain.Invoice) error { return errors.New("db down") }

		tax := decimal.RequireFromString("7.00")
		_, err = services.NewUpdateService(store, discardLogger()).Update(context.Background(),
			services.UpdateInvoiceCommand{InvoiceID: inv.ID, Tax: &tax})
		require.Error(t, err)

		_, cached := invoices.Get(inv.ID)
		assert.True(t, cached)
	})
}
