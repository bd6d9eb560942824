package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/mocks"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type InvoiceServicesTestSuite struct {
	suite.Suite
	store         *testhelpers.InMemoryStore
	publisher     *testhelpers.RecordingPublisher
	mockProcessor *mocks.MockPaymentProcessor

	createService  *services.CreateService
	paymentService *services.PaymentService
	cancelService  *services.CancelService
	updateService  *services.UpdateService
	overdueService *services.OverdueService
}

func TestInvoiceServicesSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServicesTestSuite))
}

func (suite *InvoiceServicesTestSuite) SetupTest() {
	logger := discardLogger()
	suite.publisher = &testhelpers.RecordingPublisher{}
	suite.store = testhelpers.NewInMemoryStore(suite.publisher)
	suite.mockProcessor = mocks.NewMockPaymentProcessor(suite.T())

	repo := suite.store.Repository()
	suite.createService = services.NewCreateService(suite.store, 30, "DZD", logger)
	suite.paymentService = services.NewPaymentService(repo, suite.store, suite.mockProcessor, logger)
	suite.cancelService = services.NewCancelService(suite.store, logger)
	suite.updateService = services.NewUpdateService(suite.store, logger)
	suite.overdueService = services.NewOverdueService(repo, suite.store, logger)
}

// ============================================================================
// CREATE
// ============================================================================

func (suite *InvoiceServicesTestSuite) Test_Create_Success() {
	t := suite.T()
	cmd := testhelpers.DefaultCreateCommand()

	result, err := suite.createService.Create(context.Background(), cmd)

	require.NoError(t, err)
	assert.Equal(t, domain.Applied, result.Outcome)
	assert.Equal(t, "25.00 DZD", result.Invoice.Subtotal().String())
	assert.Equal(t, "26.50 DZD", result.Invoice.TotalAmount().String())
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), result.Invoice.DueDate, time.Minute)
	assert.Equal(t, []string{domain.EventInvoiceCreated}, suite.publisher.Types())
}

func (suite *InvoiceServicesTestSuite) Test_Create_SameOrderTwice_ReturnsExisting() {
	t := suite.T()
	cmd := testhelpers.DefaultCreateCommand()

	first, err := suite.createService.Create(context.Background(), cmd)
	require.NoError(t, err)
	second, err := suite.createService.Create(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, domain.AlreadyInState, second.Outcome)
	assert.Equal(t, first.Invoice.ID, second.Invoice.ID)
	assert.Equal(t, 1, suite.store.Count())
	assert.Len(t, suite.publisher.Events(), 1)
}

func (suite *InvoiceServicesTestSuite) Test_Create_RejectsEmptyItems() {
	t := suite.T()
	cmd := testhelpers.DefaultCreateCommand()
	cmd.Items = nil

	_, err := suite.createService.Create(context.Background(), cmd)

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, suite.store.Count())
	assert.Empty(t, suite.publisher.Events())
}

func (suite *InvoiceServicesTestSuite) Test_Create_RejectsNegativeTax() {
	t := suite.T()
	cmd := testhelpers.DefaultCreateCommand()
	negative := decimal.NewFromInt(-1)
	cmd.Tax = &negative

	_, err := suite.createService.Create(context.Background(), cmd)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func (suite *InvoiceServicesTestSuite) Test_Create_PersistenceFailure_PublishesNothing() {
	t := suite.T()
	suite.store.CreateFn = func(context.Context, *domain.Invoice) error { return errors.New("disk full") }

	_, err := suite.createService.Create(context.Background(), testhelpers.DefaultCreateCommand())

	assert.Error(t, err)
	assert.Empty(t, suite.publisher.Events())
}

// ============================================================================
// PROCESS PAYMENT
// ============================================================================

func (suite *InvoiceServicesTestSuite) seedInvoice() *domain.Invoice {
	inv := testhelpers.NewPendingInvoice(suite.T())
	suite.store.Seed(inv)
	return inv
}

func (suite *InvoiceServicesTestSuite) paymentCommand(invoiceID string) services.ProcessPaymentCommand {
	return services.ProcessPaymentCommand{
		InvoiceID:     invoiceID,
		PaymentMethod: "edahabia",
		SuccessURL:    "https://ficmart.test/success",
		FailureURL:    "https://ficmart.test/failure",
	}
}

func (suite *InvoiceServicesTestSuite) Test_ProcessPayment_Success() {
	t := suite.T()
	inv := suite.seedInvoice()
	details := testhelpers.PendingCheckout("chk_123")

	suite.mockProcessor.EXPECT().
		ProcessPayment(mock.Anything, mock.MatchedBy(func(req application.PaymentRequest) bool {
			return req.InvoiceID == inv.ID &&
				req.Amount.Equal(inv.TotalAmount()) &&
				req.Method == domain.PaymentMethodEdahabia
		})).
		Return(details, nil).
		Once()
	suite.mockProcessor.EXPECT().
		PaymentURL(details).
		Return(details.PaymentReference()).
		Once()

	result, err := suite.paymentService.ProcessPayment(context.Background(), suite.paymentCommand(inv.ID))

	require.NoError(t, err)
	assert.Equal(t, "https://pay.chargily.test/checkout/chk_123", result.CheckoutURL)
	assert.Equal(t, domain.StatusPending, result.Invoice.Status)

	saved, ok := suite.store.Get(inv.ID)
	require.True(t, ok)
	require.NotNil(t, saved.PaymentDetails)
	assert.Equal(t, "chk_123", saved.PaymentDetails.TransactionID())
	assert.False(t, saved.PaymentDetails.IsPaymentComplete())
}

func (suite *InvoiceServicesTestSuite) Test_ProcessPayment_RejectsAmountBelowTotal() {
	t := suite.T()
	inv := suite.seedInvoice()
	cmd := suite.paymentCommand(inv.ID)
	low := decimal.RequireFromString("1.00")
	cmd.Amount = &low

	_, err := suite.paymentService.ProcessPayment(context.Background(), cmd)

	assert.ErrorIs(t, err, domain.ErrPaymentProcessing)
}

func (suite *InvoiceServicesTestSuite) Test_ProcessPayment_RejectsCancelledInvoice() {
	t := suite.T()
	inv := suite.seedInvoice()
	_, err := suite.cancelService.Cancel(context.Background(), services.CancelInvoiceCommand{InvoiceID: inv.ID})
	require.NoError(t, err)

	_, err = suite.paymentService.ProcessPayment(context.Background(), suite.paymentCommand(inv.ID))

	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func (suite *InvoiceServicesTestSuite) Test_ProcessPayment_GatewayFailure_LeavesInvoiceUntouched() {
	t := suite.T()
	inv := suite.seedInvoice()
	gatewayErr := domain.NewPaymentProcessingError(inv.ID, "gateway unavailable", errors.New("503"))

	suite.mockProcessor.EXPECT().
		ProcessPayment(mock.Anything, mock.Anything).
		Return(domain.PaymentDetails{}, gatewayErr).
		Once()

	_, err := suite.paymentService.ProcessPayment(context.Background(), suite.paymentCommand(inv.ID))

	assert.ErrorIs(t, err, domain.ErrPaymentProcessing)
	saved, _ := suite.store.Get(inv.ID)
	assert.Nil(t, saved.PaymentDetails)
}

func (suite *InvoiceServicesTestSuite) Test_ProcessPayment_RequiresCallbackURLs() {
	t := suite.T()
	cmd := suite.paymentCommand("inv-1")
	cmd.SuccessURL = ""

	_, err := suite.paymentService.ProcessPayment(context.Background(), cmd)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ============================================================================
// CANCEL
// ============================================================================

func (suite *InvoiceServicesTestSuite) Test_Cancel_Success_ThenIdempotent() {
	t := suite.T()
	inv := suite.seedInvoice()

	first, err := suite.cancelService.Cancel(context.Background(), services.CancelInvoiceCommand{InvoiceID: inv.ID, Reason: "duplicate"})
	require.NoError(t, err)
	second, err := suite.cancelService.Cancel(context.Background(), services.CancelInvoiceCommand{InvoiceID: inv.ID})
	require.NoError(t, err)

	assert.Equal(t, domain.Applied, first.Outcome)
	assert.Equal(t, domain.AlreadyInState, second.Outcome)
	assert.Equal(t,
		[]string{domain.EventInvoiceStatusChanged, domain.EventInvoiceCancelled},
		suite.publisher.Types())
}

func (suite *InvoiceServicesTestSuite) Test_Cancel_UnknownInvoice() {
	_, err := suite.cancelService.Cancel(context.Background(), services.CancelInvoiceCommand{InvoiceID: "missing"})

	assert.ErrorIs(suite.T(), err, domain.ErrNotFound)
}

// ============================================================================
// UPDATE
// ============================================================================

func (suite *InvoiceServicesTestSuite) Test_Update_TaxDiscountNotes() {
	t := suite.T()
	inv := suite.seedInvoice()
	tax := decimal.RequireFromString("3.00")
	discount := decimal.RequireFromString("2.00")
	notes := "loyal customer"

	updated, err := suite.updateService.Update(context.Background(), services.UpdateInvoiceCommand{
		InvoiceID: inv.ID,
		Tax:       &tax,
		Discount:  &discount,
		Notes:     &notes,
	})

	require.NoError(t, err)
	assert.Equal(t, "21.00 DZD", updated.TotalAmount().String())
	assert.Equal(t, "loyal customer", updated.Notes)
}

func (suite *InvoiceServicesTestSuite) Test_Update_DiscountAboveSubtotal_RollsBack() {
	t := suite.T()
	inv := suite.seedInvoice()
	tax := decimal.RequireFromString("3.00")
	discount := decimal.RequireFromString("500.00")

	_, err := suite.updateService.Update(context.Background(), services.UpdateInvoiceCommand{
		InvoiceID: inv.ID,
		Tax:       &tax,
		Discount:  &discount,
	})

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidDiscount))
	saved, _ := suite.store.Get(inv.ID)
	assert.Equal(t, "1.50 DZD", saved.TaxAmount.String())
}

func (suite *InvoiceServicesTestSuite) Test_Items_AddUpdateRemove() {
	t := suite.T()
	inv := suite.seedInvoice()
	ctx := context.Background()

	withItem, err := suite.updateService.AddItem(ctx, services.AddItemCommand{
		InvoiceID: inv.ID,
		Item:      services.ItemCommand{ProductID: "prod-9", Description: "Bandage", Quantity: 1, UnitPrice: decimal.RequireFromString("4.00")},
	})
	require.NoError(t, err)
	require.Len(t, withItem.Items, 2)
	newItemID := withItem.Items[1].ID

	qty := 3
	updated, err := suite.updateService.UpdateItem(ctx, services.UpdateItemCommand{InvoiceID: inv.ID, ItemID: newItemID, Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, "32.00 DZD", updated.Subtotal().String())

	removed, err := suite.updateService.RemoveItem(ctx, inv.ID, newItemID)
	require.NoError(t, err)
	assert.Equal(t, "20.00 DZD", removed.Subtotal().String())
}

// ============================================================================
// OVERDUE
// ============================================================================

func (suite *InvoiceServicesTestSuite) Test_MarkOverdue_OnlyPastDue() {
	t := suite.T()
	pastDue := testhelpers.WithDueDate(testhelpers.NewPendingInvoice(t), time.Now().Add(-24*time.Hour))
	current := testhelpers.NewPendingInvoice(t)
	suite.store.Seed(pastDue)
	suite.store.Seed(current)

	report, err := suite.overdueService.MarkOverdue(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Marked)

	saved, _ := suite.store.Get(pastDue.ID)
	assert.Equal(t, domain.StatusOverdue, saved.Status)
	assert.Equal(t, []string{domain.EventInvoiceStatusChanged, domain.EventInvoiceOverdue}, suite.publisher.Types())

	report, err = suite.overdueService.MarkOverdue(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
}

func (suite *InvoiceServicesTestSuite) Test_ExtendDueDate_ReopensOverdue() {
	t := suite.T()
	inv := testhelpers.WithDueDate(testhelpers.NewPendingInvoice(t), time.Now().Add(-24*time.Hour))
	suite.store.Seed(inv)
	_, err := suite.overdueService.MarkOverdue(context.Background(), 10)
	require.NoError(t, err)

	days := 10
	updated, err := suite.updateService.Update(context.Background(), services.UpdateInvoiceCommand{InvoiceID: inv.ID, ExtendDays: &days})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, updated.Status)
}

// ============================================================================
// QUERY
// ============================================================================

type mapCache struct {
	items map[string]*domain.Invoice
	hits  int
}

func (c *mapCache) Get(id string) (*domain.Invoice, bool) {
	inv, ok := c.items[id]
	if ok {
		c.hits++
	}
	return inv, ok
}

func (c *mapCache) Add(inv *domain.Invoice) { c.items[inv.ID] = inv }

func (c *mapCache) Remove(id string) { delete(c.items, id) }

func TestQueryService(t *testing.T) {
	store := testhelpers.NewInMemoryStore(nil)
	paid := testhelpers.NewPendingInvoice(t)
	_, err := paid.MarkAsPaid(domain.NewPaymentDetails(domain.PaymentDetailsParams{
		TransactionID: "txn-1",
		PaymentDate:   func() *time.Time { now := time.Now(); return &now }(),
	}))
	require.NoError(t, err)
	pending := testhelpers.NewPendingInvoice(t)
	soon := testhelpers.WithDueDate(testhelpers.NewPendingInvoice(t), time.Now().Add(48*time.Hour))
	store.Seed(paid)
	store.Seed(pending)
	store.Seed(soon)

	cache := &mapCache{items: map[string]*domain.Invoice{}}
	query := services.NewQueryService(store.Repository(), cache)
	ctx := context.Background()

	t.Run("find by id caches the result", func(t *testing.T) {
		first, err := query.FindByID(ctx, pending.ID)
		require.NoError(t, err)
		second, err := query.FindByID(ctx, pending.ID)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, cache.hits)
	})

	t.Run("find by order id", func(t *testing.T) {
		inv, err := query.FindByOrderID(ctx, paid.OrderID)
		require.NoError(t, err)
		assert.Equal(t, paid.ID, inv.ID)
	})

	t.Run("list filters by status", func(t *testing.T) {
		list, err := query.List(ctx, application.InvoiceFilter{Status: domain.StatusPaid})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, paid.ID, list[0].ID)
	})

	t.Run("due soon", func(t *testing.T) {
		list, err := query.DueSoon(ctx, 7)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, soon.ID, list[0].ID)

		_, err = query.DueSoon(ctx, 0)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("statistics", func(t *testing.T) {
		stats, err := query.Statistics(ctx, "")
		require.NoError(t, err)

		assert.Equal(t, 3, stats.TotalInvoices)
		assert.Equal(t, 2, stats.ByStatus[domain.StatusPending].Count)
		assert.Equal(t, "43.00", stats.ByStatus[domain.StatusPending].Totals["DZD"])
		assert.Equal(t, 1, stats.ByStatus[domain.StatusPaid].Count)
		assert.Equal(t, 0, stats.ByStatus[domain.StatusCancelled].Count)
	})
}
