package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/cache"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/persistence/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PostgresTestSuite struct {
	suite.Suite
	testDB    *testhelpers.TestDatabase
	repo      *postgres.InvoiceRepository
	ledger    *postgres.WebhookLedger
	publisher *testhelpers.RecordingPublisher
	uow       *postgres.UnitOfWork
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container tests in short mode")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (suite *PostgresTestSuite) SetupSuite() {
	suite.testDB = testhelpers.SetupTestDatabase(suite.T())
	suite.repo = postgres.NewInvoiceRepository(suite.testDB.DB)
	suite.ledger = postgres.NewWebhookLedger(suite.testDB.DB)
}

func (suite *PostgresTestSuite) TearDownSuite() {
	suite.testDB.Cleanup(suite.T())
}

func (suite *PostgresTestSuite) SetupTest() {
	suite.testDB.CleanTables(suite.T())
	suite.publisher = &testhelpers.RecordingPublisher{}
	suite.uow = postgres.NewUnitOfWork(suite.testDB.DB, suite.publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (suite *PostgresTestSuite) create(inv *domain.Invoice) {
	err := suite.uow.WithinTransaction(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		return repos.Invoices.Create(ctx, inv)
	})
	require.NoError(suite.T(), err)
}

// ============================================================================
// INVOICE REPOSITORY
// ============================================================================

func (suite *PostgresTestSuite) Test_Create_RoundTripsAggregate() {
	t := suite.T()
	inv := testhelpers.NewPendingInvoice(t)
	extra, err := domain.NewInvoiceItem(uuid.New().String(), "prod-2", "Lab test", 1, domain.MustMoney("5.00", "DZD"))
	require.NoError(t, err)
	require.NoError(t, inv.AddItem(extra))
	require.NoError(t, inv.AddNotes("first visit"))

	suite.create(inv)

	found, err := suite.repo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.Version)
	assert.Equal(t, inv.OrderID, found.OrderID)
	assert.Equal(t, domain.StatusPending, found.Status)
	assert.Equal(t, "26.50 DZD", found.TotalAmount().String())
	assert.Equal(t, "1.50 DZD", found.TaxAmount.String())
	require.Len(t, found.Items, 2)
	assert.Equal(t, "prod-1", found.Items[0].ProductID)
	assert.Equal(t, "prod-2", found.Items[1].ProductID)
	assert.Equal(t, "first visit", found.Notes)
	assert.WithinDuration(t, inv.DueDate, found.DueDate, time.Millisecond)
	assert.Nil(t, found.PaymentDetails)
	assert.Empty(t, found.Events())
}

func (suite *PostgresTestSuite) Test_Create_KeepsFullAmountPrecision() {
	t := suite.T()
	inv := testhelpers.NewPendingInvoice(t)
	price := domain.MustMoney("0.123456", "DZD")
	fine, err := domain.NewInvoiceItem(uuid.New().String(), "prod-2", "Reagent", 3, price)
	require.NoError(t, err)
	require.NoError(t, inv.AddItem(fine))
	require.NoError(t, inv.ApplyTax(domain.MustMoney("0.0000001", "DZD")))

	suite.create(inv)

	found, err := suite.repo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 2)
	assert.True(t, price.Equal(found.Items[1].UnitPrice), "unit price %s", found.Items[1].UnitPrice.Amount())
	assert.True(t, inv.TaxAmount.Equal(found.TaxAmount), "tax %s", found.TaxAmount.Amount())
	assert.True(t, inv.TotalAmount().Equal(found.TotalAmount()))
}

func (suite *PostgresTestSuite) Test_Create_DuplicateOrderRejected() {
	t := suite.T()
	first := testhelpers.NewPendingInvoice(t)
	suite.create(first)

	second := testhelpers.NewPendingInvoice(t)
	second.OrderID = first.OrderID

	err := suite.uow.WithinTransaction(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		return repos.Invoices.Create(ctx, second)
	})

	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeDuplicateOrder))
}

func (suite *PostgresTestSuite) Test_Update_PersistsPaymentAndBumpsVersion() {
	t := suite.T()
	inv := testhelpers.NewPendingInvoice(t)
	suite.create(inv)

	loaded, err := suite.repo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	paidAt := time.Now().UTC().Truncate(time.Second)
	amount := domain.MustMoney("21.50", "DZD")
	_, err = loaded.MarkAsPaid(domain.NewPaymentDetails(domain.PaymentDetailsParams{
		Method:        domain.PaymentMethodEdahabia,
		Amount:        &amount,
		TransactionID: "chk_1",
		PaymentDate:   &paidAt,
		Info:          map[string]string{"processor": "chargily"},
	}))
	require.NoError(t, err)

	err = suite.uow.WithinTransaction(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		return repos.Invoices.Update(ctx, loaded)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)

	found, err := suite.repo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, found.Status)
	assert.Equal(t, 2, found.Version)
	require.NotNil(t, found.PaymentDetails)
	assert.Equal(t, "chk_1", found.PaymentDetails.TransactionID())
	assert.Equal(t, "chargily", found.PaymentDetails.Info()["processor"])
	got, ok := found.PaymentDetails.Amount()
	require.True(t, ok)
	assert.True(t, amount.Equal(got))
	require.NotNil(t, found.PaidAt)
}

func (suite *PostgresTestSuite) Test_Update_StaleVersionIsConcurrentModification() {
	t := suite.T()
	inv := testhelpers.NewPendingInvoice(t)
	suite.create(inv)

	a, err := suite.repo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	b, err := suite.repo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)

	require.NoError(t, a.AddNotes("winner"))
	require.NoError(t, suite.repo.Update(context.Background(), a))

	require.NoError(t, b.AddNotes("loser"))
	err = suite.repo.Update(context.Background(), b)

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeConcurrentUpdate))
	found, err := suite.repo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "winner", found.Notes)
}

func (suite *PostgresTestSuite) Test_Update_MissingInvoiceIsNotFound() {
	inv := testhelpers.NewPendingInvoice(suite.T())
	inv.Version = 1

	err := suite.repo.Update(context.Background(), inv)

	assert.ErrorIs(suite.T(), err, domain.ErrNotFound)
}

func (suite *PostgresTestSuite) Test_FindByOrderID() {
	t := suite.T()
	inv := testhelpers.NewPendingInvoice(t)
	suite.create(inv)

	found, err := suite.repo.FindByOrderID(context.Background(), inv.OrderID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, found.ID)

	_, err = suite.repo.FindByOrderID(context.Background(), "order-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (suite *PostgresTestSuite) Test_List_FiltersByUserAndStatus() {
	t := suite.T()
	first := testhelpers.NewPendingInvoice(t)
	second := testhelpers.NewPendingInvoice(t)
	second.UserID = first.UserID
	other := testhelpers.NewPendingInvoice(t)
	suite.create(first)
	suite.create(second)
	suite.create(other)

	mine, err := suite.repo.List(context.Background(), application.InvoiceFilter{UserID: first.UserID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	paged, err := suite.repo.List(context.Background(), application.InvoiceFilter{UserID: first.UserID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, second.ID, paged[0].ID)

	cancelled, err := suite.repo.List(context.Background(), application.InvoiceFilter{Status: domain.StatusCancelled})
	require.NoError(t, err)
	assert.Empty(t, cancelled)
}

func (suite *PostgresTestSuite) Test_FindDueForOverdue_OnlyPendingPastDue() {
	t := suite.T()
	past := testhelpers.WithDueDate(testhelpers.NewPendingInvoice(t), time.Now().Add(-48*time.Hour))
	future := testhelpers.NewPendingInvoice(t)
	suite.create(past)
	suite.create(future)

	due, err := suite.repo.FindDueForOverdue(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)

	soon, err := suite.repo.FindDueBetween(context.Background(), time.Now(), time.Now().AddDate(0, 0, 31))
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, future.ID, soon[0].ID)
}

func (suite *PostgresTestSuite) Test_FindAwaitingSettlement_OnlyOpenCheckouts() {
	t := suite.T()
	open := testhelpers.NewPendingInvoice(t)
	_, err := open.ProcessPayment(testhelpers.PendingCheckout("chk_open"))
	require.NoError(t, err)
	plain := testhelpers.NewPendingInvoice(t)
	paid := testhelpers.NewPendingInvoice(t)
	now := time.Now()
	_, err = paid.MarkAsPaid(domain.NewPaymentDetails(domain.PaymentDetailsParams{TransactionID: "chk_paid", PaymentDate: &now}))
	require.NoError(t, err)
	suite.create(open)
	suite.create(plain)
	suite.create(paid)

	awaiting, err := suite.repo.FindAwaitingSettlement(context.Background(), time.Now().Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)
	assert.Equal(t, open.ID, awaiting[0].ID)
	require.NotNil(t, awaiting[0].PaymentDetails)
	assert.Equal(t, "chk_open", awaiting[0].PaymentDetails.TransactionID())

	tooRecent, err := suite.repo.FindAwaitingSettlement(context.Background(), time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, tooRecent)
}

func (suite *PostgresTestSuite) Test_FindAwaitingSettlement_VerifiedCheckoutsGoLast() {
	t := suite.T()
	for _, id := range []string{"chk_a", "chk_b", "chk_c"} {
		inv := testhelpers.NewPendingInvoice(t)
		_, err := inv.ProcessPayment(testhelpers.PendingCheckout(id))
		require.NoError(t, err)
		suite.create(inv)
	}
	ctx := context.Background()
	cutoff := time.Now().Add(time.Second)

	first, err := suite.repo.FindAwaitingSettlement(ctx, cutoff, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	for _, inv := range first {
		require.NoError(t, suite.repo.MarkVerified(ctx, inv.ID, inv.PaymentDetails.TransactionID(), time.Now()))
	}

	second, err := suite.repo.FindAwaitingSettlement(ctx, cutoff, 2)
	require.NoError(t, err)
	require.Len(t, second, 2)
	checked := map[string]bool{first[0].ID: true, first[1].ID: true}
	assert.False(t, checked[second[0].ID], "the unchecked checkout must lead the next batch")

	reloaded, err := suite.repo.FindByID(ctx, first[0].ID)
	require.NoError(t, err)
	assert.Equal(t, first[0].Version, reloaded.Version)
	assert.True(t, first[0].UpdatedAt.Equal(reloaded.UpdatedAt))
}

func (suite *PostgresTestSuite) Test_MarkVerified_ResetsOnNewCheckout() {
	t := suite.T()
	inv := testhelpers.NewPendingInvoice(t)
	_, err := inv.ProcessPayment(testhelpers.PendingCheckout("chk_old"))
	require.NoError(t, err)
	other := testhelpers.NewPendingInvoice(t)
	_, err = other.ProcessPayment(testhelpers.PendingCheckout("chk_other"))
	require.NoError(t, err)
	suite.create(inv)
	suite.create(other)
	ctx := context.Background()
	require.NoError(t, suite.repo.MarkVerified(ctx, inv.ID, "chk_old", time.Now()))

	err = suite.uow.WithinTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
		locked, err := repos.Invoices.FindByIDForUpdate(ctx, inv.ID)
		if err != nil {
			return err
		}
		if _, err := locked.ProcessPayment(testhelpers.PendingCheckout("chk_new")); err != nil {
			return err
		}
		return repos.Invoices.Update(ctx, locked)
	})
	require.NoError(t, err)
	require.NoError(t, suite.repo.MarkVerified(ctx, other.ID, "chk_other", time.Now()))

	next, err := suite.repo.FindAwaitingSettlement(ctx, time.Now().Add(time.Second), 1)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, inv.ID, next[0].ID)
	assert.Equal(t, "chk_new", next[0].PaymentDetails.TransactionID())
}

func (suite *PostgresTestSuite) Test_Statistics_GroupsByStatusAndCurrency() {
	t := suite.T()
	a := testhelpers.NewPendingInvoice(t)
	b := testhelpers.NewPendingInvoice(t)
	b.UserID = a.UserID
	suite.create(a)
	suite.create(b)

	stats, err := suite.repo.Statistics(context.Background(), a.UserID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, domain.StatusPending, stats[0].Status)
	assert.Equal(t, "DZD", stats[0].Currency)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, "43.00", stats[0].Total.StringFixed(2))
}

// ============================================================================
// WEBHOOK LEDGER
// ============================================================================

func (suite *PostgresTestSuite) Test_Ledger_RecordAndDetectDuplicate() {
	t := suite.T()
	ctx := context.Background()
	inv := testhelpers.NewPendingInvoice(t)
	suite.create(inv)

	exists, err := suite.ledger.Exists(ctx, "chargily", "chk_1")
	require.NoError(t, err)
	assert.False(t, exists)

	entry := application.ProcessedWebhook{
		Gateway: "chargily", TransactionID: "chk_1", InvoiceID: inv.ID, Status: "paid", ReceivedAt: time.Now().UTC(),
	}
	require.NoError(t, suite.ledger.Record(ctx, entry))

	exists, err = suite.ledger.Exists(ctx, "chargily", "chk_1")
	require.NoError(t, err)
	assert.True(t, exists)

	err = suite.ledger.Record(ctx, entry)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeDuplicateWebhookTxn))

	exists, err = suite.ledger.Exists(ctx, "other", "chk_1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func (suite *PostgresTestSuite) Test_Ledger_RecordsAnomalies() {
	t := suite.T()
	ctx := context.Background()
	inv := testhelpers.NewPendingInvoice(t)
	suite.create(inv)

	require.NoError(t, suite.ledger.RecordAnomaly(ctx, application.PaymentAnomaly{
		Gateway:               "chargily",
		InvoiceID:             inv.ID,
		TransactionID:         "chk_2",
		ExistingTransactionID: "chk_1",
		Reason:                "invoice already paid by another transaction",
		Payload:               []byte(`{"id":"chk_2"}`),
		DetectedAt:            time.Now().UTC(),
	}))

	anomalies, err := suite.ledger.Anomalies(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "chk_1", anomalies[0].ExistingTransactionID)
	assert.JSONEq(t, `{"id":"chk_2"}`, string(anomalies[0].Payload))
}

// ============================================================================
// UNIT OF WORK
// ============================================================================

func (suite *PostgresTestSuite) Test_UnitOfWork_PublishesAfterCommitInOrder() {
	t := suite.T()
	inv, err := domain.NewInvoice(domain.NewInvoiceParams{
		ID:      uuid.New().String(),
		OrderID: "order-" + uuid.New().String(),
		UserID:  "user-1",
		Items:   testhelpers.NewPendingInvoice(t).Items,
		DueDate: time.Now().AddDate(0, 0, 30),
	})
	require.NoError(t, err)

	err = suite.uow.WithinTransaction(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		if err := repos.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		if _, err := inv.Cancel("customer request"); err != nil {
			return err
		}
		return repos.Invoices.Update(ctx, inv)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{domain.EventInvoiceCreated, domain.EventInvoiceStatusChanged, domain.EventInvoiceCancelled}, suite.publisher.Types())
	assert.Equal(t, 2, inv.Version)
}

func (suite *PostgresTestSuite) Test_UnitOfWork_EvictsWrittenInvoicesFromCache() {
	t := suite.T()
	inv := testhelpers.NewPendingInvoice(t)
	untouched := testhelpers.NewPendingInvoice(t)
	suite.create(inv)
	suite.create(untouched)

	invoices := cache.NewInvoiceCache(8, time.Minute)
	uow := postgres.NewUnitOfWork(suite.testDB.DB, nil, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithInvoiceCache(invoices)
	invoices.Add(inv)
	invoices.Add(untouched)

	err := uow.WithinTransaction(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		locked, err := repos.Invoices.FindByIDForUpdate(ctx, inv.ID)
		if err != nil {
			return err
		}
		if err := locked.AddNotes("no event for notes"); err != nil {
			return err
		}
		return repos.Invoices.Update(ctx, locked)
	})

	require.NoError(t, err)
	_, ok := invoices.Get(inv.ID)
	assert.False(t, ok)
	_, ok = invoices.Get(untouched.ID)
	assert.True(t, ok)
}

func (suite *PostgresTestSuite) Test_UnitOfWork_RollbackDiscardsWritesAndEvents() {
	t := suite.T()
	inv, err := domain.NewInvoice(domain.NewInvoiceParams{
		ID:      uuid.New().String(),
		OrderID: "order-" + uuid.New().String(),
		UserID:  "user-1",
		Items:   testhelpers.NewPendingInvoice(t).Items,
		DueDate: time.Now().AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	boom := errors.New("boom")

	err = suite.uow.WithinTransaction(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		if err := repos.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, suite.publisher.Events())
	assert.Empty(t, inv.Events())
	_, err = suite.repo.FindByID(context.Background(), inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (suite *PostgresTestSuite) Test_UnitOfWork_PublishFailureDoesNotFailCommit() {
	t := suite.T()
	suite.publisher.PublishFn = func(context.Context, domain.Event) error { return errors.New("broker down") }
	inv, err := domain.NewInvoice(domain.NewInvoiceParams{
		ID:      uuid.New().String(),
		OrderID: "order-" + uuid.New().String(),
		UserID:  "user-1",
		Items:   testhelpers.NewPendingInvoice(t).Items,
		DueDate: time.Now().AddDate(0, 0, 30),
	})
	require.NoError(t, err)

	err = suite.uow.WithinTransaction(context.Background(), func(ctx context.Context, repos application.Repositories) error {
		return repos.Invoices.Create(ctx, inv)
	})

	require.NoError(t, err)
	_, err = suite.repo.FindByID(context.Background(), inv.ID)
	assert.NoError(t, err)
}

func (suite *PostgresTestSuite) Test_FindByIDForUpdate_SerializesWriters() {
	t := suite.T()
	inv := testhelpers.NewPendingInvoice(t)
	suite.create(inv)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- suite.uow.WithinTransaction(context.Background(), func(ctx context.Context, repos application.Repositories) error {
			loaded, err := repos.Invoices.FindByIDForUpdate(ctx, inv.ID)
			if err != nil {
				return err
			}
			close(locked)
			<-release
			if err := loaded.AddNotes("first"); err != nil {
				return err
			}
			return repos.Invoices.Update(ctx, loaded)
		})
	}()

	<-locked
	second := make(chan error, 1)
	go func() {
		second <- suite.uow.WithinTransaction(context.Background(), func(ctx context.Context, repos application.Repositories) error {
			loaded, err := repos.Invoices.FindByIDForUpdate(ctx, inv.ID)
			if err != nil {
				return err
			}
			if err := loaded.AddNotes(loaded.Notes + "+second"); err != nil {
				return err
			}
			return repos.Invoices.Update(ctx, loaded)
		})
	}()

	time.Sleep(100 * time.Millisecond)
	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-second)

	found, err := suite.repo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "first+second", found.Notes)
	assert.Equal(t, 3, found.Version)
}
