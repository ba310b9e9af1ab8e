package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/internal/clock"
	"github.com/smallbiznis/restobill/internal/config"
	invoicedomain "github.com/smallbiznis/restobill/internal/invoice/domain"
	"github.com/smallbiznis/restobill/internal/invoice/numbering"
	"github.com/smallbiznis/restobill/internal/invoice/render"
	"github.com/smallbiznis/restobill/internal/invoice/repository"
	"github.com/smallbiznis/restobill/internal/pos"
	"github.com/smallbiznis/restobill/internal/restaurantctx"
	taxservice "github.com/smallbiznis/restobill/internal/tax/service"
	"github.com/smallbiznis/restobill/pkg/db/pagination"
	"github.com/smallbiznis/restobill/pkg/errs"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var issuedAt = time.Date(2025, 4, 12, 13, 30, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	svc     invoicedomain.Service
	settler *Settler
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&pos.Restaurant{},
		&pos.Order{},
		&pos.OrderItem{},
		&invoicedomain.Invoice{},
		&invoicedomain.Item{},
	))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, repository.Provide())
}

func newFixtureWithRepo(t *testing.T, repo invoicedomain.Repository) *fixture {
	t.Helper()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	cfg := config.NewStaticInvoiceConfigHolder(config.DefaultInvoiceConfig())
	reader := pos.NewReader(clock.NewFakeClock(issuedAt))

	f := &fixture{db: db, node: node, clock: clock.NewFakeClock(issuedAt)}
	f.svc = NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: f.clock,
		Repo:  repo,
		Allocator: numbering.NewAllocator(numbering.Params{
			Log:    zap.NewNop(),
			Repo:   repo,
			Config: cfg,
		}),
		Calculator: taxservice.NewCalculator(taxservice.Params{Config: cfg}),
		POS:        reader,
		Renderer:   render.NewRenderer(),
		Config:     cfg,
	})
	f.settler = NewSettler(SettlerParam{
		DB:       db,
		Log:      zap.NewNop(),
		Invoices: f.svc,
		Orders:   reader,
	})
	return f
}

func (f *fixture) seedRestaurant(t *testing.T, id int64, name, upiID string) {
	t.Helper()
	require.NoError(t, f.db.Create(&pos.Restaurant{
		ID:        snowflake.ID(id),
		Name:      name,
		Address:   "12 MG Road, Bengaluru",
		Phone:     "+91 80 4000 1234",
		GSTNumber: "29ABCDE1234F1Z5",
		UPIID:     upiID,
	}).Error)
}

// seedOrder stores an order of 2 x 150 + 1 x 200.
func (f *fixture) seedOrder(t *testing.T, restaurantID int64) string {
	t.Helper()
	orderID := f.node.Generate()
	order := pos.Order{
		ID:            orderID,
		RestaurantID:  snowflake.ID(restaurantID),
		TableNumber:   "T4",
		PaymentStatus: "pending",
		Items: []pos.OrderItem{
			{ID: f.node.Generate(), Name: "Paneer Tikka", Quantity: 2, UnitPrice: decimal.NewFromInt(150)},
			{ID: f.node.Generate(), Name: "Masala Dosa", Quantity: 1, UnitPrice: decimal.NewFromInt(200)},
		},
	}
	require.NoError(t, f.db.Create(&order).Error)
	return orderID.String()
}

func tenant(id int64) context.Context {
	return restaurantctx.WithRestaurantID(context.Background(), id)
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 11, "Spice Route", "spiceroute@upi")
	ctx := tenant(11)

	inv, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 11)})
	require.NoError(t, err)

	assert.Equal(t, "INV-202504-0001", inv.InvoiceNumber)
	assert.Equal(t, "Walk-in Customer", inv.Customer.Name)
	assert.Equal(t, "Spice Route", inv.Restaurant.Name)
	assert.Equal(t, "T4", inv.TableNumber)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "996331", inv.Items[0].HSNCode)
	assert.True(t, decimal.NewFromInt(300).Equal(inv.Items[0].LineAmount))

	assert.True(t, decimal.NewFromInt(500).Equal(inv.Subtotal))
	assert.True(t, decimal.RequireFromString("12.5").Equal(inv.TaxDetails.CGST.Amount))
	assert.True(t, decimal.RequireFromString("12.5").Equal(inv.TaxDetails.SGST.Amount))
	assert.True(t, inv.TaxDetails.IGST.Amount.IsZero())
	assert.True(t, decimal.NewFromInt(525).Equal(inv.GrandTotal))

	assert.Equal(t, invoicedomain.PaymentMethodPending, inv.PaymentMethod)
	assert.Equal(t, invoicedomain.PaymentStatusUnpaid, inv.PaymentStatus)
	assert.Nil(t, inv.PaidAt)
	assert.Equal(t, "upi://pay?am=525&cu=INR&pa=spiceroute%40upi&pn=Spice%20Route", inv.UPIPaymentLink)

	stored, err := f.svc.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, stored.InvoiceNumber)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Paneer Tikka", stored.Items[0].Name)
}

func TestCreateInvoiceInterStatePaid(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 12, "Coastal Curry", "")
	ctx := tenant(12)

	paid := decimal.NewFromInt(600)
	inv, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		OrderID:       f.seedOrder(t, 12),
		InterState:    true,
		PaymentMethod: invoicedomain.PaymentMethodCard,
		PaidAmount:    &paid,
		Customer:      invoicedomain.CustomerInput{Name: "Asha", GSTIN: "29abcde1234f1z5"},
	})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(25).Equal(inv.TaxDetails.IGST.Amount))
	assert.True(t, inv.TaxDetails.CGST.Amount.IsZero())
	assert.Equal(t, invoicedomain.PaymentStatusPaid, inv.PaymentStatus)
	require.NotNil(t, inv.PaidAt)
	assert.Empty(t, inv.UPIPaymentLink)
	assert.Equal(t, "29ABCDE1234F1Z5", inv.Customer.GSTIN)
}

func TestCreateInvoiceRejects(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 13, "Tiffin Box", "")
	f.seedRestaurant(t, 14, "Other Place", "")
	ctx := tenant(13)
	foreignOrder := f.seedOrder(t, 14)

	_, err := f.svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{OrderID: foreignOrder})
	assert.ErrorIs(t, err, invoicedomain.ErrMissingRestaurantContext)

	_, err = f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidRequest)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: "abc"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidOrderID)

	_, err = f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: foreignOrder})
	assert.ErrorIs(t, err, invoicedomain.ErrOrderNotFound)
	assert.True(t, errs.IsNotFound(err))

	empty := f.node.Generate()
	require.NoError(t, f.db.Create(&pos.Order{ID: empty, RestaurantID: 13, PaymentStatus: "pending"}).Error)
	_, err = f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: empty.String()})
	assert.ErrorIs(t, err, invoicedomain.ErrEmptyOrder)

	_, err = f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		OrderID:       f.seedOrder(t, 13),
		PaymentMethod: "cheque",
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidRequest)

	_, err = f.svc.Create(tenant(99), invoicedomain.CreateInvoiceRequest{OrderID: foreignOrder})
	assert.ErrorIs(t, err, invoicedomain.ErrRestaurantNotFound)
}

func TestInvoiceNumbersAreSequentialPerRestaurantAndMonth(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 21, "A", "")
	f.seedRestaurant(t, 22, "B", "")

	create := func(restaurantID int64) string {
		inv, err := f.svc.Create(tenant(restaurantID), invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, restaurantID)})
		require.NoError(t, err)
		return inv.InvoiceNumber
	}

	assert.Equal(t, "INV-202504-0001", create(21))
	assert.Equal(t, "INV-202504-0002", create(21))
	assert.Equal(t, "INV-202504-0001", create(22))

	f.clock.Set(time.Date(2025, 5, 1, 0, 0, 1, 0, time.UTC))
	assert.Equal(t, "INV-202505-0001", create(21))
}

func TestConcurrentCreateYieldsUniqueNumbers(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 31, "Busy Kitchen", "")
	ctx := tenant(31)

	const n = 8
	orders := make([]string, n)
	for i := range orders {
		orders[i] = f.seedOrder(t, 31)
	}

	numbers := make([]string, n)
	var wg conc.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Go(func() {
			inv, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: orders[i]})
			if assert.NoError(t, err) {
				numbers[i] = inv.InvoiceNumber
			}
		})
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, number := range numbers {
		assert.NotEmpty(t, number)
		assert.False(t, seen[number], "duplicate number %s", number)
		seen[number] = true
	}
}

// staleNumberRepo answers number probes as if the month were empty for the
// next staleAllocations allocations, so the unique index rejects the insert.
type staleNumberRepo struct {
	invoicedomain.Repository
	staleAllocations int
}

func (r *staleNumberRepo) CountNumbersWithPrefix(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, prefix string) (int64, error) {
	if r.staleAllocations > 0 {
		return 0, nil
	}
	return r.Repository.CountNumbersWithPrefix(ctx, db, restaurantID, prefix)
}

func (r *staleNumberRepo) NumberExists(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, number string) (bool, error) {
	if r.staleAllocations > 0 {
		r.staleAllocations--
		return false, nil
	}
	return r.Repository.NumberExists(ctx, db, restaurantID, number)
}

func TestCreateRetriesWhenAllocatedNumberIsTaken(t *testing.T) {
	repo := &staleNumberRepo{Repository: repository.Provide()}
	f := newFixtureWithRepo(t, repo)
	f.seedRestaurant(t, 35, "Late Night Rolls", "")
	ctx := tenant(35)

	first, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 35)})
	require.NoError(t, err)
	assert.Equal(t, "INV-202504-0001", first.InvoiceNumber)

	repo.staleAllocations = 1
	second, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 35)})
	require.NoError(t, err)
	assert.Equal(t, "INV-202504-0002", second.InvoiceNumber)
	assert.Zero(t, repo.staleAllocations)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Where("restaurant_id = ?", 35).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCreateGivesUpAfterMaxInsertAttempts(t *testing.T) {
	repo := &staleNumberRepo{Repository: repository.Provide()}
	f := newFixtureWithRepo(t, repo)
	f.seedRestaurant(t, 36, "Always Busy", "")
	ctx := tenant(36)

	_, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 36)})
	require.NoError(t, err)

	attempts := config.DefaultInvoiceConfig().MaxInsertAttempts
	repo.staleAllocations = attempts
	_, err = f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 36)})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNumberExhausted)
	assert.Zero(t, repo.staleAllocations)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Where("restaurant_id = ?", 36).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPaymentStateMachine(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 41, "Chai Point", "chai@upi")
	ctx := tenant(41)

	inv, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 41)})
	require.NoError(t, err)

	update, err := f.settler.RecordPayment(ctx, inv.ID.String(), invoicedomain.UpdatePaymentRequest{
		PaymentMethod: invoicedomain.PaymentMethodCash,
		PaidAmount:    decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	assert.False(t, update.OrderSettled)
	assert.Equal(t, invoicedomain.PaymentStatusPartial, update.Invoice.PaymentStatus)
	assert.Nil(t, update.Invoice.PaidAt)
	assert.NotEmpty(t, update.Invoice.UPIPaymentLink)
	assert.True(t, decimal.NewFromInt(325).Equal(update.Invoice.Outstanding()))

	f.clock.Advance(time.Hour)
	update, err = f.settler.RecordPayment(ctx, inv.ID.String(), invoicedomain.UpdatePaymentRequest{
		PaymentMethod: invoicedomain.PaymentMethodUPI,
		PaidAmount:    decimal.NewFromInt(525),
	})
	require.NoError(t, err)
	assert.True(t, update.OrderSettled)
	assert.Equal(t, invoicedomain.PaymentStatusPaid, update.Invoice.PaymentStatus)
	require.NotNil(t, update.Invoice.PaidAt)
	assert.Equal(t, issuedAt.Add(time.Hour), update.Invoice.PaidAt.UTC())
	assert.Empty(t, update.Invoice.UPIPaymentLink)
	assert.Equal(t, int64(2), update.Invoice.Version)

	var order pos.Order
	require.NoError(t, f.db.First(&order, "id = ?", inv.OrderID).Error)
	assert.Equal(t, pos.OrderPaymentStatusPaid, order.PaymentStatus)

	update, err = f.settler.RecordPayment(ctx, inv.ID.String(), invoicedomain.UpdatePaymentRequest{
		PaymentMethod: invoicedomain.PaymentMethodUPI,
		PaidAmount:    decimal.Zero,
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.PaymentStatusUnpaid, update.Invoice.PaymentStatus)
	assert.Nil(t, update.Invoice.PaidAt)

	_, err = f.svc.UpdatePaymentStatus(ctx, inv.ID.String(), invoicedomain.UpdatePaymentRequest{
		PaymentMethod: "barter",
		PaidAmount:    decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPaymentMethod)

	_, err = f.svc.UpdatePaymentStatus(ctx, inv.ID.String(), invoicedomain.UpdatePaymentRequest{
		PaymentMethod: invoicedomain.PaymentMethodCash,
		PaidAmount:    decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPaidAmount)
}

func TestUpdateRecomputesTotalsOnDiscount(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 51, "Dhaba", "dhaba@upi")
	ctx := tenant(51)

	inv, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 51)})
	require.NoError(t, err)

	pct := decimal.NewFromInt(10)
	name := "Ravi"
	updated, err := f.svc.Update(ctx, inv.ID.String(), invoicedomain.UpdateInvoiceRequest{
		DiscountPercentage: &pct,
		CustomerName:       &name,
	})
	require.NoError(t, err)

	assert.Equal(t, "Ravi", updated.Customer.Name)
	assert.True(t, decimal.NewFromInt(50).Equal(updated.Discount))
	assert.True(t, decimal.RequireFromString("22.5").Equal(updated.TotalTax))
	assert.True(t, decimal.RequireFromString("472.5").Equal(updated.TotalAmount))
	assert.True(t, decimal.NewFromInt(473).Equal(updated.GrandTotal))
	assert.True(t, decimal.RequireFromString("0.5").Equal(updated.RoundOff))
	assert.Equal(t, "upi://pay?am=473&cu=INR&pa=dhaba%40upi&pn=Dhaba", updated.UPIPaymentLink)

	bad := decimal.NewFromInt(150)
	_, err = f.svc.Update(ctx, inv.ID.String(), invoicedomain.UpdateInvoiceRequest{DiscountPercentage: &bad})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestInvoicesAreScopedToRestaurant(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 61, "Mine", "")
	inv, err := f.svc.Create(tenant(61), invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 61)})
	require.NoError(t, err)

	other := tenant(62)
	_, err = f.svc.GetByID(other, inv.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	notes := "hijack"
	_, err = f.svc.Update(other, inv.ID.String(), invoicedomain.UpdateInvoiceRequest{Notes: &notes})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
	assert.True(t, errs.IsNotFound(err))

	err = f.svc.Delete(other, inv.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	_, err = f.svc.GetByID(tenant(61), "not-an-id")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceID)
}

func TestDeleteInvoice(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 71, "Bistro", "")
	ctx := tenant(71)

	unpaid, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 71)})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, unpaid.ID.String()))

	_, err = f.svc.GetByID(ctx, unpaid.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
	var items int64
	require.NoError(t, f.db.Model(&invoicedomain.Item{}).Where("invoice_id = ?", unpaid.ID).Count(&items).Error)
	assert.Zero(t, items)

	amount := decimal.NewFromInt(525)
	paid, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		OrderID:       f.seedOrder(t, 71),
		PaymentMethod: invoicedomain.PaymentMethodCash,
		PaidAmount:    &amount,
	})
	require.NoError(t, err)
	err = f.svc.Delete(ctx, paid.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrCannotDeletePaidInvoice)
	assert.True(t, errs.IsConflict(err))
}

func TestListInvoices(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 81, "Cafe", "")
	ctx := tenant(81)

	amount := decimal.NewFromInt(525)
	for i := 0; i < 3; i++ {
		req := invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 81)}
		if i == 0 {
			req.PaymentMethod = invoicedomain.PaymentMethodCash
			req.PaidAmount = &amount
		}
		_, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	page, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "INV-202504-0003", page.Invoices[0].InvoiceNumber)
	assert.Len(t, page.Invoices[0].Items, 2)

	next, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, next.Invoices, 1)
	assert.False(t, next.HasMore)
	assert.Equal(t, "INV-202504-0001", next.Invoices[0].InvoiceNumber)

	status := invoicedomain.PaymentStatusUnpaid
	unpaid, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{PaymentStatus: &status})
	require.NoError(t, err)
	assert.Len(t, unpaid.Invoices, 2)

	bogus := invoicedomain.PaymentStatus("void")
	_, err = f.svc.List(ctx, invoicedomain.ListInvoiceRequest{PaymentStatus: &bogus})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPaymentStatus)

	from := issuedAt.Add(30 * time.Second)
	to := issuedAt
	_, err = f.svc.List(ctx, invoicedomain.ListInvoiceRequest{From: &from, To: &to})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidDateRange)

	windowed, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{From: &from})
	require.NoError(t, err)
	assert.Len(t, windowed.Invoices, 2)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 91, "Stats House", "")
	ctx := tenant(91)

	full := decimal.NewFromInt(525)
	part := decimal.NewFromInt(100)
	_, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		OrderID: f.seedOrder(t, 91), PaymentMethod: invoicedomain.PaymentMethodCash, PaidAmount: &full,
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		OrderID: f.seedOrder(t, 91), PaymentMethod: invoicedomain.PaymentMethodUPI, PaidAmount: &part,
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 91)})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, invoicedomain.StatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalInvoices)
	assert.True(t, decimal.NewFromInt(1575).Equal(stats.TotalRevenue), stats.TotalRevenue.String())
	assert.True(t, decimal.NewFromInt(525).Equal(stats.TotalPaid), stats.TotalPaid.String())
	assert.Equal(t, int64(1), stats.StatusBreakdown[invoicedomain.PaymentStatusPartial])
	assert.Equal(t, int64(1), stats.PaymentMethodBreakdown[invoicedomain.PaymentMethodCash].Count)
}

func TestGenerateDocumentAndEmailFlag(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 95, "Spice Route", "spiceroute@upi")
	ctx := tenant(95)

	inv, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{OrderID: f.seedOrder(t, 95), Notes: "Less spicy"})
	require.NoError(t, err)

	doc, err := f.svc.GenerateDocument(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "invoice-spice-route-INV-202504-0001.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF")))

	sent, err := f.svc.MarkEmailSent(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.True(t, sent.EmailSent)
	require.NotNil(t, sent.EmailSentAt)
}

func TestUPIPaymentLinkEscapesParameters(t *testing.T) {
	link := upiPaymentLink("ravi&sons@upi", "Ravi & Sons Cafe+Bar", decimal.RequireFromString("1049.5"), invoicedomain.PaymentStatusPartial)
	assert.Equal(t, "upi://pay?am=1049.5&cu=INR&pa=ravi%26sons%40upi&pn=Ravi%20%26%20Sons%20Cafe%2BBar", link)

	assert.Empty(t, upiPaymentLink("", "Cafe", decimal.NewFromInt(10), invoicedomain.PaymentStatusUnpaid))
	assert.Empty(t, upiPaymentLink("cafe@upi", "Cafe", decimal.NewFromInt(10), invoicedomain.PaymentStatusPaid))
}

func TestListFiltersByPaymentMethods(t *testing.T) {
	f := newFixture(t)
	f.seedRestaurant(t, 85, "Filter Cafe", "")
	ctx := tenant(85)

	amount := decimal.NewFromInt(525)
	for _, method := range []invoicedomain.PaymentMethod{
		invoicedomain.PaymentMethodCash,
		invoicedomain.PaymentMethodCard,
		invoicedomain.PaymentMethodUPI,
	} {
		_, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
			OrderID:       f.seedOrder(t, 85),
			PaymentMethod: method,
			PaidAmount:    &amount,
		})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	page, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{
		PaymentMethods: []invoicedomain.PaymentMethod{invoicedomain.PaymentMethodCash, invoicedomain.PaymentMethodUPI},
	})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 2)
	assert.Equal(t, invoicedomain.PaymentMethodUPI, page.Invoices[0].PaymentMethod)
	assert.Equal(t, invoicedomain.PaymentMethodCash, page.Invoices[1].PaymentMethod)

	_, err = f.svc.List(ctx, invoicedomain.ListInvoiceRequest{
		PaymentMethods: []invoicedomain.PaymentMethod{"barter"},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPaymentMethod)
}
