package purchases

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/rvstore-backend/internal/history"
	"github.com/angelmondragon/rvstore-backend/internal/ledger"
	productsvc "github.com/angelmondragon/rvstore-backend/internal/products"
	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/angelmondragon/rvstore-backend/pkg/metrics"
	"github.com/angelmondragon/rvstore-backend/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var purchaseTime = time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)

type noMargin struct{}

func (noMargin) DefaultMargin(context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type harness struct {
	client *db.Client
	conn   *gorm.DB
	svc    Service
	reg    *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	reg := prometheus.NewRegistry()

	svc, err := NewService(ServiceParams{
		DB:       client,
		Products: productsvc.NewRepository(conn),
		Ledger:   ledger.NewRepository(conn),
		History:  history.NewRepository(conn),
		Logger:   logger.New(logger.Options{ServiceName: "purchases-test", Output: io.Discard}),
		Metrics:  metrics.NewStoreMetrics(reg),
		MaxCount: 50,
		Now:      func() time.Time { return purchaseTime },
	})
	require.NoError(t, err)
	return &harness{client: client, conn: conn, svc: svc, reg: reg}
}

type rowCounts struct {
	ledger, items, users, versions int64
}

func (h *harness) counts(t *testing.T) rowCounts {
	t.Helper()
	return rowCounts{
		ledger:   dbtest.Count(t, h.conn, &models.LedgerEntry{}),
		items:    dbtest.Count(t, h.conn, &models.ItemHistory{}),
		users:    dbtest.Count(t, h.conn, &models.User{}),
		versions: dbtest.Count(t, h.conn, &models.PriceVersion{}),
	}
}

func (h *harness) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	var user models.User
	require.NoError(t, h.conn.First(&user, userID).Error)
	return user.Balance
}

func (h *harness) stock(t *testing.T, priceID int64) int64 {
	t.Helper()
	var price models.PriceVersion
	require.NoError(t, h.conn.First(&price, priceID).Error)
	return price.Stock
}

func TestCreditAllows(t *testing.T) {
	cases := []struct {
		name    string
		balance int64
		price   int64
		count   int
		want    bool
	}{
		{name: "singleUnitPositiveBalance", balance: 150, price: 200, count: 1, want: true},
		{name: "singleUnitZeroBalance", balance: 0, price: 200, count: 1, want: false},
		{name: "lastUnitMayOverdraw", balance: 201, price: 100, count: 3, want: true},
		{name: "earlierUnitsMustBeCovered", balance: 200, price: 100, count: 3, want: false},
		{name: "freeItemAlwaysAllowed", balance: -1000, price: 0, count: 10, want: true},
		{name: "negativePriceAllowed", balance: -5, price: -1, count: 2, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CreditAllows(tc.balance, tc.price, tc.count))
		})
	}
}

func TestSingleUnitMayOverdraw(t *testing.T) {
	h := newHarness(t)
	user := dbtest.CreateUser(t, h.conn, "alice", 150, enums.UserRoleUser1)
	_, price := dbtest.CreateProduct(t, h.conn, dbtest.ProductSeed{Barcode: "6417700050749", BuyPrice: 150, SellPrice: 200, Stock: 10})

	result, err := h.svc.RecordPurchase(context.Background(), PurchaseInput{Barcode: "6417700050749", UserID: user.ID, Count: 1})
	require.NoError(t, err)

	assert.EqualValues(t, -50, result.AccountBalance)
	assert.EqualValues(t, 9, result.ProductStock)
	require.Len(t, result.Purchases, 1)
	assert.EqualValues(t, 9, result.Purchases[0].StockAfter)
	assert.EqualValues(t, -50, result.Purchases[0].BalanceAfter)
	assert.EqualValues(t, 200, result.Purchases[0].Price)
	assert.True(t, result.Purchases[0].Time.Equal(purchaseTime))

	assert.EqualValues(t, -50, h.balance(t, user.ID))
	assert.EqualValues(t, 9, h.stock(t, price.ID))

	var entries []models.LedgerEntry
	require.NoError(t, h.conn.Where("user_id = ?", user.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.EqualValues(t, -200, entries[0].Delta)
	assert.EqualValues(t, -50, entries[0].BalanceAfter)

	var event models.ItemHistory
	require.NoError(t, h.conn.First(&event, result.Purchases[0].PurchaseID).Error)
	assert.Equal(t, enums.HistoryActionPurchased, event.Action)
	assert.Equal(t, price.ID, event.PriceID)
	require.NotNil(t, event.LedgerEntryID)
	assert.Equal(t, entries[0].ID, *event.LedgerEntryID)
}

func TestMultiUnitPurchase(t *testing.T) {
	h := newHarness(t)
	user := dbtest.CreateUser(t, h.conn, "bob", 250, enums.UserRoleUser1)
	_, price := dbtest.CreateProduct(t, h.conn, dbtest.ProductSeed{Barcode: "500", SellPrice: 100, Stock: 10})
	before := h.counts(t)

	result, err := h.svc.RecordPurchase(context.Background(), PurchaseInput{Barcode: "500", UserID: user.ID, Count: 3})
	require.NoError(t, err)

	assert.EqualValues(t, 7, result.ProductStock)
	assert.EqualValues(t, -50, result.AccountBalance)
	require.Len(t, result.Purchases, 3)
	for i, purchase := range result.Purchases {
		assert.EqualValues(t, 9-i, purchase.StockAfter)
		assert.EqualValues(t, 150-100*int64(i), purchase.BalanceAfter)
		if i > 0 {
			assert.Greater(t, purchase.PurchaseID, result.Purchases[i-1].PurchaseID)
		}
	}

	after := h.counts(t)
	assert.Equal(t, before.ledger+3, after.ledger)
	assert.Equal(t, before.items+3, after.items)
	assert.Equal(t, before.versions, after.versions)
	assert.EqualValues(t, 7, h.stock(t, price.ID))
	assert.EqualValues(t, -50, h.balance(t, user.ID))
}

func TestRejectedPurchaseChangesNothing(t *testing.T) {
	h := newHarness(t)
	user := dbtest.CreateUser(t, h.conn, "carol", 200, enums.UserRoleUser1)
	_, price := dbtest.CreateProduct(t, h.conn, dbtest.ProductSeed{Barcode: "501", SellPrice: 100, Stock: 10})
	before := h.counts(t)

	_, err := h.svc.RecordPurchase(context.Background(), PurchaseInput{Barcode: "501", UserID: user.ID, Count: 3})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 200, details["accountBalance"])

	assert.Equal(t, before, h.counts(t))
	assert.EqualValues(t, 200, h.balance(t, user.ID))
	assert.EqualValues(t, 10, h.stock(t, price.ID))
	assert.Equal(t, float64(1), purchaseCount(t, h.reg, metrics.PurchaseOutcomeInsufficientFunds))
}

func TestStorageFailureMidPurchaseRollsBack(t *testing.T) {
	tests := []struct {
		name  string
		table string
		nth   int64
	}{
		{name: "second purchase event", table: "item_history", nth: 2},
		{name: "third ledger entry", table: "ledger_entries", nth: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			user := dbtest.CreateUser(t, h.conn, "erin", 1000, enums.UserRoleUser1)
			_, price := dbtest.CreateProduct(t, h.conn, dbtest.ProductSeed{Barcode: "503", SellPrice: 100, Stock: 10})
			before := h.counts(t)

			dbtest.FailNthCreate(t, h.conn, tt.table, tt.nth, errors.New("disk full"))

			_, err := h.svc.RecordPurchase(context.Background(), PurchaseInput{Barcode: "503", UserID: user.ID, Count: 3})
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal), "got %v", err)

			assert.Equal(t, before, h.counts(t))
			assert.EqualValues(t, 1000, h.balance(t, user.ID))
			assert.EqualValues(t, 10, h.stock(t, price.ID))
		})
	}
}

func TestStockMayGoNegative(t *testing.T) {
	h := newHarness(t)
	user := dbtest.CreateUser(t, h.conn, "dave", 1000, enums.UserRoleUser2)
	dbtest.CreateProduct(t, h.conn, dbtest.ProductSeed{Barcode: "502", SellPrice: 10, Stock: 1})

	result, err := h.svc.RecordPurchase(context.Background(), PurchaseInput{Barcode: "502", UserID: user.ID, Count: 3})
	require.NoError(t, err)
	assert.EqualValues(t, -2, result.ProductStock)
}

func TestFreeItemWithNegativeBalance(t *testing.T) {
	h := newHarness(t)
	user := dbtest.CreateUser(t, h.conn, "erin", -500, enums.UserRoleUser1)
	dbtest.CreateProduct(t, h.conn, dbtest.ProductSeed{Barcode: "503", SellPrice: 0, Stock: 5})

	result, err := h.svc.RecordPurchase(context.Background(), PurchaseInput{Barcode: "503", UserID: user.ID, Count: 2})
	require.NoError(t, err)
	assert.EqualValues(t, -500, result.AccountBalance)
	assert.EqualValues(t, 3, result.ProductStock)
}

func TestPurchaseErrors(t *testing.T) {
	h := newHarness(t)
	user := dbtest.CreateUser(t, h.conn, "frank", 1000, enums.UserRoleUser1)
	product, _ := dbtest.CreateProduct(t, h.conn, dbtest.ProductSeed{Barcode: "504", SellPrice: 10, Stock: 5})
	require.NoError(t, h.conn.Model(product).Update("deleted", true).Error)

	ctx := context.Background()
	_, err := h.svc.RecordPurchase(ctx, PurchaseInput{Barcode: "404", UserID: user.ID, Count: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.RecordPurchase(ctx, PurchaseInput{Barcode: "504", UserID: user.ID, Count: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.RecordPurchase(ctx, PurchaseInput{Barcode: "504", UserID: user.ID, Count: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.RecordPurchase(ctx, PurchaseInput{Barcode: "504", UserID: user.ID, Count: 51})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Equal(t, float64(2), purchaseCount(t, h.reg, metrics.PurchaseOutcomeNotFound))
}

func TestBalanceMatchesLedgerAfterMixedActivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, h.conn, "gina", 0, enums.UserRoleUser1)
	dbtest.CreateProduct(t, h.conn, dbtest.ProductSeed{Barcode: "505", SellPrice: 120, Stock: 20})
	dbtest.CreateProduct(t, h.conn, dbtest.ProductSeed{Barcode: "506", SellPrice: 35, Stock: 20})

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		DB:      h.client,
		Repo:    ledger.NewRepository(h.conn),
		History: history.NewRepository(h.conn),
		Logger:  logger.New(logger.Options{Output: io.Discard}),
	})
	require.NoError(t, err)

	_, err = ledgerSvc.RecordDeposit(ctx, ledger.DepositInput{UserID: user.ID, Amount: 500})
	require.NoError(t, err)
	_, err = h.svc.RecordPurchase(ctx, PurchaseInput{Barcode: "505", UserID: user.ID, Count: 2})
	require.NoError(t, err)
	_, err = h.svc.RecordPurchase(ctx, PurchaseInput{Barcode: "506", UserID: user.ID, Count: 7})
	require.NoError(t, err)
	_, err = h.svc.RecordPurchase(ctx, PurchaseInput{Barcode: "506", UserID: user.ID, Count: 5})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	rec, err := ledgerSvc.Reconcile(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.EqualValues(t, 500-240-245, rec.Balance)
	assert.Equal(t, 10, rec.Entries)
}

func TestPurchaseHistoryKeepsHistoricalPrice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := dbtest.CreateUser(t, h.conn, "admin", 0, enums.UserRoleAdmin)
	user := dbtest.CreateUser(t, h.conn, "hank", 1000, enums.UserRoleUser1)
	product, _ := dbtest.CreateProduct(t, h.conn, dbtest.ProductSeed{Barcode: "507", BuyPrice: 80, SellPrice: 100, Stock: 5})

	_, err := h.svc.RecordPurchase(ctx, PurchaseInput{Barcode: "507", UserID: user.ID, Count: 1})
	require.NoError(t, err)

	products, err := productsvc.NewService(productsvc.ServiceParams{
		Repo:    productsvc.NewRepository(h.conn),
		DB:      h.client,
		History: history.NewRepository(h.conn),
		Margins: noMargin{},
		Logger:  logger.New(logger.Options{Output: io.Discard}),
	})
	require.NoError(t, err)
	_, err = products.ApplyStockChange(ctx, productsvc.StockChange{
		ProductID: product.ID, BuyPrice: 80, SellPrice: 130, Quantity: 4, ActorID: admin.ID,
	})
	require.NoError(t, err)

	_, err = h.svc.RecordPurchase(ctx, PurchaseInput{Barcode: "507", UserID: user.ID, Count: 1})
	require.NoError(t, err)

	historySvc, err := history.NewService(history.NewRepository(h.conn))
	require.NoError(t, err)
	page, err := historySvc.ListPurchasesByUser(ctx, user.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Purchases, 2)
	assert.EqualValues(t, 130, page.Purchases[0].Price)
	assert.EqualValues(t, 100, page.Purchases[1].Price)
	assert.EqualValues(t, 770, page.Purchases[0].BalanceAfter)
}

func purchaseCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "purchases_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
