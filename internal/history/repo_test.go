package history

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/pagination"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func int64Ptr(v int64) *int64 { return &v }

func seedPurchase(t *testing.T, conn *gorm.DB, user *models.User, productID, priceID int64, at time.Time, price, stockAfter int64) models.ItemHistory {
	t.Helper()
	user.Balance -= price
	entry := models.LedgerEntry{UserID: user.ID, Time: at, BalanceAfter: user.Balance, Delta: -price}
	require.NoError(t, conn.Create(&entry).Error)
	event := models.ItemHistory{
		Time:          at,
		Action:        enums.HistoryActionPurchased,
		UserID:        user.ID,
		ProductID:     productID,
		StockAfter:    stockAfter,
		PriceID:       priceID,
		LedgerEntryID: int64Ptr(entry.ID),
	}
	require.NoError(t, conn.Create(&event).Error)
	return event
}

func TestListPurchasesDenormalizesHistoricalPrice(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	conn := client.DB()

	user := dbtest.CreateUser(t, conn, "alice", 1000, enums.UserRoleUser1)
	product, price := dbtest.CreateProduct(t, conn, dbtest.ProductSeed{
		Barcode: "6415600501811", Name: "Cola", BuyPrice: 100, SellPrice: 150, Stock: 10, ActorID: user.ID,
	})

	base := time.Now().UTC().Truncate(time.Second)
	first := seedPurchase(t, conn, user, product.ID, price.ID, base, 150, 9)

	// retire the version and sell once more at a new price
	end := base.Add(time.Minute)
	require.NoError(t, conn.Model(price).Updates(map[string]any{"end_time": end, "stock": 0}).Error)
	next := models.PriceVersion{ProductID: product.ID, BuyPrice: 120, SellPrice: 200, Stock: 9, StartTime: end, UserID: user.ID}
	require.NoError(t, conn.Create(&next).Error)
	second := seedPurchase(t, conn, user, product.ID, next.ID, end.Add(time.Second), 200, 8)

	repo := NewRepository(conn)
	rows, err := repo.ListPurchases(ctx, PurchaseFilter{}, nil, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, second.ID, rows[0].PurchaseID)
	require.EqualValues(t, 200, rows[0].Price)
	require.EqualValues(t, 650, rows[0].BalanceAfter)
	require.EqualValues(t, 8, rows[0].StockAfter)
	require.EqualValues(t, 120, rows[0].Product.BuyPrice)

	require.Equal(t, first.ID, rows[1].PurchaseID)
	require.EqualValues(t, 150, rows[1].Price)
	require.EqualValues(t, 850, rows[1].BalanceAfter)
	require.EqualValues(t, 100, rows[1].Product.BuyPrice)
	require.EqualValues(t, 0, rows[1].Product.Stock)
	require.Equal(t, "Cola", rows[1].Product.Name)
	require.Equal(t, "Uncategorized", rows[1].Product.Category.Description)
	require.Equal(t, "alice", rows[1].User.Username)
	require.Equal(t, enums.UserRoleUser1, rows[1].User.Role)
}

func TestListPurchasesFilters(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	conn := client.DB()

	alice := dbtest.CreateUser(t, conn, "alice", 1000, enums.UserRoleUser1)
	bob := dbtest.CreateUser(t, conn, "bob", 1000, enums.UserRoleUser1)
	cola, colaPrice := dbtest.CreateProduct(t, conn, dbtest.ProductSeed{Barcode: "1001", SellPrice: 100, Stock: 5})
	chips, chipsPrice := dbtest.CreateProduct(t, conn, dbtest.ProductSeed{Barcode: "1002", SellPrice: 50, Stock: 5})

	now := time.Now().UTC()
	seedPurchase(t, conn, alice, cola.ID, colaPrice.ID, now, 100, 4)
	bobs := seedPurchase(t, conn, bob, chips.ID, chipsPrice.ID, now, 50, 4)
	seedPurchase(t, conn, bob, cola.ID, colaPrice.ID, now, 100, 3)

	repo := NewRepository(conn)

	byUser, err := repo.ListPurchases(ctx, PurchaseFilter{UserID: bob.ID}, nil, 0)
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	byBarcode, err := repo.ListPurchases(ctx, PurchaseFilter{Barcode: "1001"}, nil, 0)
	require.NoError(t, err)
	require.Len(t, byBarcode, 2)

	byID, err := repo.ListPurchases(ctx, PurchaseFilter{PurchaseID: bobs.ID, UserID: alice.ID}, nil, 0)
	require.NoError(t, err)
	require.Empty(t, byID)
}

func TestServicePaginatesPurchases(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	conn := client.DB()

	user := dbtest.CreateUser(t, conn, "alice", 1000, enums.UserRoleUser1)
	product, price := dbtest.CreateProduct(t, conn, dbtest.ProductSeed{Barcode: "1001", SellPrice: 10, Stock: 10})

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedPurchase(t, conn, user, product.ID, price.ID, now, 10, int64(9-i))
	}

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	first, err := svc.ListPurchasesByUser(ctx, user.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Purchases, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListPurchasesByUser(ctx, user.ID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Purchases, 2)
	require.Less(t, second.Purchases[0].PurchaseID, first.Purchases[1].PurchaseID)

	third, err := svc.ListPurchasesByUser(ctx, user.ID, pagination.Params{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Purchases, 1)
	require.Empty(t, third.NextCursor)
}

func TestServiceNotFound(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)

	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	_, err = svc.FindPurchase(ctx, PurchaseFilter{PurchaseID: 42})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.FindDeposit(ctx, DepositFilter{DepositID: 42})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.ListDepositsByUser(ctx, 999, pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.ListPurchasesByProduct(ctx, "404", pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.ListPurchases(ctx, PurchaseFilter{}, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListDeposits(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	conn := client.DB()

	user := dbtest.CreateUser(t, conn, "carol", 4279, enums.UserRoleUser2)
	at := time.Now().UTC()
	entry := models.LedgerEntry{UserID: user.ID, Time: at, BalanceAfter: 6650, Delta: 2371}
	require.NoError(t, conn.Create(&entry).Error)
	repo := NewRepository(conn)
	require.NoError(t, repo.CreateUserEvent(ctx, &models.UserHistory{
		Time:          at,
		Action:        enums.HistoryActionDeposited,
		UserID:        user.ID,
		TargetUserID:  user.ID,
		LedgerEntryID: int64Ptr(entry.ID),
	}))

	svc, err := NewService(repo)
	require.NoError(t, err)

	page, err := svc.ListDepositsByUser(ctx, user.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Deposits, 1)

	deposit := page.Deposits[0]
	require.EqualValues(t, 2371, deposit.Amount)
	require.EqualValues(t, 6650, deposit.BalanceAfter)
	require.Equal(t, "carol", deposit.User.Username)

	found, err := svc.FindDeposit(ctx, DepositFilter{DepositID: deposit.DepositID, UserID: user.ID})
	require.NoError(t, err)
	require.Equal(t, deposit.DepositID, found.DepositID)
}

func TestPurchaseWithoutProduct(t *testing.T) {
	p := Purchase{PurchaseID: 7, Price: 150, BalanceAfter: 10, StockAfter: 3, User: UserSnapshot{UserID: 2}}
	got := p.WithoutProduct()
	require.Equal(t, ProductPurchase{PurchaseID: 7, Price: 150, StockAfter: 3, User: UserSnapshot{UserID: 2}}, got)
}
