//go:build integration

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/pkg/config"
	"github.com/suteetoe/storefront/pkg/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type StoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *gorm.DB

	products   *ProductRepository
	categories *CategoryRepository
	ledger     *StockLedger
	orders     *OrderRepository
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := database.Open(dsn, &config.DBConfig{MaxOpenConns: 20, LogLevel: logger.Silent})
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(db))
	s.db = db

	s.products = NewProductRepository(db, 0)
	s.categories = NewCategoryRepository(db, 0)
	s.ledger = NewStockLedger(db)
	s.orders = NewOrderRepository(db, s.ledger, model.GenerateOrderNumber)
}

func (s *StoreSuite) TearDownSuite() {
	if s.db != nil {
		_ = database.Close(s.db)
	}
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.T().Logf("Failed to terminate container: %v", err)
		}
	}
}

func (s *StoreSuite) SetupTest() {
	s.Require().NoError(s.db.Exec("TRUNCATE order_items, orders, products, categories RESTART IDENTITY CASCADE").Error)
}

func (s *StoreSuite) newProduct(name, price string, stock int) *model.Product {
	p := &model.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, IsActive: true}
	s.Require().NoError(s.products.Create(s.ctx, p))
	return p
}

func (s *StoreSuite) stockOf(id uint) int {
	var p model.Product
	s.Require().NoError(s.db.First(&p, id).Error)
	return p.Stock
}

func (s *StoreSuite) TestSlugSequence() {
	// distinct names sharing one slug base
	names := []string{"Blue Mug", "Blue Mug!", "Blue  Mug", "blue mug"}
	want := []string{"blue-mug", "blue-mug-1", "blue-mug-2", "blue-mug-3"}
	for i, name := range names {
		p := &model.Product{Name: name, Price: decimal.NewFromInt(1), IsActive: true}
		s.Require().NoError(s.products.Create(s.ctx, p))
		s.Equal(want[i], p.Slug)
	}
}

func (s *StoreSuite) TestSlugConcurrentCreates() {
	const n = 8
	var wg sync.WaitGroup
	slugs := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &model.Product{Name: fmt.Sprintf("Lamp #%d", i), Price: decimal.NewFromInt(1), IsActive: true}
			if s.NoError(s.products.Create(s.ctx, p)) {
				slugs <- p.Slug
			}
		}(i)
	}
	wg.Wait()
	close(slugs)

	seen := map[string]bool{}
	for sl := range slugs {
		s.False(seen[sl], "duplicate slug %s", sl)
		seen[sl] = true
	}
	s.Len(seen, n)
}

func (s *StoreSuite) TestDuplicateProductName() {
	s.newProduct("Unique", "1.00", 1)
	err := s.products.Create(s.ctx, &model.Product{Name: "Unique", Price: decimal.NewFromInt(1)})
	s.ErrorIs(err, ErrDuplicateName)
}

func (s *StoreSuite) TestUpdateNeverChangesSlug() {
	p := s.newProduct("Original", "1.00", 1)
	updated, err := s.products.Update(s.ctx, p.ID, map[string]interface{}{"name": "Renamed", "slug": "hacked"})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Name)
	s.Equal("original", updated.Slug)
}

func (s *StoreSuite) TestReserveConcurrent() {
	p := s.newProduct("Last One", "3.00", 1)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ledger.Reserve(s.ctx, p.ID, 1)
			s.NoError(err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, granted)
	s.Equal(0, s.stockOf(p.ID))
}

func (s *StoreSuite) TestReserveRejectsInactiveAndShort() {
	p := s.newProduct("Shelf", "3.00", 2)

	ok, err := s.ledger.Reserve(s.ctx, p.ID, 3)
	s.NoError(err)
	s.False(ok)

	_, err = s.products.Update(s.ctx, p.ID, map[string]interface{}{"is_active": false})
	s.Require().NoError(err)
	ok, err = s.ledger.Reserve(s.ctx, p.ID, 1)
	s.NoError(err)
	s.False(ok)
	s.Equal(2, s.stockOf(p.ID))
}

func (s *StoreSuite) TestPlaceOrderTotalsAndSnapshot() {
	a := s.newProduct("A", "10.00", 5)
	b := s.newProduct("B", "5.00", 5)

	order := &model.Order{
		FullName:      model.DefaultFullName,
		Mobile:        "9876543210",
		Address:       model.DefaultAddress,
		City:          model.DefaultCity,
		Pincode:       model.DefaultPincode,
		PaidAmount:    decimal.RequireFromString("5.00"),
		PaymentMethod: "QR_SCAN",
		Status:        model.OrderStatusPending,
		Items: []model.OrderItem{
			{ProductID: a.ID, Quantity: 2, PriceAtPurchase: a.Price},
			{ProductID: b.ID, Quantity: 1, PriceAtPurchase: b.Price},
		},
	}
	order.TotalAmount = model.SumLineTotals(order.Items)
	s.Require().NoError(s.orders.Place(s.ctx, order))

	_, err := s.products.Update(s.ctx, a.ID, map[string]interface{}{"price": decimal.RequireFromString("99.00")})
	s.Require().NoError(err)

	stored, err := s.orders.GetByNumber(s.ctx, order.OrderNumber)
	s.Require().NoError(err)
	s.True(stored.TotalAmount.Equal(decimal.RequireFromString("25.00")))
	s.True(stored.PaidAmount.Equal(decimal.RequireFromString("5.00")))
	s.Require().Len(stored.Items, 2)
	s.True(stored.Items[0].PriceAtPurchase.Equal(decimal.RequireFromString("10.00")))
	s.True(stored.Items[0].Product.Price.Equal(decimal.RequireFromString("99.00")))
	s.Equal(3, s.stockOf(a.ID))
	s.Equal(4, s.stockOf(b.ID))

	s.ErrorIs(s.products.Delete(s.ctx, a.ID), ErrProductInUse)
}

func (s *StoreSuite) TestPlaceOrderRollsBackOnShortStock() {
	a := s.newProduct("A", "10.00", 5)
	b := s.newProduct("B", "5.00", 0)

	order := &model.Order{
		PaidAmount: decimal.RequireFromString("5.00"),
		Status:     model.OrderStatusPending,
		Items: []model.OrderItem{
			{ProductID: a.ID, Quantity: 1, PriceAtPurchase: a.Price},
			{ProductID: b.ID, Quantity: 1, PriceAtPurchase: b.Price},
		},
	}
	err := s.orders.Place(s.ctx, order)

	var stockErr *InsufficientStockError
	s.Require().ErrorAs(err, &stockErr)
	s.Equal(1, stockErr.Line)
	s.Equal(5, s.stockOf(a.ID))

	var count int64
	s.Require().NoError(s.db.Model(&model.Order{}).Count(&count).Error)
	s.Zero(count)
}

func (s *StoreSuite) TestPlaceOrderRegeneratesClashingNumber() {
	a := s.newProduct("A", "10.00", 5)
	numbers := []string{"ORD-AAAAAAAAAA", "ORD-AAAAAAAAAA", "ORD-BBBBBBBBBB"}
	next := 0
	repo := NewOrderRepository(s.db, s.ledger, func() string {
		n := numbers[next]
		next++
		return n
	})

	newOrder := func() *model.Order {
		return &model.Order{
			PaidAmount: decimal.RequireFromString("5.00"),
			Status:     model.OrderStatusPending,
			Items:      []model.OrderItem{{ProductID: a.ID, Quantity: 1, PriceAtPurchase: a.Price}},
		}
	}

	first := newOrder()
	s.Require().NoError(repo.Place(s.ctx, first))
	second := newOrder()
	s.Require().NoError(repo.Place(s.ctx, second))

	s.Equal("ORD-AAAAAAAAAA", first.OrderNumber)
	s.Equal("ORD-BBBBBBBBBB", second.OrderNumber)
	s.Equal(3, s.stockOf(a.ID))
}

func (s *StoreSuite) TestOrderStatusAndListing() {
	a := s.newProduct("A", "10.00", 5)
	place := func(mobile string) *model.Order {
		o := &model.Order{
			Mobile:     mobile,
			PaidAmount: decimal.RequireFromString("5.00"),
			Status:     model.OrderStatusPending,
			Items:      []model.OrderItem{{ProductID: a.ID, Quantity: 1, PriceAtPurchase: a.Price}},
		}
		s.Require().NoError(s.orders.Place(s.ctx, o))
		return o
	}
	older := place("111")
	place("222")
	newer := place("111")

	list, err := s.orders.ListByMobile(s.ctx, "111")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.OrderNumber, list[0].OrderNumber)
	s.Equal(older.OrderNumber, list[1].OrderNumber)

	previous, err := s.orders.UpdateStatus(s.ctx, older.OrderNumber, model.OrderStatusDelivered)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusPending, previous)

	_, err = s.orders.UpdateStatus(s.ctx, "ORD-NOPE", model.OrderStatusShipped)
	s.ErrorIs(err, ErrOrderNotFound)
}

func (s *StoreSuite) TestCategoryProtectOnDelete() {
	cat := &model.Category{Name: "Garden"}
	s.Require().NoError(s.categories.Create(s.ctx, cat))
	s.Equal("garden", cat.Slug)

	p := &model.Product{Name: "Hose", Price: decimal.NewFromInt(7), IsActive: true, CategoryID: &cat.ID}
	s.Require().NoError(s.products.Create(s.ctx, p))

	s.ErrorIs(s.categories.Delete(s.ctx, cat.ID), ErrCategoryInUse)

	s.Require().NoError(s.products.Delete(s.ctx, p.ID))
	s.NoError(s.categories.Delete(s.ctx, cat.ID))
	s.ErrorIs(s.categories.Delete(s.ctx, cat.ID), ErrCategoryNotFound)
}

func (s *StoreSuite) TestListFiltersAndTrending() {
	cat := &model.Category{Name: "Kitchen"}
	s.Require().NoError(s.categories.Create(s.ctx, cat))

	mug := &model.Product{Name: "Mug 100%", Description: "stoneware", Price: decimal.NewFromInt(8), IsActive: true, CategoryID: &cat.ID}
	s.Require().NoError(s.products.Create(s.ctx, mug))
	s.newProduct("Plate", "12.00", 1)
	hidden := &model.Product{Name: "Hidden Mug", Price: decimal.NewFromInt(1), IsActive: false}
	s.Require().NoError(s.products.Create(s.ctx, hidden))

	results, count, err := s.products.List(s.ctx, ProductFilter{Search: "mug", ActiveOnly: true, Ordering: DefaultProductOrdering, Limit: 20})
	s.Require().NoError(err)
	s.EqualValues(1, count)
	s.Require().Len(results, 1)
	s.Require().NotNil(results[0].Category)
	s.Equal("kitchen", results[0].Category.Slug)

	_, count, err = s.products.List(s.ctx, ProductFilter{Search: "100%", ActiveOnly: true, Ordering: DefaultProductOrdering, Limit: 20})
	s.Require().NoError(err)
	s.EqualValues(1, count, "percent is matched literally")

	_, count, err = s.products.List(s.ctx, ProductFilter{CategorySlugs: []string{"kitchen"}, ActiveOnly: true, Ordering: "-price", Limit: 20})
	s.Require().NoError(err)
	s.EqualValues(1, count)

	for i := 0; i < 3; i++ {
		clicks, err := s.products.IncrementClicks(s.ctx, mug.ID)
		s.Require().NoError(err)
		s.EqualValues(i+1, clicks)
	}

	trending, err := s.products.Trending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(trending, 2)
	s.Equal(mug.ID, trending[0].ID)
	s.EqualValues(3, trending[0].ClickCount)
}
