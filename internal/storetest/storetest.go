// Package storetest provides in-memory stores for service and handler tests.
package storetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/internal/repository"
	"github.com/suteetoe/storefront/internal/slug"
)

var errSlugTaken = errors.New("slug taken")

// Catalog holds products and categories. The zero value is not usable; call NewCatalog.
type Catalog struct {
	mu         sync.Mutex
	products   map[uint]*model.Product
	categories map[uint]*model.Category
	nextID     uint
	clock      time.Time
}

func NewCatalog() *Catalog {
	return &Catalog{
		products:   map[uint]*model.Product{},
		categories: map[uint]*model.Category{},
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (c *Catalog) tick() time.Time {
	c.clock = c.clock.Add(time.Second)
	return c.clock
}

// Categories returns a store view over the category half of the catalog.
func (c *Catalog) Categories() *CategoryStore {
	return &CategoryStore{c: c}
}

// SeedProduct stores p as-is, assigning an id and slug when missing.
func (c *Catalog) SeedProduct(p model.Product) *model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	p.ID = c.nextID
	if p.Slug == "" {
		p.Slug = slug.Slugify(p.Name)
	}
	p.CreatedAt = c.tick()
	p.UpdatedAt = p.CreatedAt
	c.products[p.ID] = &p
	copied := p
	return &copied
}

// SeedCategory stores a category named name with a plain slug.
func (c *Catalog) SeedCategory(name string) *model.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	cat := &model.Category{ID: c.nextID, Name: name, Slug: slug.Slugify(name)}
	c.categories[cat.ID] = cat
	copied := *cat
	return &copied
}

// Stock returns the current stock of a product.
func (c *Catalog) Stock(id uint) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Stock
}

func (c *Catalog) slugTaken(candidate string, categories bool) bool {
	if categories {
		for _, cat := range c.categories {
			if cat.Slug == candidate {
				return true
			}
		}
		return false
	}
	for _, p := range c.products {
		if p.Slug == candidate {
			return true
		}
	}
	return false
}

func (c *Catalog) allocator(categories bool) *slug.Allocator {
	prober := slug.ProberFunc(func(_ context.Context, candidate string) (bool, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.slugTaken(candidate, categories), nil
	})
	return slug.NewAllocator(prober, func(err error) bool { return errors.Is(err, errSlugTaken) }, slug.DefaultMaxAttempts)
}

func (c *Catalog) withCategory(p model.Product) model.Product {
	p.Category = nil
	if p.CategoryID != nil {
		if cat, ok := c.categories[*p.CategoryID]; ok {
			copied := *cat
			p.Category = &copied
		}
	}
	return p
}

func (c *Catalog) Create(ctx context.Context, product *model.Product) error {
	_, err := c.allocator(false).Allocate(ctx, product.Name, func(_ context.Context, candidate string) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.slugTaken(candidate, false) {
			return errSlugTaken
		}
		for _, p := range c.products {
			if p.Name == product.Name {
				return repository.ErrDuplicateName
			}
		}
		c.nextID++
		row := *product
		row.ID = c.nextID
		row.Slug = candidate
		row.CreatedAt = c.tick()
		row.UpdatedAt = row.CreatedAt
		c.products[row.ID] = &row
		*product = row
		return nil
	})
	return err
}

func (c *Catalog) NameTaken(_ context.Context, name string, exceptID uint) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.Name == name && p.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (c *Catalog) Update(_ context.Context, id uint, changes map[string]interface{}) (*model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	for column, value := range changes {
		switch column {
		case "name":
			p.Name = value.(string)
		case "description":
			p.Description = value.(string)
		case "price":
			p.Price = value.(decimal.Decimal)
		case "stock":
			p.Stock = value.(int)
		case "is_active":
			p.IsActive = value.(bool)
		case "category_id":
			if value == nil {
				p.CategoryID = nil
			} else {
				cid := value.(uint)
				p.CategoryID = &cid
			}
		}
	}
	p.UpdatedAt = c.tick()
	out := c.withCategory(*p)
	return &out, nil
}

func (c *Catalog) Delete(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(c.products, id)
	return nil
}

func (c *Catalog) GetByID(_ context.Context, id uint, activeOnly bool) (*model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok || (activeOnly && !p.IsActive) {
		return nil, repository.ErrProductNotFound
	}
	out := c.withCategory(*p)
	return &out, nil
}

func (c *Catalog) GetBySlug(_ context.Context, productSlug string) (*model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.Slug == productSlug && p.IsActive {
			out := c.withCategory(*p)
			return &out, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (c *Catalog) FindByIDs(_ context.Context, ids []uint) (map[uint]model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[uint]model.Product{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

// List supports search, category and the name, price and click_count orderings.
// Any other ordering falls back to newest first.
func (c *Catalog) List(_ context.Context, filter repository.ProductFilter) ([]model.Product, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []model.Product
	for _, p := range c.products {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(p.Name), needle) && !strings.Contains(strings.ToLower(p.Description), needle) {
				continue
			}
		}
		if len(filter.CategorySlugs) > 0 {
			withCat := c.withCategory(*p)
			if withCat.Category == nil || !contains(filter.CategorySlugs, withCat.Category.Slug) {
				continue
			}
		}
		matched = append(matched, c.withCategory(*p))
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch filter.Ordering {
		case "name":
			return a.Name < b.Name
		case "-name":
			return a.Name > b.Name
		case "price":
			return a.Price.LessThan(b.Price)
		case "-price":
			return a.Price.GreaterThan(b.Price)
		case "click_count":
			return a.ClickCount < b.ClickCount
		case "-click_count":
			return a.ClickCount > b.ClickCount
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})

	total := int64(len(matched))
	start := min(filter.Offset, len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

func (c *Catalog) Trending(ctx context.Context, limit int) ([]model.Product, error) {
	products, _, err := c.List(ctx, repository.ProductFilter{Ordering: "-click_count", ActiveOnly: true, Limit: limit})
	return products, err
}

func (c *Catalog) IncrementClicks(_ context.Context, id uint) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	p.ClickCount++
	return p.ClickCount, nil
}

// Reserve mirrors the conditional decrement of the stock ledger.
func (c *Catalog) Reserve(_ context.Context, id uint, quantity int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok || !p.IsActive || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	return true, nil
}

func (c *Catalog) release(id uint, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		p.Stock += quantity
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

type CategoryStore struct {
	c *Catalog
}

func (s *CategoryStore) List(_ context.Context) ([]model.Category, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	out := make([]model.Category, 0, len(s.c.categories))
	for _, cat := range s.c.categories {
		out = append(out, *cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *CategoryStore) GetByID(_ context.Context, id uint) (*model.Category, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	cat, ok := s.c.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	out := *cat
	return &out, nil
}

func (s *CategoryStore) Create(ctx context.Context, category *model.Category) error {
	_, err := s.c.allocator(true).Allocate(ctx, category.Name, func(_ context.Context, candidate string) error {
		s.c.mu.Lock()
		defer s.c.mu.Unlock()
		if s.c.slugTaken(candidate, true) {
			return errSlugTaken
		}
		for _, cat := range s.c.categories {
			if cat.Name == category.Name {
				return repository.ErrDuplicateName
			}
		}
		s.c.nextID++
		row := *category
		row.ID = s.c.nextID
		row.Slug = candidate
		s.c.categories[row.ID] = &row
		*category = row
		return nil
	})
	return err
}

func (s *CategoryStore) Delete(_ context.Context, id uint) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if _, ok := s.c.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	for _, p := range s.c.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			return repository.ErrCategoryInUse
		}
	}
	delete(s.c.categories, id)
	return nil
}

// Orders stores orders and reserves stock against a Catalog.
type Orders struct {
	mu      sync.Mutex
	catalog *Catalog
	orders  []*model.Order
	nextID  uint

	// PlaceErr, when set, is returned by Place after stock is released.
	PlaceErr error
}

func NewOrders(catalog *Catalog) *Orders {
	return &Orders{catalog: catalog}
}

func (o *Orders) Place(ctx context.Context, order *model.Order) error {
	reserved := make([]model.OrderItem, 0, len(order.Items))
	rollback := func() {
		for _, item := range reserved {
			o.catalog.release(item.ProductID, item.Quantity)
		}
	}
	for i, item := range order.Items {
		ok, err := o.catalog.Reserve(ctx, item.ProductID, item.Quantity)
		if err != nil {
			rollback()
			return err
		}
		if !ok {
			rollback()
			return &repository.InsufficientStockError{Line: i, ProductID: item.ProductID, Quantity: item.Quantity}
		}
		reserved = append(reserved, item)
	}
	if o.PlaceErr != nil {
		rollback()
		return o.PlaceErr
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	order.ID = o.nextID
	if order.OrderNumber == "" {
		order.OrderNumber = model.GenerateOrderNumber()
	}
	order.CreatedAt = o.catalog.tickLocked()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	stored.Items = append([]model.OrderItem(nil), order.Items...)
	o.orders = append(o.orders, &stored)
	return nil
}

func (c *Catalog) tickLocked() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick()
}

func (o *Orders) withProducts(order model.Order) *model.Order {
	items := make([]model.OrderItem, len(order.Items))
	for i, item := range order.Items {
		if p, err := o.catalog.GetByID(context.Background(), item.ProductID, false); err == nil {
			item.Product = p
		}
		items[i] = item
	}
	order.Items = items
	return &order
}

func (o *Orders) GetByNumber(_ context.Context, number string) (*model.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, order := range o.orders {
		if order.OrderNumber == number {
			return o.withProducts(*order), nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (o *Orders) ListByMobile(_ context.Context, mobile string) ([]model.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []model.Order
	for i := len(o.orders) - 1; i >= 0; i-- {
		if o.orders[i].Mobile == mobile {
			out = append(out, *o.withProducts(*o.orders[i]))
		}
	}
	return out, nil
}

func (o *Orders) UpdateStatus(_ context.Context, number string, status model.OrderStatus) (model.OrderStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, order := range o.orders {
		if order.OrderNumber == number {
			previous := order.Status
			order.Status = status
			return previous, nil
		}
	}
	return "", repository.ErrOrderNotFound
}
