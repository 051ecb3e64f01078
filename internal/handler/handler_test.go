package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/storefront/internal/events"
	"github.com/suteetoe/storefront/internal/middleware"
	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/internal/service"
	"github.com/suteetoe/storefront/internal/storetest"
	"github.com/suteetoe/storefront/pkg/jwtutil"
)

type testServer struct {
	e       *echo.Echo
	catalog *storetest.Catalog
	jwt     *jwtutil.JWTUtil
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	catalog := storetest.NewCatalog()
	orders := storetest.NewOrders(catalog)
	terms := service.PaymentTerms{Amount: decimal.RequireFromString("5.00"), Method: "QR_SCAN"}
	catalogSvc := service.NewCatalogService(catalog, catalog.Categories(), nil)
	orderSvc := service.NewOrderService(orders, catalog, events.NopPublisher{}, terms)
	util := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "handler-test", ExpirationHours: 1})

	e := echo.New()
	e.Use(middleware.RequestIDMiddleware)
	RegisterRoutes(e, Handlers{
		Health:     NewHealthHandler("storefront", nil),
		Products:   NewProductHandler(catalogSvc),
		Categories: NewCategoryHandler(catalogSvc),
		Orders:     NewOrderHandler(orderSvc, terms),
	}, middleware.NewAuth(util))

	return &testServer{e: e, catalog: catalog, jwt: util}
}

func (s *testServer) token(t *testing.T, mobile string, staff bool) string {
	t.Helper()
	tok, err := s.jwt.GenerateToken(1, "someone@example.com", mobile, staff)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *testServer) seed(name, price string, stock int) *model.Product {
	return s.catalog.SeedProduct(model.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	})
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestListProductsEnvelope(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 25; i++ {
		s.seed("Product "+string(rune('A'+i)), "1.00", 1)
	}

	rec := s.do(t, http.MethodGet, "/products?page_size=50", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Links struct {
			Next     *string `json:"next"`
			Previous *string `json:"previous"`
		} `json:"links"`
		Count       int               `json:"count"`
		TotalPages  int               `json:"total_pages"`
		CurrentPage int               `json:"current_page"`
		PageSize    int               `json:"page_size"`
		Results     []ProductResponse `json:"results"`
	}
	decode(t, rec, &page)
	assert.Equal(t, 25, page.Count)
	assert.Equal(t, 20, page.PageSize, "guests keep the default page size")
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Results, 20)
	require.NotNil(t, page.Links.Next)
	assert.Contains(t, *page.Links.Next, "page=2")
	assert.Nil(t, page.Links.Previous)

	rec = s.do(t, http.MethodGet, "/products?page_size=50", "", s.token(t, "", false))
	decode(t, rec, &page)
	assert.Equal(t, 50, page.PageSize)
	assert.Len(t, page.Results, 25)
}

func TestListProductsInvalidPage(t *testing.T) {
	s := newTestServer(t)
	s.seed("Only", "1.00", 1)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/products?page=9", "", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/products?page=abc", "", "").Code)
}

func TestListProductsOrderingFallsBack(t *testing.T) {
	s := newTestServer(t)
	s.seed("Cheap", "1.00", 1)
	s.seed("Dear", "9.00", 1)

	var page struct {
		Results []ProductResponse `json:"results"`
	}
	decode(t, s.do(t, http.MethodGet, "/products?ordering=-price", "", ""), &page)
	assert.Equal(t, "Dear", page.Results[0].Name)

	decode(t, s.do(t, http.MethodGet, "/products?ordering=drop+table", "", ""), &page)
	assert.Equal(t, "Dear", page.Results[0].Name, "newest first")
}

func TestGetProductByIDAndSlug(t *testing.T) {
	s := newTestServer(t)
	p := s.seed("Brass Lamp", "20.00", 3)

	rec := s.do(t, http.MethodGet, "/products/brass-lamp", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got ProductResponse
	decode(t, rec, &got)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "20.00", got.Price)
	assert.Equal(t, int64(1), got.ClickCount)
	assert.Equal(t, got.ClickCount, got.TrendingScore)
	assert.Nil(t, got.Category)

	rec = s.do(t, http.MethodGet, "/products/1", "", "")
	decode(t, rec, &got)
	assert.Equal(t, int64(2), got.ClickCount)

	rec = s.do(t, http.MethodGet, "/products/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Not found."}`, rec.Body.String())
}

func TestTrendingClampsLimit(t *testing.T) {
	s := newTestServer(t)
	s.seed("One", "1.00", 1)
	s.seed("Two", "1.00", 1)

	var got []ProductResponse
	decode(t, s.do(t, http.MethodGet, "/products/trending?limit=0", "", ""), &got)
	assert.Len(t, got, 1)

	decode(t, s.do(t, http.MethodGet, "/products/trending?limit=1000", "", ""), &got)
	assert.Len(t, got, 2)
}

func TestProductWritesRequireStaff(t *testing.T) {
	s := newTestServer(t)
	body := `{"name":"Kettle","price":"12.50"}`

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/products", body, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/products", body, s.token(t, "", false)).Code)

	staff := s.token(t, "", true)
	rec := s.do(t, http.MethodPost, "/products", body, staff)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created ProductResponse
	decode(t, rec, &created)
	assert.Equal(t, "kettle", created.Slug)
	assert.Equal(t, "12.50", created.Price)
	assert.Equal(t, 1, created.Stock)

	rec = s.do(t, http.MethodPost, "/products", body, staff)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"name":["product with this name already exists."]}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/products", `{"name":"  ","price":"0","stock":-2}`, staff)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"name":["This field may not be blank."],
		"price":["Ensure this value is greater than or equal to 0.01."],
		"stock":["Ensure this value is greater than or equal to 0."]
	}`, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/products/1", `{"name":"Steel Kettle"}`, staff)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated ProductResponse
	decode(t, rec, &updated)
	assert.Equal(t, "Steel Kettle", updated.Name)
	assert.Equal(t, "kettle", updated.Slug)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/products/1", "", staff).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/products/1", "", staff).Code)
}

func TestCategoryEndpoints(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, "", true)

	rec := s.do(t, http.MethodPost, "/categories", `{"name":"Kitchen Ware"}`, staff)
	require.Equal(t, http.StatusCreated, rec.Code)
	var cat CategoryResponse
	decode(t, rec, &cat)
	assert.Equal(t, "kitchen-ware", cat.Slug)

	s.catalog.SeedProduct(model.Product{Name: "Pan", Price: decimal.RequireFromString("3.00"), IsActive: true, CategoryID: &cat.ID})

	var page struct {
		Results []ProductResponse `json:"results"`
	}
	decode(t, s.do(t, http.MethodGet, "/products?category=kitchen-ware", "", ""), &page)
	require.Len(t, page.Results, 1)
	require.NotNil(t, page.Results[0].Category)
	assert.Equal(t, "kitchen-ware", page.Results[0].Category.Slug)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodDelete, "/categories/1", "", staff).Code)

	var list []CategoryResponse
	decode(t, s.do(t, http.MethodGet, "/categories", "", ""), &list)
	assert.Len(t, list, 1)
}

func TestListProductsFilters(t *testing.T) {
	s := newTestServer(t)
	books := s.catalog.SeedCategory("Books")
	tools := s.catalog.SeedCategory("Tools")
	garden := s.catalog.SeedCategory("Garden")

	s.catalog.SeedProduct(model.Product{Name: "Field Guide", Description: "Birds of the coast", Price: decimal.RequireFromString("12.00"), IsActive: true, CategoryID: &books.ID})
	s.catalog.SeedProduct(model.Product{Name: "Hammer", Description: "Steel head", Price: decimal.RequireFromString("8.00"), IsActive: true, CategoryID: &tools.ID})
	s.catalog.SeedProduct(model.Product{Name: "Bird Feeder", Description: "Cedar", Price: decimal.RequireFromString("15.00"), IsActive: true, CategoryID: &garden.ID})
	s.catalog.SeedProduct(model.Product{Name: "Trowel", Description: "Hand tool", Price: decimal.RequireFromString("4.00"), IsActive: true, CategoryID: &garden.ID})

	type listPage struct {
		Count   int64             `json:"count"`
		Results []ProductResponse `json:"results"`
	}
	names := func(page listPage) []string {
		out := make([]string, 0, len(page.Results))
		for _, p := range page.Results {
			out = append(out, p.Name)
		}
		return out
	}

	t.Run("repeated category", func(t *testing.T) {
		var page listPage
		rec := s.do(t, http.MethodGet, "/products?category=books&category=tools&ordering=name", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &page)
		assert.EqualValues(t, 2, page.Count)
		assert.Equal(t, []string{"Field Guide", "Hammer"}, names(page))
	})

	t.Run("blank category values are ignored", func(t *testing.T) {
		var page listPage
		decode(t, s.do(t, http.MethodGet, "/products?category=&category=garden&ordering=name", "", ""), &page)
		assert.Equal(t, []string{"Bird Feeder", "Trowel"}, names(page))
	})

	t.Run("comma is part of the slug", func(t *testing.T) {
		var page listPage
		decode(t, s.do(t, http.MethodGet, "/products?category=books,tools", "", ""), &page)
		assert.EqualValues(t, 0, page.Count)
	})

	t.Run("search matches name or description", func(t *testing.T) {
		var page listPage
		decode(t, s.do(t, http.MethodGet, "/products?search=BIRD&ordering=name", "", ""), &page)
		assert.Equal(t, []string{"Bird Feeder", "Field Guide"}, names(page))
	})

	t.Run("search combines with category", func(t *testing.T) {
		var page listPage
		decode(t, s.do(t, http.MethodGet, "/products?search=tool&category=garden&category=tools", "", ""), &page)
		assert.Equal(t, []string{"Trowel"}, names(page))
	})
}

func TestCreateOrder(t *testing.T) {
	s := newTestServer(t)
	a := s.seed("A", "10.00", 5)
	b := s.seed("B", "5.00", 5)

	body := `{"mobile":"9876543210","paid_amount":"500.00","payment_method":"CARD",
		"items":[{"product":1,"quantity":2},{"product":2,"quantity":1}]}`
	rec := s.do(t, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Message     string `json:"message"`
		OrderNumber string `json:"order_number"`
		Total       string `json:"total"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "25.00", created.Total)
	assert.Contains(t, created.Message, "5.00")
	assert.Equal(t, 3, s.catalog.Stock(a.ID))
	assert.Equal(t, 4, s.catalog.Stock(b.ID))

	rec = s.do(t, http.MethodGet, "/orders/"+created.OrderNumber, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var order OrderResponse
	decode(t, rec, &order)
	assert.Equal(t, "5.00", order.PaidAmount)
	assert.Equal(t, "QR_SCAN", order.PaymentMethod)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.DefaultCity, order.City)
	require.Len(t, order.OrderItems, 2)
	assert.Equal(t, "A", order.OrderItems[0].ProductName)
	assert.Equal(t, "10.00", order.OrderItems[0].PriceAtPurchase)

	var mine []OrderResponse
	decode(t, s.do(t, http.MethodGet, "/orders/list", "", s.token(t, "9876543210", false)), &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, created.OrderNumber, mine[0].OrderNumber)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/orders/list", "", "").Code)
}

func TestCreateOrderErrors(t *testing.T) {
	s := newTestServer(t)
	s.seed("A", "10.00", 1)

	rec := s.do(t, http.MethodPost, "/orders", `{"items":[{"product":1,"quantity":2}]}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"items":[{"quantity":["Insufficient stock for this product."]}]}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/orders", `{"items":[]}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"items":["This list may not be empty."]}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/orders", `{"items":[{"product":1},{"product":77}]}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"items":[{},{"product":["Invalid pk \"77\" - object does not exist."]}]}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/orders/ORD-NOPE", "", "").Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	s := newTestServer(t)
	s.seed("A", "10.00", 5)

	rec := s.do(t, http.MethodPost, "/orders", `{"items":[{"product":1}]}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		OrderNumber string `json:"order_number"`
	}
	decode(t, rec, &created)

	target := "/orders/" + created.OrderNumber + "/status"
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPatch, target, `{"status":"shipped"}`, s.token(t, "", false)).Code)

	staff := s.token(t, "", true)
	rec = s.do(t, http.MethodPatch, target, `{"status":"shipped"}`, staff)
	require.Equal(t, http.StatusOK, rec.Code)
	var order OrderResponse
	decode(t, rec, &order)
	assert.Equal(t, model.OrderStatusShipped, order.Status)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPatch, target, `{"status":"lost"}`, staff).Code)
}

func TestCheckAdmin(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/check-admin", "", "").Code)

	rec := s.do(t, http.MethodGet, "/api/auth/check-admin", "", s.token(t, "", true))
	assert.JSONEq(t, `{"is_admin":true}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/auth/check-admin", "", s.token(t, "", false))
	assert.JSONEq(t, `{"is_admin":false}`, rec.Body.String())
}
