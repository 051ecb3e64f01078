package handler

import (
	"time"

	"github.com/suteetoe/storefront/internal/model"
)

// Money values are rendered as fixed two-decimal strings, e.g. "25.00".

type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ProductResponse struct {
	ID            uint              `json:"id"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Category      *CategoryResponse `json:"category"`
	Description   string            `json:"description"`
	Price         string            `json:"price"`
	Stock         int               `json:"stock"`
	IsActive      bool              `json:"is_active"`
	ClickCount    int64             `json:"click_count"`
	TrendingScore int64             `json:"trending_score"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func newCategoryResponse(c model.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

func newProductResponse(p model.Product) ProductResponse {
	resp := ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Price:         p.Price.StringFixed(2),
		Stock:         p.Stock,
		IsActive:      p.IsActive,
		ClickCount:    p.ClickCount,
		TrendingScore: p.ClickCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Category != nil {
		cat := newCategoryResponse(*p.Category)
		resp.Category = &cat
	}
	return resp
}

func newProductResponses(products []model.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p))
	}
	return out
}

type OrderItemResponse struct {
	Product         uint    `json:"product"`
	ProductName     string  `json:"product_name"`
	ProductPrice    *string `json:"product_price"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase string  `json:"price_at_purchase"`
}

type OrderResponse struct {
	ID              uint                `json:"id"`
	OrderNumber     string              `json:"order_number"`
	FullName        string              `json:"full_name"`
	Mobile          string              `json:"mobile"`
	AlternateMobile string              `json:"alternate_mobile"`
	Email           *string             `json:"email"`
	Address         string              `json:"address"`
	Landmark        string              `json:"landmark"`
	City            string              `json:"city"`
	Pincode         string              `json:"pincode"`
	Notes           string              `json:"notes"`
	OrderItems      []OrderItemResponse `json:"order_items"`
	TotalAmount     string              `json:"total_amount"`
	PaidAmount      string              `json:"paid_amount"`
	PaymentMethod   string              `json:"payment_method"`
	Status          model.OrderStatus   `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
}

// newOrderResponse renders an order. product_price is the product's current
// price and may differ from price_at_purchase.
func newOrderResponse(o model.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		line := OrderItemResponse{
			Product:         item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase.StringFixed(2),
		}
		if item.Product != nil {
			price := item.Product.Price.StringFixed(2)
			line.ProductName = item.Product.Name
			line.ProductPrice = &price
		}
		items = append(items, line)
	}

	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		FullName:        o.FullName,
		Mobile:          o.Mobile,
		AlternateMobile: o.AlternateMobile,
		Email:           o.Email,
		Address:         o.Address,
		Landmark:        o.Landmark,
		City:            o.City,
		Pincode:         o.Pincode,
		Notes:           o.Notes,
		OrderItems:      items,
		TotalAmount:     o.TotalAmount.StringFixed(2),
		PaidAmount:      o.PaidAmount.StringFixed(2),
		PaymentMethod:   o.PaymentMethod,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
	}
}
