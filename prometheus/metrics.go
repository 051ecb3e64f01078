package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthErrorsCounter *prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Product metrics
	ProductOperationsCounter *prometheus.CounterVec

	// Category metrics
	CategoryOperationsCounter *prometheus.CounterVec

	// Inventory metrics
	ProductInventoryGauge    *prometheus.GaugeVec
	StockReservationsCounter *prometheus.CounterVec

	// Product popularity metrics
	ProductViewsCounter *prometheus.CounterVec

	// Slug allocation metrics
	SlugConflictsCounter *prometheus.CounterVec

	// Order metrics
	OrdersCreatedCounter   prometheus.Counter
	OrderStatusCounter     *prometheus.CounterVec
	OrderEventErrorCounter prometheus.Counter

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics with the given name prefix. Only
// the first call registers collectors.
func InitMetrics(prefix string) {
	initOnce.Do(func() {
		register(promauto.With(prometheus.DefaultRegisterer), prefix)
	})
}

func register(factory promauto.Factory, prefix string) {
	HttpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthErrorsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of rejected requests by reason",
		},
		[]string{"reason"},
	)

	DbOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	ProductOperationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_product_operations_total",
			Help: "Total number of product operations",
		},
		[]string{"operation"},
	)

	CategoryOperationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_category_operations_total",
			Help: "Total number of category operations",
		},
		[]string{"operation"},
	)

	ProductInventoryGauge = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_product_inventory",
			Help: "Last observed inventory level for products",
		},
		[]string{"product_id"},
	)

	StockReservationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stock_reservations_total",
			Help: "Stock reservations by outcome",
		},
		[]string{"outcome"},
	)

	ProductViewsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_product_views_total",
			Help: "Total number of product detail views",
		},
		[]string{"product_id"},
	)

	SlugConflictsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_slug_conflicts_total",
			Help: "Slug candidates lost to a concurrent insert",
		},
		[]string{"entity"},
	)

	OrdersCreatedCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_orders_created_total",
			Help: "Total number of orders placed",
		},
	)

	OrderStatusCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_order_status_changes_total",
			Help: "Order status changes by target status",
		},
		[]string{"status"},
	)

	OrderEventErrorCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_order_event_errors_total",
			Help: "Order events that could not be published",
		},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if DbOperationDuration == nil {
			return
		}
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordProductOperation increments the counter for product operations
func RecordProductOperation(operation string) {
	if ProductOperationsCounter != nil {
		ProductOperationsCounter.WithLabelValues(operation).Inc()
	}
}

// RecordCategoryOperation increments the counter for category operations
func RecordCategoryOperation(operation string) {
	if CategoryOperationsCounter != nil {
		CategoryOperationsCounter.WithLabelValues(operation).Inc()
	}
}

// UpdateProductInventory updates the gauge for product inventory
func UpdateProductInventory(productID string, count float64) {
	if ProductInventoryGauge != nil {
		ProductInventoryGauge.WithLabelValues(productID).Set(count)
	}
}

// RecordStockReservation counts a reservation attempt by outcome ("reserved" or "rejected")
func RecordStockReservation(outcome string) {
	if StockReservationsCounter != nil {
		StockReservationsCounter.WithLabelValues(outcome).Inc()
	}
}

// RecordProductView increments the counter for product views
func RecordProductView(productID string) {
	if ProductViewsCounter != nil {
		ProductViewsCounter.WithLabelValues(productID).Inc()
	}
}

// RecordSlugConflict counts a lost slug race
func RecordSlugConflict(entity string) {
	if SlugConflictsCounter != nil {
		SlugConflictsCounter.WithLabelValues(entity).Inc()
	}
}

// RecordOrderCreated counts a placed order
func RecordOrderCreated() {
	if OrdersCreatedCounter != nil {
		OrdersCreatedCounter.Inc()
	}
}

// RecordOrderStatus counts a status change
func RecordOrderStatus(status string) {
	if OrderStatusCounter != nil {
		OrderStatusCounter.WithLabelValues(status).Inc()
	}
}

// RecordOrderEventError counts a failed event publish
func RecordOrderEventError() {
	if OrderEventErrorCounter != nil {
		OrderEventErrorCounter.Inc()
	}
}

// RecordAuthError counts a rejected request
func RecordAuthError(reason string) {
	if AuthErrorsCounter != nil {
		AuthErrorsCounter.WithLabelValues(reason).Inc()
	}
}

// ObserveHTTPRequest records one finished request
func ObserveHTTPRequest(method, path, status string, seconds float64) {
	if HttpRequestsTotal == nil {
		return
	}
	HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}
