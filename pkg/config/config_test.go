package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "5.00", cfg.Shop.NominalPayment.StringFixed(2))
	assert.Equal(t, "QR_SCAN", cfg.Shop.PaymentMethod)
	assert.Equal(t, 10000, cfg.Shop.MaxSlugAttempts)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SHOP_NOMINAL_PAYMENT", "7.50")
	t.Setenv("SHOP_TRENDING_CACHE_TTL", "1m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("DB_LOG_LEVEL", "silent")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "7.50", cfg.Shop.NominalPayment.StringFixed(2))
	assert.Equal(t, time.Minute, cfg.Shop.TrendingCacheTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
}

func TestLoadRejectsBadNominalPayment(t *testing.T) {
	t.Setenv("SHOP_NOMINAL_PAYMENT", "five")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", c.GetDSN())
}
