package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is applied by envconfig to unexported struct paths; every
// variable below names its env key explicitly so the prefix stays visible.
const EnvPrefix = "BLITZ"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Catalog      CatalogConfig
	Shipping     ShippingConfig
	Render       RenderConfig
	Rehost       RehostConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BLITZ_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"BLITZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLITZ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN             string        `envconfig:"BLITZ_DB_DSN" default:"blitz.db"`
	Driver          string        `envconfig:"BLITZ_DB_DRIVER" default:"sqlite"`
	MaxOpenConns    int           `envconfig:"BLITZ_DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"BLITZ_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"BLITZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLITZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BLITZ_REDIS_URL"`
	Address      string        `envconfig:"BLITZ_REDIS_ADDR"`
	Password     string        `envconfig:"BLITZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLITZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLITZ_REDIS_POOL_SIZE" default:"5"`
	MinIdleConns int           `envconfig:"BLITZ_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"BLITZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLITZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLITZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all; the
// rehost cache is skipped entirely when it was not.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BLITZ_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BLITZ_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BLITZ_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	ReportBucket  string `envconfig:"BLITZ_GCS_REPORT_BUCKET" required:"true"`
	ImageBucket   string `envconfig:"BLITZ_GCS_IMAGE_BUCKET"`
	CatalogBucket string `envconfig:"BLITZ_GCS_CATALOG_BUCKET"`
	ReportPrefix  string `envconfig:"BLITZ_GCS_REPORT_PREFIX" default:"pdfs/"`
	ImagePrefix   string `envconfig:"BLITZ_GCS_IMAGE_PREFIX" default:"images/"`
}

// Buckets default to the report bucket when not set separately, matching a
// single-bucket deployment.
func (g GCSConfig) ImageBucketName() string {
	if g.ImageBucket != "" {
		return g.ImageBucket
	}
	return g.ReportBucket
}

func (g GCSConfig) CatalogBucketName() string {
	if g.CatalogBucket != "" {
		return g.CatalogBucket
	}
	return g.ReportBucket
}

type CatalogConfig struct {
	ObjectName   string `envconfig:"BLITZ_CATALOG_OBJECT_NAME" default:"liquidationblitzcatalog.csv"`
	Currency     string `envconfig:"BLITZ_CATALOG_CURRENCY" default:"USD"`
	Availability string `envconfig:"BLITZ_CATALOG_AVAILABILITY" default:"in stock"`
	Condition    string `envconfig:"BLITZ_CATALOG_CONDITION" default:"New"`
	MaxImages    int    `envconfig:"BLITZ_CATALOG_MAX_IMAGES" default:"10"`
}

type ShippingConfig struct {
	RatePerKg     float64 `envconfig:"BLITZ_SHIPPING_RATE_PER_KG" default:"15.50"`
	MinChargeKg   float64 `envconfig:"BLITZ_SHIPPING_MIN_KG" default:"25.0"`
	LbsPerPallet  float64 `envconfig:"BLITZ_SHIPPING_LBS_PER_PALLET" default:"750.0"`
	LbsPerUnitEst float64 `envconfig:"BLITZ_SHIPPING_LBS_PER_UNIT" default:"2.0"`
}

type RenderConfig struct {
	GotenbergURL string        `envconfig:"BLITZ_GOTENBERG_URL" default:"http://localhost:3000"`
	Timeout      time.Duration `envconfig:"BLITZ_RENDER_TIMEOUT" default:"30s"`
}

type RehostConfig struct {
	FetchTimeout time.Duration `envconfig:"BLITZ_REHOST_FETCH_TIMEOUT" default:"10s"`
	CacheTTL     time.Duration `envconfig:"BLITZ_REHOST_CACHE_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BLITZ_AUTO_MIGRATE" default:"true"`
}
