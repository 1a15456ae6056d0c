package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Gateway      GatewayConfig
	Pricing      PricingConfig
	Policy       PolicyConfig
	Catalog      CatalogConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Policy.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARBUILD_APP_ENV" required:"true"`
	Port         string `envconfig:"CARBUILD_APP_PORT" default:"8080"`
	PartsPort    string `envconfig:"CARBUILD_PARTSAPI_PORT" default:"8000"`
	LogLevel     string `envconfig:"CARBUILD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARBUILD_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated list of allowed browser origins.
	CORSOrigins []string `envconfig:"CARBUILD_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// GatewayConfig points the storefront at the remote catalog/pricing/order services.
type GatewayConfig struct {
	BaseURL string        `envconfig:"CARBUILD_GATEWAY_BASE_URL" default:"http://localhost:8000/api"`
	Timeout time.Duration `envconfig:"CARBUILD_GATEWAY_TIMEOUT" default:"10s"`
}

type PricingConfig struct {
	DebounceDelay         time.Duration `envconfig:"CARBUILD_PRICING_DEBOUNCE" default:"500ms"`
	RequestTimeout        time.Duration `envconfig:"CARBUILD_PRICING_REQUEST_TIMEOUT" default:"10s"`
	FreeShippingThreshold string        `envconfig:"CARBUILD_PRICING_FREE_SHIPPING_THRESHOLD" default:"200"`
	ShippingFee           string        `envconfig:"CARBUILD_PRICING_SHIPPING_FEE" default:"25"`
}

type PolicyConfig struct {
	MaxQuantityDefault int    `envconfig:"CARBUILD_POLICY_MAX_QUANTITY" default:"4"`
	MaxQuantityChassis int    `envconfig:"CARBUILD_POLICY_MAX_QUANTITY_CHASSIS" default:"1"`
	ChassisKeyword     string `envconfig:"CARBUILD_POLICY_CHASSIS_KEYWORD" default:"chassi"`
}

func (p PolicyConfig) validate() error {
	if p.MaxQuantityDefault < 1 || p.MaxQuantityChassis < 1 {
		return fmt.Errorf("%s and %s must be at least 1", EnvPolicyMaxQuantity, EnvPolicyMaxChassis)
	}
	if strings.TrimSpace(p.ChassisKeyword) == "" {
		return fmt.Errorf("%s must not be blank", EnvPolicyChassisKeyword)
	}
	return nil
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"CARBUILD_CATALOG_CACHE_TTL" default:"5m"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARBUILD_DB_DSN"`
	Driver string `envconfig:"CARBUILD_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CARBUILD_DB_HOST"`
	Port     int    `envconfig:"CARBUILD_DB_PORT" default:"5432"`
	User     string `envconfig:"CARBUILD_DB_USER"`
	Password string `envconfig:"CARBUILD_DB_PASSWORD"`
	Name     string `envconfig:"CARBUILD_DB_NAME"`
	SSLMode  string `envconfig:"CARBUILD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARBUILD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARBUILD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARBUILD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARBUILD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Configured reports whether enough settings exist to open a database.
func (db DBConfig) Configured() bool {
	return db.DSN != ""
}

type RedisConfig struct {
	URL          string        `envconfig:"CARBUILD_REDIS_URL"`
	Address      string        `envconfig:"CARBUILD_REDIS_ADDR"`
	Password     string        `envconfig:"CARBUILD_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARBUILD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARBUILD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARBUILD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARBUILD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARBUILD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARBUILD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured. Redis is optional for every binary.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	UseSQLite      bool `envconfig:"CARBUILD_USE_SQLITE" default:"false"`
	AutoMigrate    bool `envconfig:"CARBUILD_AUTO_MIGRATE" default:"false"`
	LegacyCheckout bool `envconfig:"CARBUILD_FEATURE_LEGACY_CHECKOUT" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = DefaultSQLiteDSN
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}
	if db.Host == "" && db.User == "" && db.Name == "" {
		// no database configured; only the parts API requires one
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartsEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
