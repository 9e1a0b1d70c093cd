package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Log       LogConfig
	Inventory InventoryConfig
	Analytics AnalyticsConfig
	Optimizer OptimizerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// InventoryConfig holds default reorder parameters applied to records that
// have not been tuned by the optimizer yet
type InventoryConfig struct {
	DefaultReorderPoint    int64
	DefaultReorderQuantity int64
	AllowPartialAllocation bool
}

// AnalyticsConfig holds demand analytics defaults
type AnalyticsConfig struct {
	WindowDays     int
	DeadStockDays  int
	SlowMovingDays int
}

// OptimizerConfig holds stock optimizer defaults
type OptimizerConfig struct {
	WindowDays      int
	LeadTimeDays    int
	ServiceLevel    float64
	OrderingCost    float64
	HoldingCostRate float64
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with BACKOFFICE_ prefix (e.g., BACKOFFICE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Inventory: InventoryConfig{
			DefaultReorderPoint:    v.GetInt64("inventory.default_reorder_point"),
			DefaultReorderQuantity: v.GetInt64("inventory.default_reorder_quantity"),
			AllowPartialAllocation: v.GetBool("inventory.allow_partial_allocation"),
		},
		Analytics: AnalyticsConfig{
			WindowDays:     v.GetInt("analytics.window_days"),
			DeadStockDays:  v.GetInt("analytics.dead_stock_days"),
			SlowMovingDays: v.GetInt("analytics.slow_moving_days"),
		},
		Optimizer: OptimizerConfig{
			WindowDays:      v.GetInt("optimizer.window_days"),
			LeadTimeDays:    v.GetInt("optimizer.lead_time_days"),
			ServiceLevel:    v.GetFloat64("optimizer.service_level"),
			OrderingCost:    v.GetFloat64("optimizer.ordering_cost"),
			HoldingCostRate: v.GetFloat64("optimizer.holding_cost_rate"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "backoffice"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "backoffice"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Inventory.DefaultReorderPoint == 0 {
		cfg.Inventory.DefaultReorderPoint = 10
	}
	if cfg.Inventory.DefaultReorderQuantity == 0 {
		cfg.Inventory.DefaultReorderQuantity = 50
	}
	if cfg.Analytics.WindowDays == 0 {
		cfg.Analytics.WindowDays = 90
	}
	if cfg.Analytics.DeadStockDays == 0 {
		cfg.Analytics.DeadStockDays = 180
	}
	if cfg.Analytics.SlowMovingDays == 0 {
		cfg.Analytics.SlowMovingDays = 90
	}
	if cfg.Optimizer.WindowDays == 0 {
		cfg.Optimizer.WindowDays = 90
	}
	if cfg.Optimizer.LeadTimeDays == 0 {
		cfg.Optimizer.LeadTimeDays = 7
	}
	if cfg.Optimizer.ServiceLevel == 0 {
		cfg.Optimizer.ServiceLevel = 0.95
	}
	if cfg.Optimizer.OrderingCost == 0 {
		cfg.Optimizer.OrderingCost = 50.0
	}
	if cfg.Optimizer.HoldingCostRate == 0 {
		cfg.Optimizer.HoldingCostRate = 0.25
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Optimizer.ServiceLevel <= 0 || c.Optimizer.ServiceLevel >= 1 {
		return fmt.Errorf("optimizer.service_level must be between 0 and 1 exclusive, got %f", c.Optimizer.ServiceLevel)
	}
	if c.Analytics.SlowMovingDays > c.Analytics.DeadStockDays {
		return fmt.Errorf("analytics.slow_moving_days (%d) cannot exceed analytics.dead_stock_days (%d)",
			c.Analytics.SlowMovingDays, c.Analytics.DeadStockDays)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
