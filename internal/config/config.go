package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"power-price-level/internal/level"
	"power-price-level/internal/logging"
	"power-price-level/internal/rules"
	"power-price-level/internal/sensor"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Host     HostConfig     `mapstructure:"host"`
	Sensor   SensorConfig   `mapstructure:"sensor"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Levels   LevelsConfig   `mapstructure:"levels"`
	Export   ExportConfig   `mapstructure:"export"`

	rules    rules.Config
	location *time.Location
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Timezone    string `mapstructure:"timezone"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	RetentionDays   int           `mapstructure:"retention_days"`
}

// WatcherConfig governs how often the source entity is checked for changes.
type WatcherConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
}

// HostConfig points at the home automation state store.
type HostConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	SourceEntity   string        `mapstructure:"source_entity"`
	PriceEntity    string        `mapstructure:"price_entity"`
	LevelEntity    string        `mapstructure:"level_entity"`
}

// SensorConfig controls how the derived sensors are presented.
type SensorConfig struct {
	Name     string `mapstructure:"name"`
	Currency string `mapstructure:"currency"`
	Language string `mapstructure:"language"`
}

// PricingConfig holds grid surcharges in major currency units per kWh.
type PricingConfig struct {
	GridDay        float64 `mapstructure:"grid_day"`
	GridNight      float64 `mapstructure:"grid_night"`
	Additional     float64 `mapstructure:"additional"`
	GridNightStart int     `mapstructure:"grid_night_start"`
	GridNightEnd   int     `mapstructure:"grid_night_end"`
}

// LevelsConfig holds the price level rules.
type LevelsConfig struct {
	CheapPrice        float64 `mapstructure:"cheap_price"`
	NightHourStart    int     `mapstructure:"night_hour_start"`
	NightHourEnd      int     `mapstructure:"night_hour_end"`
	DayHourEnd        int     `mapstructure:"day_hour_end"`
	CheapHours        int     `mapstructure:"cheap_hours"`
	ExpensiveHours    int     `mapstructure:"expensive_hours"`
	CheapHoursNight   int     `mapstructure:"cheap_hours_night"`
	CheapHoursDay     int     `mapstructure:"cheap_hours_day"`
	CheapHoursEvening int     `mapstructure:"cheap_hours_evening"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	ChartWidth  int `mapstructure:"chart_width"`
	ChartHeight int `mapstructure:"chart_height"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("POWERPRICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "powerprice")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.timezone", "Europe/Oslo")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("watcher.interval", "1m")
	v.SetDefault("watcher.align_to_bucket", true)
	v.SetDefault("watcher.advisory_lock_key", int64(0x70706c76))
	v.SetDefault("watcher.startup_delay", "0s")
	v.SetDefault("watcher.run_on_start", true)

	v.SetDefault("host.base_url", "http://homeassistant.local:8123")
	v.SetDefault("host.token", "")
	v.SetDefault("host.request_timeout", "10s")
	v.SetDefault("host.user_agent", "powerprice/1.0")
	v.SetDefault("host.source_entity", "sensor.nordpool_kwh_oslo_nok_3_10_025")
	v.SetDefault("host.price_entity", "sensor.power_price")
	v.SetDefault("host.level_entity", "sensor.power_price_level")

	v.SetDefault("sensor.name", "Power Price")
	v.SetDefault("sensor.currency", sensor.DefaultCurrency)
	v.SetDefault("sensor.language", level.DefaultLanguage)

	v.SetDefault("pricing.grid_day", 0.0)
	v.SetDefault("pricing.grid_night", 0.0)
	v.SetDefault("pricing.additional", 0.0)
	v.SetDefault("pricing.grid_night_start", 22)
	v.SetDefault("pricing.grid_night_end", 6)

	v.SetDefault("levels.cheap_price", 0.0)
	v.SetDefault("levels.night_hour_start", 22)
	v.SetDefault("levels.night_hour_end", 6)
	v.SetDefault("levels.day_hour_end", 15)
	v.SetDefault("levels.cheap_hours", 5)
	v.SetDefault("levels.expensive_hours", 5)
	v.SetDefault("levels.cheap_hours_night", 2)
	v.SetDefault("levels.cheap_hours_day", 2)
	v.SetDefault("levels.cheap_hours_evening", 2)

	v.SetDefault("export.chart_width", 1280)
	v.SetDefault("export.chart_height", 720)

	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.retention_days", 400)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.ErrorUnused = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			decimalCommaHookFunc(),
		)
	}
}

// decimalCommaHookFunc accepts money values written as "0,4512" or "1 000,5".
func decimalCommaHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Float64 {
			return data, nil
		}
		return ParseAmount(data.(string))
	}
}

// ParseAmount parses a monetary value in major currency units, accepting a
// decimal comma and space separated thousands.
func ParseAmount(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if cleaned == "" {
		return 0, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(cleaned, ",", "."))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

// Validate performs sanity checks and builds the rule set.
func (c *Config) Validate() error {
	if c.Watcher.Interval <= 0 {
		return fmt.Errorf("watcher.interval must be greater than zero")
	}
	if c.Host.SourceEntity == "" {
		return fmt.Errorf("host.source_entity must be configured")
	}
	if c.Host.PriceEntity == "" || c.Host.LevelEntity == "" {
		return fmt.Errorf("host.price_entity and host.level_entity must be configured")
	}
	if c.Database.RetentionDays < 0 {
		return fmt.Errorf("database.retention_days must not be negative")
	}
	if c.Export.ChartWidth <= 0 || c.Export.ChartHeight <= 0 {
		return fmt.Errorf("export chart dimensions must be greater than zero")
	}

	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	c.location = loc

	c.Sensor.Currency = sensor.NormalizeCurrency(c.Sensor.Currency)
	c.Sensor.Language = level.LanguageCode(c.Sensor.Language)

	ruleSet, err := rules.New(rules.Options{
		CheapPriceThreshold: c.Levels.CheapPrice,
		NightHourStart:      c.Levels.NightHourStart,
		NightHourEnd:        c.Levels.NightHourEnd,
		DayHourEnd:          c.Levels.DayHourEnd,
		CheapHoursCount:     c.Levels.CheapHours,
		ExpensiveHoursCount: c.Levels.ExpensiveHours,
		CheapHoursNight:     c.Levels.CheapHoursNight,
		CheapHoursDay:       c.Levels.CheapHoursDay,
		CheapHoursEvening:   c.Levels.CheapHoursEvening,
		GridDayRate:         c.Pricing.GridDay,
		GridNightRate:       c.Pricing.GridNight,
		AdditionalRate:      c.Pricing.Additional,
		GridNightStart:      c.Pricing.GridNightStart,
		GridNightEnd:        c.Pricing.GridNightEnd,
		Language:            c.Sensor.Language,
		Currency:            c.Sensor.Currency,
	})
	if err != nil {
		return err
	}
	c.rules = ruleSet
	return nil
}

// Rules returns the validated rule set. Only meaningful after Validate.
func (c *Config) Rules() rules.Config {
	return c.rules
}

// Location returns the local time zone the hourly series is indexed in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}
