package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	Log       LogConfig       `mapstructure:"log"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Expiry    ExpiryConfig    `mapstructure:"expiry"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	SiteName string `mapstructure:"site_name"`
	SiteURL  string `mapstructure:"site_url"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TemplatesDir string        `mapstructure:"templates_dir"`
	StaticDir    string        `mapstructure:"static_dir"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type SessionConfig struct {
	Name   string `mapstructure:"name"`
	Secret string `mapstructure:"secret"`
	MaxAge int    `mapstructure:"max_age"` // seconds
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MembershipPlan is one purchasable membership period.
type MembershipPlan struct {
	ID     string `mapstructure:"-"`
	Months int    `mapstructure:"months"`
	Cost   int    `mapstructure:"cost"`
}

type PricingConfig struct {
	ListingCost       int                       `mapstructure:"listing_cost"`
	TopAddonCost      int                       `mapstructure:"top_addon_cost"`
	FeaturedAddonCost int                       `mapstructure:"featured_addon_cost"`
	ListingLifetime   time.Duration             `mapstructure:"listing_lifetime"`
	MembershipPlans   map[string]MembershipPlan `mapstructure:"membership_plans"`
}

type ExpiryConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // 0 disables the sweeper
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// DefaultPlans mirrors the price list of the portal.
func DefaultPlans() map[string]MembershipPlan {
	return map[string]MembershipPlan{
		"1month":   {ID: "1month", Months: 1, Cost: 120},
		"3months":  {ID: "3months", Months: 3, Cost: 300},
		"5months":  {ID: "5months", Months: 5, Cost: 560},
		"12months": {ID: "12months", Months: 12, Cost: 1000},
	}
}

// Default returns a configuration usable for local development and tests.
func Default() *Config {
	return &Config{
		App:      AppConfig{Env: "development", SiteName: "TextilServer", SiteURL: "http://localhost:8080"},
		Server:   ServerConfig{Port: "8080", ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second, TemplatesDir: "./web/templates", StaticDir: "./web/static"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "textilserver.db", MaxOpenConns: 10},
		Session:  SessionConfig{Name: "textilserver_session", Secret: "secret_key_change_me", MaxAge: 7200},
		Log:      LogConfig{Level: "info"},
		Pricing: PricingConfig{
			ListingCost:       20,
			TopAddonCost:      50,
			FeaturedAddonCost: 30,
			ListingLifetime:   30 * 24 * time.Hour,
			MembershipPlans:   DefaultPlans(),
		},
		RateLimit: RateLimitConfig{RPS: 1, Burst: 5},
	}
}

// Load reads .env, an optional config.yaml and the environment.
// A missing file is not an error; invalid values are.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	// DATABASE_URL and PORT are the names used by most hosting platforms.
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("session.secret", "SESSION_SECRET")
	_ = v.BindEnv("app.env", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Pricing.MembershipPlans) == 0 {
		cfg.Pricing.MembershipPlans = DefaultPlans()
	}
	for id, p := range cfg.Pricing.MembershipPlans {
		p.ID = id
		cfg.Pricing.MembershipPlans[id] = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("app.env", d.App.Env)
	v.SetDefault("app.site_name", d.App.SiteName)
	v.SetDefault("app.site_url", d.App.SiteURL)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.templates_dir", d.Server.TemplatesDir)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("session.name", d.Session.Name)
	v.SetDefault("session.secret", d.Session.Secret)
	v.SetDefault("session.max_age", d.Session.MaxAge)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("pricing.listing_cost", d.Pricing.ListingCost)
	v.SetDefault("pricing.top_addon_cost", d.Pricing.TopAddonCost)
	v.SetDefault("pricing.featured_addon_cost", d.Pricing.FeaturedAddonCost)
	v.SetDefault("pricing.listing_lifetime", d.Pricing.ListingLifetime)
	v.SetDefault("expiry.sweep_interval", d.Expiry.SweepInterval)
	v.SetDefault("ratelimit.rps", d.RateLimit.RPS)
	v.SetDefault("ratelimit.burst", d.RateLimit.Burst)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database dsn is empty")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("config: session max_age must be positive")
	}
	if c.IsProduction() && (c.Session.Secret == "" || c.Session.Secret == Default().Session.Secret) {
		return errors.New("config: session secret must be set in production")
	}
	if c.Pricing.ListingCost <= 0 || c.Pricing.TopAddonCost < 0 || c.Pricing.FeaturedAddonCost < 0 {
		return errors.New("config: listing prices must be positive")
	}
	if c.Pricing.ListingLifetime <= 0 {
		return errors.New("config: listing lifetime must be positive")
	}
	for id, p := range c.Pricing.MembershipPlans {
		if p.Months <= 0 || p.Cost <= 0 {
			return fmt.Errorf("config: membership plan %q needs positive months and cost", id)
		}
	}
	if c.Expiry.SweepInterval < 0 {
		return errors.New("config: sweep interval must not be negative")
	}
	return nil
}

// Plan resolves a membership plan by id.
func (p PricingConfig) Plan(id string) (MembershipPlan, bool) {
	plan, ok := p.MembershipPlans[id]
	if ok {
		plan.ID = id
	}
	return plan, ok
}

// Plans returns every plan ordered by duration.
func (p PricingConfig) Plans() []MembershipPlan {
	plans := make([]MembershipPlan, 0, len(p.MembershipPlans))
	for id, plan := range p.MembershipPlans {
		plan.ID = id
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Months < plans[j].Months })
	return plans
}
