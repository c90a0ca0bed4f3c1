package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	FrontendURL    string   `mapstructure:"frontend_url"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// BillingConfig holds the Stripe credentials and checkout wiring.
type BillingConfig struct {
	SecretKey        string `mapstructure:"secret_key"`
	WebhookSecret    string `mapstructure:"webhook_secret"`
	Currency         string `mapstructure:"currency"`
	ResolveTimeoutMS int    `mapstructure:"resolve_timeout_ms"`
	CouponTTLMinutes int    `mapstructure:"coupon_ttl_minutes"`
}

type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	Pepper     string `mapstructure:"pepper"`
	ExpDays    int    `mapstructure:"exp_days"`
	Domain     string `mapstructure:"domain"`
	Secure     bool   `mapstructure:"secure"`
}

type VisitorConfig struct {
	CookieName string `mapstructure:"cookie_name"`
}

type AuthConfig struct {
	Session SessionConfig `mapstructure:"session"`
	Visitor VisitorConfig `mapstructure:"visitor"`
}

// QuotaConfig carries the free-tier limits and the business timezone used
// for daily window boundaries.
type QuotaConfig struct {
	Timezone        string `mapstructure:"timezone"`
	GuestDailyLimit int    `mapstructure:"guest_daily_limit"`
	FreeDailyLimit  int    `mapstructure:"free_daily_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	RequestsPerHour   int `mapstructure:"requests_per_hour"`
	RequestsPerDay    int `mapstructure:"requests_per_day"`
}
