package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type ClientCred struct {
	ID      string   `koanf:"id"`
	Secret  string   `koanf:"secret"`
	Perms   []string `koanf:"perms"`
	Enabled bool     `koanf:"enabled"`
}

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
	} `koanf:"redis"`

	Rabbit struct {
		URL string `koanf:"url"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers     []string `koanf:"brokers"`
		TopicStatus string   `koanf:"topic_status"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
		Clients   []ClientCred  `koanf:"clients"`
	} `koanf:"security"`

	Paykeeper struct {
		BaseURL  string `koanf:"base_url"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
		Secret   string `koanf:"secret"`
	} `koanf:"paykeeper"`

	Delivery struct {
		URL       string  `koanf:"url"`
		APIKey    string  `koanf:"api_key"`
		OriginLat float64 `koanf:"origin_lat"`
		OriginLon float64 `koanf:"origin_lon"`
	} `koanf:"delivery"`

	Telegram struct {
		BotKey string `koanf:"bot_key"`
		ChatID string `koanf:"chat_id"`
	} `koanf:"telegram"`

	Orders struct {
		// StrictProducts rejects carts referencing unknown products instead
		// of silently dropping them from pricing.
		StrictProducts bool   `koanf:"strict_products"`
		WebhookPrefix  string `koanf:"webhook_prefix"`
	} `koanf:"orders"`
}

// Load reads base.yaml, overlays the per-environment yaml, then applies
// ORDERAPI_-prefixed environment variables (nested keys joined with __).
func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// optional: allow missing env overlay for local runs
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// e.g. ORDERAPI_MYSQL__DSN, ORDERAPI_PAYKEEPER__SECRET
	if err := k.Load(env.Provider("ORDERAPI_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "ORDERAPI_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn required")
	}
	if c.Paykeeper.BaseURL == "" || c.Paykeeper.Secret == "" {
		return fmt.Errorf("paykeeper.base_url and paykeeper.secret required")
	}
	if c.Orders.WebhookPrefix == "" {
		return fmt.Errorf("orders.webhook_prefix required")
	}
	return nil
}
