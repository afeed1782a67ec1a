package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	PayPal    PayPalConfig    `json:"paypal"`
	NATS      NATSConfig      `json:"nats"`
	Geocoding GeocodingConfig `json:"geocoding"`
	Mailer    MailerConfig    `json:"mailer"`
	Session   SessionConfig   `json:"session"`
	Search    SearchConfig    `json:"search"`
	Checkout  CheckoutConfig  `json:"checkout"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"dbname"`
	SSLMode        string `json:"sslmode"`
	MigrationsPath string `json:"migrations_path"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type PayPalConfig struct {
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type NATSConfig struct {
	URL string `json:"url"`
}

type GeocodingConfig struct {
	BaseURL   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
}

type MailerConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type SessionConfig struct {
	CartTTLHours int `json:"cart_ttl_hours"`
}

func (s SessionConfig) CartTTL() time.Duration {
	if s.CartTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.CartTTLHours) * time.Hour
}

type SearchConfig struct {
	PageSize int `json:"page_size"`
}

type CheckoutConfig struct {
	BaseCurrency      string `json:"base_currency"`
	SuccessURL        string `json:"success_url"`
	CancelURL         string `json:"cancel_url"`
	StaleAfterMinutes int    `json:"stale_after_minutes"`
}

func (c CheckoutConfig) StaleAfter() time.Duration {
	if c.StaleAfterMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.StaleAfterMinutes) * time.Minute
}

// LoadConfig reads the JSON config file and then overlays secrets from the
// environment (a .env file is honored when present), so credentials stay
// out of the committed config.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, err
	}

	overlayEnv(&config)

	if config.Search.PageSize <= 0 {
		config.Search.PageSize = 8
	}
	if config.Checkout.BaseCurrency == "" {
		config.Checkout.BaseCurrency = "USD"
	}

	return &config, nil
}

func overlayEnv(c *Config) {
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("PAYPAL_CLIENT_ID"); v != "" {
		c.PayPal.ClientID = v
	}
	if v := os.Getenv("PAYPAL_CLIENT_SECRET"); v != "" {
		c.PayPal.ClientSecret = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Mailer.Password = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
}

func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}
