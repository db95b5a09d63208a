package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds environment-driven configuration. It is built once at process
// start and handed to the components that need it.
type Config struct {
	Port           string
	Env            string
	DatabaseURL    string
	DBDriver       string
	DBMaxOpenConns int
	UploadDir      string
	UploadURL      string
	JWTSecret      string
	CORSOrigins    string
	LoginURL       string
	LogLevel       string
	Mail           Mail
}

// Mail is the outbound SMTP configuration used for credential emails.
type Mail struct {
	Host               string
	Port               int
	Secure             bool
	Username           string
	Password           string
	From               string
	Timeout            time.Duration
	InsecureSkipVerify bool
	Debug              bool
}

// Configured reports whether credentials are present. Without them no mail is
// attempted at all.
func (m Mail) Configured() bool {
	return m.Username != "" && m.Password != ""
}

// RequireTLS reports whether a plaintext session must be upgraded with
// STARTTLS before authenticating.
func (m Mail) RequireTLS() bool {
	return !m.Secure && m.Port == 587
}

// Load reads configuration from environment variables. A .env file, if any,
// is expected to have been loaded into the environment already.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("DB_DRIVER", "pgx")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("UPLOAD_URL_PREFIX", "/uploads")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("APP_LOGIN_URL", "http://localhost:5173/login")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_TIMEOUT", "10s")

	_ = v.BindEnv("ENV", "ENV", "APP_ENV", "NODE_ENV")
	_ = v.BindEnv("SMTP_SECURE")

	cfg := &Config{
		Port:           v.GetString("PORT"),
		Env:            strings.ToLower(strings.TrimSpace(v.GetString("ENV"))),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		DBDriver:       v.GetString("DB_DRIVER"),
		DBMaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		UploadURL:      strings.TrimRight(v.GetString("UPLOAD_URL_PREFIX"), "/"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		CORSOrigins:    v.GetString("CORS_ORIGINS"),
		LoginURL:       v.GetString("APP_LOGIN_URL"),
		LogLevel:       v.GetString("LOG_LEVEL"),
	}

	port := v.GetInt("SMTP_PORT")
	secure := port == 465
	if v.IsSet("SMTP_SECURE") && v.GetString("SMTP_SECURE") != "" {
		secure = v.GetBool("SMTP_SECURE")
	}
	user := v.GetString("SMTP_USER")
	from := v.GetString("SMTP_FROM")
	if from == "" && user != "" {
		from = fmt.Sprintf("Medicare <%s>", user)
	}
	cfg.Mail = Mail{
		Host:               v.GetString("SMTP_HOST"),
		Port:               port,
		Secure:             secure,
		Username:           user,
		Password:           v.GetString("SMTP_PASS"),
		From:               from,
		Timeout:            v.GetDuration("SMTP_TIMEOUT"),
		InsecureSkipVerify: v.GetBool("SMTP_TLS_INSECURE"),
		Debug:              v.GetBool("SMTP_DEBUG"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate refuses configurations that would silently run without a real
// database or with throwaway token keys in production.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be \"pgx\" or \"postgres\", got %q", c.DBDriver)
	}
	if c.IsProduction() {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
	}
	if c.Mail.Port <= 0 {
		return fmt.Errorf("SMTP_PORT must be positive, got %d", c.Mail.Port)
	}
	return nil
}
