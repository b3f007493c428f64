package config

import (
	"net/http"
	"os"
	"time"

	"urbansetu/model"
	"urbansetu/utils"
)

type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

type SessionConfig struct {
	TTL           time.Duration
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	TouchInterval time.Duration
	Registry      string // memory or redis
	Limits        map[model.Role]int
}

type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
	GeoLookupURL   string
}

type AppConfig struct {
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Session  SessionConfig
	Storage  StorageConfig
	Mail     MailConfig
	Server   ServerConfig
}

// RequiredEnvVars must be present outside of GO_ENV=test.
var RequiredEnvVars = []string{
	"MONGO_URI",
	"MONGO_DB",
	"REDIS_URL",
	"JWT_SECRET_KEY",
	"PORT",
}

func Load() AppConfig {
	env := utils.GetEnvAsString("APP_ENV", "development")
	logFormat := "console"
	if env == "production" {
		logFormat = "json"
	}

	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" && utils.IsTestEnv() {
		secret = "test_secret_key"
	}

	return AppConfig{
		Database: LoadDatabaseConfig(),
		Redis: RedisConfig{
			URL: utils.GetEnvAsString("REDIS_URL", "redis://localhost:6379/0"),
		},
		JWT: JWTConfig{
			Secret:     secret,
			AccessTTL:  utils.GetEnvAsDuration("JWT_EXPIRATION_TIME", 15*time.Minute),
			RefreshTTL: utils.GetEnvAsDuration("REFRESH_TOKEN_EXPIRATION_TIME", 7*24*time.Hour),
			Issuer:     utils.GetEnvAsString("JWT_ISSUER", "urbansetu"),
		},
		Session: LoadSessionConfig(),
		Storage: StorageConfig{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    utils.GetEnvAsString("S3_REGION", "auto"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PublicURL: os.Getenv("S3_PUBLIC_URL"),
		},
		Mail: MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     utils.GetEnvAsInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     utils.GetEnvAsString("SMTP_FROM", "UrbanSetu <no-reply@urbansetu.app>"),
		},
		Server: ServerConfig{
			Port:           utils.GetEnvAsString("PORT", "8080"),
			Env:            env,
			AllowedOrigins: utils.GetEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			LogLevel:       utils.GetEnvAsString("LOG_LEVEL", "info"),
			LogFormat:      utils.GetEnvAsString("LOG_FORMAT", logFormat),
			GeoLookupURL:   utils.GetEnvAsString("GEO_LOOKUP_URL", "https://ipapi.co/%s/json/"),
		},
	}
}

// LoadSessionConfig reads the session knobs; role caps default to 5/2/1.
func LoadSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:           utils.GetEnvAsDuration("SESSION_DURATION", 7*24*time.Hour),
		IdleTimeout:   utils.GetEnvAsDuration("SESSION_IDLE_TIMEOUT", 48*time.Hour),
		SweepInterval: utils.GetEnvAsDuration("SESSION_SWEEP_INTERVAL", 15*time.Minute),
		TouchInterval: utils.GetEnvAsDuration("SESSION_TOUCH_INTERVAL", time.Minute),
		Registry:      utils.GetEnvAsString("SESSION_REGISTRY", "memory"),
		Limits: map[model.Role]int{
			model.RoleUser:      utils.GetEnvAsInt("SESSION_LIMIT_USER", 5),
			model.RoleAdmin:     utils.GetEnvAsInt("SESSION_LIMIT_ADMIN", 2),
			model.RoleRootAdmin: utils.GetEnvAsInt("SESSION_LIMIT_ROOTADMIN", 1),
		},
	}
}

func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// CookieSameSite is None in production (cross-site SPA) and Lax otherwise.
func (s ServerConfig) CookieSameSite() http.SameSite {
	if s.IsProduction() {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// CheckRequired logs each required variable and returns the missing ones.
func CheckRequired() []string {
	var missing []string
	for _, key := range RequiredEnvVars {
		if os.Getenv(key) == "" {
			utils.Warn().Str("var", key).Msg("not set")
			missing = append(missing, key)
			continue
		}
		utils.Debug().Str("var", key).Msg("set")
	}
	return missing
}
