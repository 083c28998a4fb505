package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppPort string
	AppEnv  string
	DBDSN   string

	JWTSecret          string
	JWTExpiresMin      int
	VerifyExpiresMin   int
	ResetExpiresMin    int
	AutoMigrate        bool
	UploadDir          string
	CORSOrigins        string
	FrontendBaseURL    string
	ShutdownTimeoutSec int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GoogleClientID string
	GoogleSecret   string
	GoogleRedirect string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	LogLevel string
	LogJSON  bool
}

func Load() Config {
	return Config{
		AppPort: get("APP_PORT", "8080"),
		AppEnv:  get("APP_ENV", "development"),
		DBDSN:   must("DB_DSN"),

		JWTSecret:          must("JWT_SECRET"),
		JWTExpiresMin:      getInt("JWT_EXPIRES_MIN", 1440),
		VerifyExpiresMin:   getInt("VERIFY_TOKEN_EXPIRES_MIN", 1440),
		ResetExpiresMin:    getInt("RESET_TOKEN_EXPIRES_MIN", 60),
		AutoMigrate:        getBool("AUTO_MIGRATE", false),
		UploadDir:          get("UPLOAD_DIR", "./uploads"),
		CORSOrigins:        get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),
		FrontendBaseURL:    get("FRONTEND_BASE_URL", "http://localhost:3000"),
		ShutdownTimeoutSec: getInt("SHUTDOWN_TIMEOUT_SEC", 10),

		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		GoogleClientID: get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:   get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect: get("GOOGLE_REDIRECT_URL", ""),

		SMTPHost: get("SMTP_HOST", ""),
		SMTPPort: getInt("SMTP_PORT", 587),
		SMTPUser: get("SMTP_USER", ""),
		SMTPPass: get("SMTP_PASS", ""),
		MailFrom: get("MAIL_FROM", "no-reply@localhost"),

		LogLevel: get("LOG_LEVEL", "info"),
		LogJSON:  getBool("LOG_JSON", false),
	}
}

// Production reports whether internal error details must be hidden.
func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func getInt(k string, def int) int {
	n, err := strconv.Atoi(get(k, ""))
	if err != nil {
		return def
	}
	return n
}

func getBool(k string, def bool) bool {
	b, err := strconv.ParseBool(get(k, ""))
	if err != nil {
		return def
	}
	return b
}
