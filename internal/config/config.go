package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Document store
	StoreBackend        string
	StoreFallback       bool
	StoreConnectTimeout time.Duration
	SeedFixtures        bool

	MongoURI    string
	MongoDBName string

	// Postgres (JSONB document backend + system log sink)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret       string
	JWTAlgorithm    string
	JWTAccessExpiry time.Duration
	BcryptCost      int

	// Email verification
	VerificationBackend string
	VerificationTTL     time.Duration

	RedisAddr string
	RedisPass string
	RedisDB   int

	SMTPHost      string
	SMTPPort      int
	EmailUser     string
	EmailPassword string
	FromEmail     string

	// Uploads
	UploadDir      string
	MaxUploadBytes int64

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string
	LogLevel    string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		StoreBackend:        getEnv("STORE_BACKEND", "memory"),
		StoreFallback:       parseBool(getEnv("STORE_FALLBACK", "true"), true),
		StoreConnectTimeout: parseDuration(getEnv("STORE_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		SeedFixtures:        parseBool(getEnv("SEED_FIXTURES", "true"), true),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "skin_cancer"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "skin_cancer"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTAlgorithm:    getEnv("JWT_ALGORITHM", "HS256"),
		JWTAccessExpiry: parseDuration(getEnv("JWT_ACCESS_EXPIRY", "30m"), 30*time.Minute),
		BcryptCost:      parseInt(getEnv("BCRYPT_COST", "10"), 10),

		VerificationBackend: getEnv("VERIFICATION_BACKEND", "memory"),
		VerificationTTL:     parseDuration(getEnv("VERIFICATION_TTL", "10m"), 10*time.Minute),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),
		RedisDB:   parseInt(getEnv("REDIS_DB", "0"), 0),

		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      parseInt(getEnv("SMTP_PORT", "587"), 587),
		EmailUser:     getEnv("EMAIL_USER", ""),
		EmailPassword: getEnv("EMAIL_PASSWORD", ""),
		FromEmail:     getEnv("FROM_EMAIL", ""),

		UploadDir:      getEnv("UPLOAD_DIR", "static"),
		MaxUploadBytes: int64(parseInt(getEnv("MAX_UPLOAD_BYTES", "10000000"), 10_000_000)),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost,http://localhost:4200"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// Sender is the From address for outgoing mail.
func (c *Config) Sender() string {
	if c.FromEmail != "" {
		return c.FromEmail
	}
	return c.EmailUser
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(s string, fallback bool) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}
