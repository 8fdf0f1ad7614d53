package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Env            string
	LogLevel       string
	CORSOrigin     string
	RequestTimeout time.Duration

	StoreDriver       string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	PostgresConnStr   string
	RedisURL          string

	JWTSecret string
	TokenTTL  time.Duration

	FirebaseCredentialsPath string

	BlobEndpoint  string
	BlobAccessKey string
	BlobSecretKey string
	BlobBucket    string
	BlobUseSSL    bool
	BlobPublicURL string
}

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Load reads the environment, after loading a .env file when one exists.
// The boolean reports whether a .env file was found.
func Load() (*Config, bool) {
	found := godotenv.Load() == nil

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,

		StoreDriver:       getEnv("STORE_DRIVER", StoreMongo),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "storyhive"),
		MongoTransactions: getEnvBool("MONGO_TRANSACTIONS", false),
		PostgresConnStr:   getEnv("POSTGRES_CONN_STR", ""),
		RedisURL:          getEnv("REDIS_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", "supersecretjwtkey"),
		TokenTTL:  time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),

		BlobEndpoint:  getEnv("BLOB_ENDPOINT", ""),
		BlobAccessKey: getEnv("BLOB_ACCESS_KEY", ""),
		BlobSecretKey: getEnv("BLOB_SECRET_KEY", ""),
		BlobBucket:    getEnv("BLOB_BUCKET", "storyhive"),
		BlobUseSSL:    getEnvBool("BLOB_USE_SSL", false),
		BlobPublicURL: getEnv("BLOB_PUBLIC_URL", ""),
	}, found
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
