package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string
	ServiceName string

	// Logging
	LogLevel  string
	LogPretty bool

	// Document store configuration
	DocumentStoreBackend string
	DocumentCollection   string
	DocumentProjectID    string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// DynamoDB configuration
	AWSRegion        string
	DynamoDBEndpoint string

	// Redis configuration
	RedisAddress     string
	RateLimitBackend string

	// Optional bearer-token identity
	JWTSecret string

	// Provider credentials
	SecretSource string
	SSMPrefix    string

	// Advice configuration
	AdviceTimeout          time.Duration
	AdviceSimulatedLatency time.Duration
	AdviceRateLimit        int
	AdviceRateWindow       time.Duration

	FrontendAddress string
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	SecretSourceEnv = "env"
	SecretSourceSSM = "ssm"
)

// Load reads configuration from a .env file (if any) and the environment.
func Load() *Config {
	loadDotEnv()

	return &Config{
		ServerPort:             getEnv("PORT", "8787"),
		Environment:            getEnv("ENV", "development"),
		ServiceName:            getEnv("SERVICE_NAME", "scenario-writing-lab-functions"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogPretty:              getBool("LOG_PRETTY", false),
		DocumentStoreBackend:   strings.ToLower(getEnv("DOCUMENT_STORE_BACKEND", BackendMemory)),
		DocumentCollection:     getEnv("DOCUMENT_COLLECTION", "script_documents"),
		DocumentProjectID:      getEnv("DOCUMENT_PROJECT_ID", ""),
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 getEnv("DB_PORT", "5432"),
		DBUser:                 getEnv("DB_USER", "postgres"),
		DBPassword:             getEnv("DB_PASSWORD", "postgres"),
		DBName:                 getEnv("DB_NAME", "scenario_writing_lab"),
		AWSRegion:              getEnv("AWS_REGION", "us-east-1"),
		DynamoDBEndpoint:       getEnv("DYNAMODB_ENDPOINT", ""),
		RedisAddress:           getEnv("REDIS_ADDRESS", ""),
		RateLimitBackend:       strings.ToLower(getEnv("RATE_LIMIT_BACKEND", BackendMemory)),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		SecretSource:           strings.ToLower(getEnv("SECRET_SOURCE", SecretSourceEnv)),
		SSMPrefix:              getEnv("SSM_PREFIX", "/scenario-writing-lab"),
		AdviceTimeout:          getPositiveMillis("ADVICE_TIMEOUT_MS", 8000*time.Millisecond),
		AdviceSimulatedLatency: getMillis("ADVICE_SIMULATED_LATENCY_MS", 0),
		AdviceRateLimit:        getInt("ADVICE_RATE_LIMIT", 30),
		AdviceRateWindow:       getPositiveMillis("ADVICE_RATE_WINDOW_MS", 60*time.Second),
		FrontendAddress:        getEnv("FRONTEND_ADDRESS", "https://production-frontend.com"),
	}
}

// CollectionName is the table/collection used by external document backends.
func (c *Config) CollectionName() string {
	if c.DocumentProjectID == "" {
		return c.DocumentCollection
	}
	return c.DocumentProjectID + "_" + c.DocumentCollection
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// loadDotEnv loads the nearest .env file, looking up to two parent directories
func loadDotEnv() {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getMillis(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return defaultValue
	}
	return time.Duration(value) * time.Millisecond
}

// getPositiveMillis is getMillis for durations where zero would disable the
// feature; non-positive values fall back to the default with a warning.
func getPositiveMillis(key string, defaultValue time.Duration) time.Duration {
	value := getMillis(key, defaultValue)
	if value <= 0 {
		log.Printf("Warning: %s must be positive, using %v\n", key, defaultValue)
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
