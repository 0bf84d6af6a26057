package config

import "time"

// Store driver names accepted by STORE_DRIVER.
const (
	StoreDriverJSONFile = "jsonfile"
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment        string
	Addr               string
	StoreDriver        string
	DataDir            string
	DatabaseURL        string
	MigrationsDir      string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	TaskCacheTTL       time.Duration
	CacheRedisAddr     string
	CacheRedisPass     string
	CacheRedisDB       int
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
	JobQueueSize       int
	JobMaxAttempts     int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":3000"),
		StoreDriver:        GetString("STORE_DRIVER", StoreDriverJSONFile),
		DataDir:            GetString("DATA_DIR", "data"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://taskpulse:taskpulse@db:5432/taskpulse?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "migrations"),
		JWTSecret:          GetString("JWT_SECRET", "dev-secret"),
		AccessTokenTTL:     GetDuration("ACCESS_TOKEN_TTL", time.Hour),
		TaskCacheTTL:       GetDuration("TASK_CACHE_TTL", 30*time.Second),
		CacheRedisAddr:     GetString("CACHE_REDIS_ADDR", ""),
		CacheRedisPass:     GetString("CACHE_REDIS_PASSWORD", ""),
		CacheRedisDB:       GetInt("CACHE_REDIS_DB", 0),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
		JobQueueSize:       GetInt("JOB_QUEUE_SIZE", 64),
		JobMaxAttempts:     GetInt("JOB_MAX_ATTEMPTS", 3),
	}
}
