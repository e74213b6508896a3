package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort        string
	RequestTimeout time.Duration
	JWTKey         []byte
	JWTExp         time.Duration
	CORSOrigin     string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Judge0APIURL          string
	Judge0APIKey          string
	Judge0APIHost         string
	Judge0PollInterval    time.Duration
	Judge0MaxPollAttempts int
	Judge0HTTPTimeout     time.Duration

	SubmitCooldown time.Duration

	LogLevel  string
	LogFormat string

	SweeperInterval   time.Duration
	SweeperStaleAfter time.Duration
	SweeperLockKey    string
	SweeperLockTTL    time.Duration
}

// Load reads the environment (and an optional .env file) into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort:        getEnv("API_PORT", "8080"),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 2*time.Minute),
		JWTKey:         []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:         time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 1)) * time.Hour,
		CORSOrigin:     getEnv("CORS_ORIGIN", "http://localhost:5173"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "codegrade"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		Judge0APIURL:          getEnv("JUDGE0_API_URL", ""),
		Judge0APIKey:          getEnv("JUDGE0_API_KEY", ""),
		Judge0APIHost:         getEnv("JUDGE0_API_HOST", ""),
		Judge0PollInterval:    getEnvAsDuration("JUDGE0_POLL_INTERVAL", time.Second),
		Judge0MaxPollAttempts: getEnvAsInt("JUDGE0_MAX_POLL_ATTEMPTS", 60),
		Judge0HTTPTimeout:     getEnvAsDuration("JUDGE0_HTTP_TIMEOUT", 10*time.Second),

		SubmitCooldown: getEnvAsDuration("SUBMIT_COOLDOWN", 10*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		SweeperInterval:   getEnvAsDuration("SWEEPER_INTERVAL", time.Minute),
		SweeperStaleAfter: getEnvAsDuration("SWEEPER_STALE_AFTER", 10*time.Minute),
		SweeperLockKey:    getEnv("SWEEPER_LOCK_KEY", "pending_sweeper_lock"),
		SweeperLockTTL:    getEnvAsDuration("SWEEPER_LOCK_TTL", 30*time.Second),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	if cfg.Judge0APIURL == "" {
		return nil, errors.New("JUDGE0_API_URL is required")
	}
	if cfg.Judge0MaxPollAttempts <= 0 {
		return nil, errors.New("JUDGE0_MAX_POLL_ATTEMPTS must be positive")
	}
	if err := cfg.checkTimeouts(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PollBudget is the longest a grading request waits on Judge0 results.
func (c *Config) PollBudget() time.Duration {
	return time.Duration(c.Judge0MaxPollAttempts) * c.Judge0PollInterval
}

// checkTimeouts keeps the poll budget inside the request deadline, and keeps
// in-flight requests out of the sweeper's stale window.
func (c *Config) checkTimeouts() error {
	budget := c.PollBudget()
	if budget >= c.RequestTimeout {
		return fmt.Errorf("judge0 poll budget %s (JUDGE0_MAX_POLL_ATTEMPTS x JUDGE0_POLL_INTERVAL) must be below REQUEST_TIMEOUT %s",
			budget, c.RequestTimeout)
	}
	if c.RequestTimeout >= c.SweeperStaleAfter {
		return fmt.Errorf("REQUEST_TIMEOUT %s must be below SWEEPER_STALE_AFTER %s",
			c.RequestTimeout, c.SweeperStaleAfter)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("1s", "500ms").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return fallback
}
