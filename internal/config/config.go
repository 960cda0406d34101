package config

import (
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxIdleTime int // in minutes
	DBConnMaxLifetime int // in minutes

	// Auth
	ValidatorType string // "jwks" or "hmac"
	JWTJWKSURL    string
	JWTHMACSecret string

	// Domain event ingress (optional)
	NatsURL         string
	EventSubject    string
	EventQueueGroup string

	// Live channel tuning
	WSOutboundBufferSize int           `yaml:"ws_outbound_buffer_size"`
	WSWriteTimeout       time.Duration `yaml:"ws_write_timeout"`
	WSPingInterval       time.Duration `yaml:"ws_ping_interval"`
	WSPongTimeout        time.Duration `yaml:"ws_pong_timeout"`
	WSHandshakeTimeout   time.Duration `yaml:"ws_handshake_timeout"`

	// Server
	ServerShutdownTimeoutSeconds int

	// CORS
	CORSAllowedOrigins string

	// Logging
	LogLevel  string
	LogFormat string
}

var AppConfig *Config

func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		// Database
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", "postgres://localhost/lumenhub?sslmode=disable"),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 15),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxIdleTime: getEnvAsInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 1),
		DBConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 30),

		// Auth
		ValidatorType: getEnvOrDefault("VALIDATOR_TYPE", "jwks"),
		JWTJWKSURL:    getEnvOrDefault("JWT_JWKS_URL", ""),
		JWTHMACSecret: getEnvOrDefault("JWT_HMAC_SECRET", ""),

		// Domain event ingress
		NatsURL:         getEnvOrDefault("NATS_URL", ""),
		EventSubject:    getEnvOrDefault("EVENT_SUBJECT", "lumenhub.events.notification"),
		EventQueueGroup: getEnvOrDefault("EVENT_QUEUE_GROUP", "notification-dispatch"),

		// Live channel tuning
		WSOutboundBufferSize: getEnvAsInt("WS_OUTBOUND_BUFFER_SIZE", 16),
		WSWriteTimeout:       getEnvAsDuration("WS_WRITE_TIMEOUT", 5*time.Second),
		WSPingInterval:       getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
		WSPongTimeout:        getEnvAsDuration("WS_PONG_TIMEOUT", 75*time.Second),
		WSHandshakeTimeout:   getEnvAsDuration("WS_HANDSHAKE_TIMEOUT", 10*time.Second),

		// Server
		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30),

		// CORS
		CORSAllowedOrigins: getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		// Logging
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "debug"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	// Optional configuration file overlay for settings that should not be
	// driven by environment variables (live channel tuning mostly).
	configFilePath := os.Getenv("CONFIG_FILE")
	if configFilePath != "" {
		configFile, err := os.Open(configFilePath)
		if err != nil {
			log.Fatalf("Failed to open config file: %v", err)
		}
		defer configFile.Close()

		if err := LoadConfigFile(configFile, AppConfig); err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}

	if AppConfig.ValidatorType == "jwks" && AppConfig.JWTJWKSURL == "" {
		log.Println("Warning: JWT_JWKS_URL is empty; token validation runs in development mode")
	}

	if AppConfig.NatsURL == "" {
		log.Println("NATS_URL not set, domain event ingress disabled")
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as time.Duration, using default %v: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func LoadConfigFile(reader io.Reader, config *Config) error {
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(config); err != nil {
		return err
	}

	return nil
}
