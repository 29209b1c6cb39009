package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	LogLevel           string
	MaxUploadSizeBytes int64

	// Portfolio API (resolver, search and position-creation endpoints).
	APIBaseURL string
	APIToken   string

	HTTPTimeout    time.Duration
	SearchDebounce time.Duration
	SessionTTL     time.Duration

	// Outbound request budget against the portfolio API.
	OutboundRPS   float64
	OutboundBurst int

	// When true, rows whose shares or price fail to parse are dropped at
	// materialization instead of flowing downstream as zero-valued rows.
	StrictParsing bool
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	apiBaseURL := getEnv("API_BASE_URL", "http://localhost:8000/api/v1")
	apiToken := getEnv("API_TOKEN", "")
	if apiToken == "" {
		log.Println("WARNING: API_TOKEN is empty. Requests to the portfolio API will be unauthenticated.")
	}

	httpTimeout := getEnvDuration("HTTP_TIMEOUT", 20*time.Second)
	searchDebounce := getEnvDuration("SEARCH_DEBOUNCE", 300*time.Millisecond)
	sessionTTL := getEnvDuration("SESSION_TTL", 30*time.Minute)

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760") // 10 MB
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil || maxUploadSizeBytes <= 0 {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES '%s'. Using default 10485760. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10485760
	}

	outboundRPSStr := getEnv("OUTBOUND_RPS", "5")
	outboundRPS, err := strconv.ParseFloat(outboundRPSStr, 64)
	if err != nil || outboundRPS <= 0 {
		log.Printf("WARNING: Invalid OUTBOUND_RPS '%s'. Using default 5. Error: %v", outboundRPSStr, err)
		outboundRPS = 5
	}

	outboundBurstStr := getEnv("OUTBOUND_BURST", "10")
	outboundBurst, err := strconv.Atoi(outboundBurstStr)
	if err != nil || outboundBurst <= 0 {
		log.Printf("WARNING: Invalid OUTBOUND_BURST '%s'. Using default 10. Error: %v", outboundBurstStr, err)
		outboundBurst = 10
	}

	strictParsingStr := getEnv("STRICT_PARSING", "false")
	strictParsing, err := strconv.ParseBool(strictParsingStr)
	if err != nil {
		log.Printf("WARNING: Invalid STRICT_PARSING '%s'. Using default false. Error: %v", strictParsingStr, err)
		strictParsing = false
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxUploadSizeBytes: maxUploadSizeBytes,
		APIBaseURL:         apiBaseURL,
		APIToken:           apiToken,
		HTTPTimeout:        httpTimeout,
		SearchDebounce:     searchDebounce,
		SessionTTL:         sessionTTL,
		OutboundRPS:        outboundRPS,
		OutboundBurst:      outboundBurst,
		StrictParsing:      strictParsing,
	}

	log.Printf("Configuration loaded. Port: %s, LogLevel: %s, APIBaseURL: %s, StrictParsing: %v",
		Cfg.Port, Cfg.LogLevel, Cfg.APIBaseURL, Cfg.StrictParsing)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("WARNING: Invalid %s format '%s'. Using default %s. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return d
}
