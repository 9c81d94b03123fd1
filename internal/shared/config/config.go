package config

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port               string
	CORSAllowOrigin    []string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	S3Endpoint         string
	SSEKMSKeyID        string
	LLMProvider        string
	LLMModel           string
	DatabaseURL        string
	Env                string
	LogLevel           string
	JWTSecret          string
	JWTTTL             time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	MaxUploadBytes     int64

	// Extraction
	ConverterPath        string
	TesseractPath        string
	OCRLanguages         string
	RasterizeDPI         int
	RasterizeSettleDelay time.Duration
	RasterizeTimeout     time.Duration
	OCRTimeout           time.Duration

	// Processing
	QueueBackend     string
	QueueWorkers     int
	QueueSize        int
	SQSQueueURL      string
	ProcessTimeout   time.Duration
	WorkerHealthAddr string
	SQSVisibility    time.Duration
	ShutdownTimeout  time.Duration

	// Per-identity token bucket on the endpoints that call the language service.
	ProcessRatePerMinute int
	ProcessRateBurst     int
}

// ConfigurationError reports a setting that prevents the service from starting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		LLMProvider:        getEnv("LLM_PROVIDER", "openai"),
		LLMModel:           getEnv("LLM_MODEL", "gpt-3.5-turbo"),
		DatabaseURL:        dbURL,
		Env:                env,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTTTL:             getEnvDuration("JWT_TTL", 24*time.Hour),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		ConverterPath:        getEnv("PDF_CONVERTER_PATH", "pdftocairo"),
		TesseractPath:        getEnv("TESSERACT_PATH", "tesseract"),
		OCRLanguages:         getEnv("OCR_LANGUAGES", "fra+eng"),
		RasterizeDPI:         getEnvInt("RASTERIZE_DPI", 300),
		RasterizeSettleDelay: getEnvDuration("RASTERIZE_SETTLE_DELAY", time.Second),
		RasterizeTimeout:     getEnvDuration("RASTERIZE_TIMEOUT", 2*time.Minute),
		OCRTimeout:           getEnvDuration("OCR_TIMEOUT", 90*time.Second),

		QueueBackend:     normalizeQueueBackend(getEnv("QUEUE_BACKEND", "sync")),
		QueueWorkers:     getEnvInt("QUEUE_WORKERS", 2),
		QueueSize:        getEnvInt("QUEUE_SIZE", 64),
		SQSQueueURL:      getEnv("SQS_QUEUE_URL", ""),
		ProcessTimeout:   getEnvDuration("PROCESS_TIMEOUT", 5*time.Minute),
		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", ":9090"),
		SQSVisibility:    getEnvDuration("SQS_VISIBILITY_TIMEOUT", 20*time.Minute),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		ProcessRatePerMinute: getEnvInt("PROCESS_RATE_PER_MINUTE", 30),
		ProcessRateBurst:     getEnvInt("PROCESS_RATE_BURST", 10),
	}
}

// Validate checks settings that must hold before the first document is processed.
// The converter and OCR binaries are resolved against PATH when not absolute.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ConverterPath) == "" {
		return &ConfigurationError{Key: "PDF_CONVERTER_PATH", Reason: "must not be empty"}
	}
	if _, err := lookPath(c.ConverterPath); err != nil {
		return &ConfigurationError{Key: "PDF_CONVERTER_PATH", Reason: fmt.Sprintf("converter %q not found: %v", c.ConverterPath, err)}
	}
	if strings.TrimSpace(c.TesseractPath) == "" {
		return &ConfigurationError{Key: "TESSERACT_PATH", Reason: "must not be empty"}
	}
	if _, err := lookPath(c.TesseractPath); err != nil {
		return &ConfigurationError{Key: "TESSERACT_PATH", Reason: fmt.Sprintf("ocr engine %q not found: %v", c.TesseractPath, err)}
	}
	if c.RasterizeDPI <= 0 {
		return &ConfigurationError{Key: "RASTERIZE_DPI", Reason: "must be positive"}
	}
	if c.ObjectStoreType == "s3" && c.S3Bucket == "" {
		return &ConfigurationError{Key: "S3_BUCKET", Reason: "required when OBJECT_STORE=s3"}
	}
	if c.QueueBackend == "sqs" && c.SQSQueueURL == "" {
		return &ConfigurationError{Key: "SQS_QUEUE_URL", Reason: "required when QUEUE_BACKEND=sqs"}
	}
	if c.QueueBackend == "local" && c.QueueWorkers <= 0 {
		return &ConfigurationError{Key: "QUEUE_WORKERS", Reason: "must be positive"}
	}
	return nil
}

var lookPath = exec.LookPath

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid %s=%q, using %s", key, raw, def)
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "local", "memory":
		return "local"
	case "sqs":
		return "sqs"
	default:
		return "sync"
	}
}
