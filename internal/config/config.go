package config

import (
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Delivery endpoint
	DeliveryURL     string
	DeliveryToken   string
	DeliveryFormat  string
	DeliveryGzip    bool
	DeliveryTimeout time.Duration
	DeliveryRetries int

	// IMAP mailbox; polling is off when IMAPAddr is empty.
	IMAPAddr           string
	IMAPUsername       string
	IMAPPassword       string
	IMAPTLS            bool
	IMAPLabel          string
	IMAPProcessedLabel string
	PollInterval       time.Duration

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job and dedup state
	JobTTL   time.Duration
	DedupTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

// Load reads the environment. Variables from a .env file in the working
// directory (or the files named in envFiles) fill in whatever the process
// environment does not already set.
func Load(envFiles ...string) Config {
	_ = godotenv.Load(envFiles...)

	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("NOTICEGEST_API_KEY"),

		DeliveryURL:     os.Getenv("DELIVERY_URL"),
		DeliveryToken:   os.Getenv("DELIVERY_TOKEN"),
		DeliveryFormat:  envOr("DELIVERY_FORMAT", "form"),
		DeliveryGzip:    envBool("DELIVERY_GZIP", false),
		DeliveryTimeout: envDuration("DELIVERY_TIMEOUT", 30*time.Second),
		DeliveryRetries: envInt("DELIVERY_RETRIES", 3),

		IMAPAddr:           os.Getenv("IMAP_ADDR"),
		IMAPUsername:       os.Getenv("IMAP_USERNAME"),
		IMAPPassword:       os.Getenv("IMAP_PASSWORD"),
		IMAPTLS:            envBool("IMAP_TLS", true),
		IMAPLabel:          envOr("IMAP_LABEL", "circle_square_notify"),
		IMAPProcessedLabel: envOr("IMAP_PROCESSED_LABEL", "processed"),
		PollInterval:       envDuration("POLL_INTERVAL", 5*time.Minute),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		JobTTL:   envDuration("JOB_TTL", 1*time.Hour),
		DedupTTL: envDuration("DEDUP_TTL", 24*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}
	if cfg.DeliveryRetries <= 0 {
		cfg.DeliveryRetries = 3
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 30 * time.Second
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	if cfg.PollInterval < 0 {
		cfg.PollInterval = 0
	}

	return cfg
}

// MailboxEnabled reports whether an IMAP account is configured.
func (c Config) MailboxEnabled() bool {
	return c.IMAPAddr != ""
}

func (c Config) Validate() error {
	imap := c.MailboxEnabled()
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIKey, validation.Required.Error("NOTICEGEST_API_KEY is required")),
		validation.Field(&c.DeliveryURL,
			validation.Required.Error("DELIVERY_URL is required"),
			is.URL.Error("DELIVERY_URL must be a URL"),
		),
		validation.Field(&c.DeliveryFormat,
			validation.In("form", "json").Error("DELIVERY_FORMAT must be form or json"),
		),
		validation.Field(&c.IMAPUsername,
			validation.When(imap, validation.Required.Error("IMAP_USERNAME is required with IMAP_ADDR")),
		),
		validation.Field(&c.IMAPPassword,
			validation.When(imap, validation.Required.Error("IMAP_PASSWORD is required with IMAP_ADDR")),
		),
		validation.Field(&c.IMAPProcessedLabel,
			validation.When(imap, validation.NotIn(c.IMAPLabel).Error("IMAP_PROCESSED_LABEL must differ from IMAP_LABEL")),
		),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
