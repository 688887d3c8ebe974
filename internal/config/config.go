package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	DatabaseURL           string
	JWTSecret             string
	SessionTTL            time.Duration
	MFAChallengeTTL       time.Duration
	PasswordResetTTL      time.Duration
	GoogleAudience        string
	AllowOrigins          []string
	LogstashTCPAddr       string
	FrontendBaseURL       string
	SMTPHost              string
	SMTPPort              string
	SMTPUsername          string
	SMTPPassword          string
	SMTPFrom              string
	SMTPUseTLS            bool
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinIOBucketPosters    string
	MinIOPublicURL        string
	PosterImageMaxBytes   int64
	EventApprovalRequired bool
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	posterMax := int64(5 * 1024 * 1024)
	if v, err := strconv.ParseInt(getenv("POSTER_IMAGE_MAX_BYTES", "5242880"), 10, 64); err == nil && v > 0 {
		posterMax = v
	}

	return Config{
		Port:                  getenv("PORT", "8080"),
		DatabaseURL:           must("DATABASE_URL"),
		JWTSecret:             must("JWT_SECRET"),
		SessionTTL:            duration("SESSION_TTL", 24*time.Hour),
		MFAChallengeTTL:       duration("MFA_CHALLENGE_TTL", 10*time.Minute),
		PasswordResetTTL:      duration("PASSWORD_RESET_TTL", 10*time.Minute),
		GoogleAudience:        getenv("GOOGLE_AUDIENCE", ""),
		AllowOrigins:          splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr:       getenv("LOGSTASH_TCP_ADDR", ""),
		FrontendBaseURL:       getenv("FRONTEND_BASE_URL", ""),
		SMTPHost:              getenv("SMTP_HOST", ""),
		SMTPPort:              getenv("SMTP_PORT", ""),
		SMTPUsername:          getenv("SMTP_USERNAME", ""),
		SMTPPassword:          getenv("SMTP_PASSWORD", ""),
		SMTPFrom:              getenv("SMTP_FROM", ""),
		SMTPUseTLS:            getenv("SMTP_USE_TLS", "false") == "true",
		MinIOEndpoint:         getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getenv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketPosters:    getenv("MINIO_BUCKET_POSTERS", "evently-posters"),
		MinIOPublicURL:        getenv("MINIO_PUBLIC_URL", ""),
		PosterImageMaxBytes:   posterMax,
		EventApprovalRequired: getenv("EVENT_APPROVAL_REQUIRED", "true") == "true",
	}
}

func duration(k string, d time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return d
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("Warning: invalid %s=%q, using %s", k, raw, d)
		return d
	}
	return v
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
