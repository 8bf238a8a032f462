package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API server and supporting
// services.
type Config struct {
	ListenAddr string

	// well-known administrator identity; bypasses the user table
	AdminEmail    string
	AdminPassword string

	JWTSecret     string
	TokenValidity time.Duration

	GeminiAPIKey   string
	GeminiBaseURL  string
	GeminiModel    string
	RequestTimeout time.Duration

	StarterCredits int

	PaymentMethodName  string
	PaymentAccountNo   string
	PaymentQRCodeURL   string
	PaymentYoutubeLink string
	PaymentTiktokLink  string

	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
}

// S3Enabled reports whether generated images should be uploaded to object
// storage. Without it the inline data URL is kept in the history instead.
func (c Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		TokenValidity:      time.Hour * time.Duration(getInt("TOKEN_VALIDITY_HOURS", 24)),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:        getEnv("GEMINI_MODEL", "imagen-4.0-generate-001"),
		RequestTimeout:     time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		StarterCredits:     getInt("STARTER_CREDITS", 10),
		PaymentMethodName:  getEnv("PAYMENT_METHOD_NAME", "Bkash/Nagad/Rocket"),
		PaymentAccountNo:   getEnv("PAYMENT_ACCOUNT_NUMBER", ""),
		PaymentQRCodeURL:   getEnv("PAYMENT_QR_CODE_URL", ""),
		PaymentYoutubeLink: getEnv("PAYMENT_YOUTUBE_LINK", ""),
		PaymentTiktokLink:  getEnv("PAYMENT_TIKTOK_LINK", ""),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Region:           os.Getenv("S3_REGION"),
		S3AccessKey:        os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:        os.Getenv("S3_SECRET_KEY"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:    os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:     getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:           getEnv("S3_PREFIX", "generations"),
	}

	cfg.AdminEmail = os.Getenv("ADMIN_EMAIL")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	var missing []string
	if cfg.AdminEmail == "" {
		missing = append(missing, "ADMIN_EMAIL")
	}
	if cfg.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if cfg.S3Enabled() {
		if cfg.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if cfg.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if cfg.S3PublicBaseURL == "" {
			missing = append(missing, "S3_PUBLIC_BASE_URL")
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// env files are optional; plain environment variables are enough
	return nil
}
