package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"pdf-annotator/internal/domain"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort     string
	MaxFileSize    int64
	LogLevel       string
	AllowedOrigins []string
	StyleFile      string
	CompressPDF    bool
	PreviewDPI     float64
	RenderTimeout  time.Duration
	SupabaseURL    string
	SupabaseKey    string
	ExportBucket   string
	SessionTTL     time.Duration
}

var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:     getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		MaxFileSize:    getEnvInt64OrDefault("MAX_FILE_SIZE", 50*1024*1024), // 50MB default
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvListOrDefault("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins),
		StyleFile:      getEnvOrDefault("STYLE_FILE", ""),
		CompressPDF:    getEnvBoolOrDefault("PDF_COMPRESS", true),
		PreviewDPI:     getEnvFloatOrDefault("PREVIEW_DPI", 72),
		RenderTimeout:  getEnvDurationOrDefault("RENDER_TIMEOUT", 30*time.Second),
		SupabaseURL:    getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:    getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		ExportBucket:   getEnvOrDefault("EXPORT_BUCKET", "exports"),
		SessionTTL:     getEnvDurationOrDefault("SESSION_TTL", 2*time.Hour),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetMaxFileSize returns the maximum allowed upload size
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetAllowedOrigins returns the CORS origins
func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// GetStyleFile returns the path of the optional style profile
func (c *AppConfig) GetStyleFile() string {
	return c.StyleFile
}

// GetCompressPDF reports whether written streams are deflated
func (c *AppConfig) GetCompressPDF() bool {
	return c.CompressPDF
}

// GetPreviewDPI returns the raster preview resolution
func (c *AppConfig) GetPreviewDPI() float64 {
	return c.PreviewDPI
}

// GetRenderTimeout returns the per-render deadline
func (c *AppConfig) GetRenderTimeout() time.Duration {
	return c.RenderTimeout
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetExportBucket returns the storage bucket for exports
func (c *AppConfig) GetExportBucket() string {
	return c.ExportBucket
}

// GetSessionTTL returns how long a session is kept after it was opened
func (c *AppConfig) GetSessionTTL() time.Duration {
	return c.SessionTTL
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
