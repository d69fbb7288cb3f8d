package config

import (
	"os"
	"strconv"
	"time"

	"pdf-viewer/internal/domain"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort      string
	DocumentsPath   string
	MaxFileSize     int64
	LogLevel        string
	SupabaseURL     string
	SupabaseKey     string
	SupabaseBucket  string
	RenderDPI       float64
	RenderRateLimit float64

	// Viewer settings
	DocumentBaseURL  string
	ViewportWidth    float64
	ViewportHeight   float64
	DevicePixelRatio float64
	ResizeDebounce   time.Duration
	RescaleThreshold float64
	PageGap          float64
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:      getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		DocumentsPath:   getEnvOrDefault("DOCUMENTS_PATH", "./documents"),
		MaxFileSize:     getEnvInt64OrDefault("MAX_FILE_SIZE", 50*1024*1024), // 50MB default
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		SupabaseURL:     getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:     getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		SupabaseBucket:  getEnvOrDefault("SUPABASE_BUCKET", "documents"),
		RenderDPI:       getEnvFloatOrDefault("RENDER_DPI", 150),
		RenderRateLimit: getEnvFloatOrDefault("RENDER_RATE_LIMIT", 5),

		DocumentBaseURL:  getEnvOrDefault("DOCUMENT_BASE_URL", "http://localhost:8080"),
		ViewportWidth:    getEnvFloatOrDefault("VIEWPORT_WIDTH", 1280),
		ViewportHeight:   getEnvFloatOrDefault("VIEWPORT_HEIGHT", 800),
		DevicePixelRatio: getEnvFloatOrDefault("DEVICE_PIXEL_RATIO", 1),
		ResizeDebounce:   time.Duration(getEnvInt64OrDefault("RESIZE_DEBOUNCE_MS", 800)) * time.Millisecond,
		RescaleThreshold: getEnvFloatOrDefault("RESCALE_THRESHOLD", 0.1),
		PageGap:          getEnvFloatOrDefault("PAGE_GAP", 10),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetDocumentsPath returns the local document directory
func (c *AppConfig) GetDocumentsPath() string {
	return c.DocumentsPath
}

// GetMaxFileSize returns the maximum allowed file size
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetSupabaseBucket returns the storage bucket holding document files
func (c *AppConfig) GetSupabaseBucket() string {
	return c.SupabaseBucket
}

// GetRenderDPI returns the resolution used for server-side page images
func (c *AppConfig) GetRenderDPI() float64 {
	return c.RenderDPI
}

// GetRenderRateLimit returns the allowed page-image requests per second
func (c *AppConfig) GetRenderRateLimit() float64 {
	return c.RenderRateLimit
}

func (c *AppConfig) GetDocumentBaseURL() string {
	return c.DocumentBaseURL
}

func (c *AppConfig) GetViewportWidth() float64 {
	return c.ViewportWidth
}

func (c *AppConfig) GetViewportHeight() float64 {
	return c.ViewportHeight
}

func (c *AppConfig) GetDevicePixelRatio() float64 {
	return c.DevicePixelRatio
}

// GetResizeDebounce returns the quiet period before a resize triggers re-layout
func (c *AppConfig) GetResizeDebounce() time.Duration {
	return c.ResizeDebounce
}

// GetRescaleThreshold returns the minimum scale change that triggers re-layout
func (c *AppConfig) GetRescaleThreshold() float64 {
	return c.RescaleThreshold
}

func (c *AppConfig) GetPageGap() float64 {
	return c.PageGap
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

// getEnvFloatOrDefault ignores unparsable and non-positive values.
func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}
