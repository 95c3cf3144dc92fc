package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"libraryclient/internal/catalog"
)

// Config holds the application configuration
type Config struct {
	// Backend configuration
	APIURL      string
	AuthToken   string // takes precedence over TokenFile
	TokenFile   string
	HTTPTimeout time.Duration
	UseMock     bool

	// Catalog projection
	PageSize    int
	SearchMode  catalog.SearchMode
	SearchField catalog.Field

	// Statistics archive (ClickHouse)
	ArchiveEnabled     bool
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	// Local HTTP API
	Port int

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	config.UseMock = os.Getenv("USE_MOCK_BACKEND") == "true"

	// Backend URL (required unless the mock backend is used)
	config.APIURL = strings.TrimSpace(os.Getenv("LIBRARY_API_URL"))
	if config.APIURL == "" && !config.UseMock {
		return nil, fmt.Errorf("LIBRARY_API_URL is required when USE_MOCK_BACKEND is not set")
	}

	config.AuthToken = strings.TrimSpace(os.Getenv("LIBRARY_AUTH_TOKEN"))

	config.TokenFile = os.Getenv("LIBRARY_TOKEN_FILE")
	if config.TokenFile == "" {
		path, err := defaultTokenFile()
		if err != nil {
			return nil, err
		}
		config.TokenFile = path
	}

	config.HTTPTimeout = 15 * time.Second
	if s := os.Getenv("LIBRARY_HTTP_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid LIBRARY_HTTP_TIMEOUT: %q", s)
		}
		config.HTTPTimeout = d
	}

	config.PageSize = catalog.DefaultPageSize
	if s := os.Getenv("LIBRARY_PAGE_SIZE"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid LIBRARY_PAGE_SIZE: %q", s)
		}
		config.PageSize = n
	}

	mode, err := catalog.ParseSearchMode(os.Getenv("LIBRARY_SEARCH_MODE"))
	if err != nil {
		return nil, fmt.Errorf("invalid LIBRARY_SEARCH_MODE: %w", err)
	}
	config.SearchMode = mode

	field, err := catalog.ParseField(os.Getenv("LIBRARY_SEARCH_FIELD"))
	if err != nil {
		return nil, fmt.Errorf("invalid LIBRARY_SEARCH_FIELD: %w", err)
	}
	config.SearchField = field

	config.Port = 8080
	if s := os.Getenv("PORT"); s != "" {
		port, err := strconv.Atoi(s)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid PORT: %q", s)
		}
		config.Port = port
	}

	config.LogLevel = os.Getenv("LOG_LEVEL")
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	config.LogFormat = os.Getenv("LOG_FORMAT")
	if config.LogFormat == "" {
		config.LogFormat = "json"
	}
	if config.LogFormat != "json" && config.LogFormat != "console" {
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q (want json or console)", config.LogFormat)
	}

	// ClickHouse configuration (required if the archive is enabled)
	config.ArchiveEnabled = os.Getenv("ARCHIVE_ENABLED") == "true"
	if config.ArchiveEnabled {
		config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
		if config.ClickHouseHost == "" {
			return nil, fmt.Errorf("CLICKHOUSE_HOST is required when ARCHIVE_ENABLED is true")
		}

		portStr := os.Getenv("CLICKHOUSE_PORT")
		if portStr == "" {
			config.ClickHousePort = 9000 // Default ClickHouse native port
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
			}
			config.ClickHousePort = port
		}

		config.ClickHouseDatabase = os.Getenv("CLICKHOUSE_DATABASE")
		if config.ClickHouseDatabase == "" {
			config.ClickHouseDatabase = "default"
		}

		config.ClickHouseUser = os.Getenv("CLICKHOUSE_USER")
		if config.ClickHouseUser == "" {
			config.ClickHouseUser = "default"
		}

		config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
		// Password is optional, can be empty

		config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	}

	return config, nil
}

func defaultTokenFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "libraryclient", "token"), nil
}
