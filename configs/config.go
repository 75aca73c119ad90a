package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Engine       EngineConfig
	Animations   AnimationsConfig
	Presentation PresentationConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	// AdminJWTSecret signs admin API bearer tokens; empty disables auth.
	AdminJWTSecret string
}

type EngineConfig struct {
	ProfileTTL      time.Duration
	CleanupInterval time.Duration
	// Scheduler pools
	Workers         int
	TimerWorkers    int
	QueueLimit      int    // 0 = unbounded
	Admission       string // block or drop_newest
	ShutdownTimeout time.Duration
	// Refresh pipeline
	BatchSize         int
	TickRate          int // host ticks per second
	RefreshInterval   time.Duration
	InitialDelayTicks int
}

type AnimationsConfig struct {
	File     string
	Watch    bool
	Debounce time.Duration
}

type PresentationConfig struct {
	DisplayName string
	Header      []string
	Footer      []string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
	// Shared profile cache and pub/sub channels
	KeyPrefix           string
	ProfileTTL          time.Duration
	ChangeChannel       string
	PresentationChannel string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		},
		Engine: EngineConfig{
			ProfileTTL:        getDurationEnv("ENGINE_PROFILE_TTL", 30*time.Second),
			CleanupInterval:   getDurationEnv("ENGINE_CLEANUP_INTERVAL", time.Minute),
			Workers:           getIntEnv("ENGINE_WORKERS", 0),
			TimerWorkers:      getIntEnv("ENGINE_TIMER_WORKERS", 2),
			QueueLimit:        getIntEnv("ENGINE_QUEUE_LIMIT", 0),
			Admission:         getEnv("ENGINE_ADMISSION", "block"),
			ShutdownTimeout:   getDurationEnv("ENGINE_SHUTDOWN_TIMEOUT", 5*time.Second),
			BatchSize:         getIntEnv("ENGINE_BATCH_SIZE", 50),
			TickRate:          getIntEnv("ENGINE_TICK_RATE", 20),
			RefreshInterval:   getDurationEnv("ENGINE_REFRESH_INTERVAL", time.Second),
			InitialDelayTicks: getIntEnv("ENGINE_INITIAL_DELAY_TICKS", 20),
		},
		Animations: AnimationsConfig{
			File:     getEnv("ANIMATIONS_FILE", "animations.yml"),
			Watch:    getBoolEnv("ANIMATIONS_WATCH", true),
			Debounce: getDurationEnv("ANIMATIONS_DEBOUNCE", 250*time.Millisecond),
		},
		Presentation: PresentationConfig{
			DisplayName: getEnv("PRESENTATION_DISPLAY_NAME", "{prefix}{name}{suffix}"),
			Header:      getListEnv("PRESENTATION_HEADER", []string{"{animation:hearts}", "Welcome, {name}"}),
			Footer:      getListEnv("PRESENTATION_FOOTER", []string{"{animation:time}", "{animation:loading}"}),
		},
		Database: DatabaseConfig{
			Enabled:         getBoolEnv("DB_ENABLED", true),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "tabrefresh"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Enabled:             getBoolEnv("REDIS_ENABLED", true),
			Host:                getEnv("REDIS_HOST", "localhost"),
			Port:                getEnv("REDIS_PORT", "6379"),
			Password:            getEnv("REDIS_PASSWORD", ""),
			DB:                  getIntEnv("REDIS_DB", 0),
			PoolSize:            getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns:        getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:         getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:         getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:        getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:         getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:         getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
			KeyPrefix:           getEnv("REDIS_KEY_PREFIX", "tabrefresh"),
			ProfileTTL:          getDurationEnv("REDIS_PROFILE_TTL", 5*time.Minute),
			ChangeChannel:       getEnv("REDIS_CHANGE_CHANNEL", "tabrefresh:permission_changes"),
			PresentationChannel: getEnv("REDIS_PRESENTATION_CHANNEL", "tabrefresh:presentation"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if cfg.Engine.TickRate <= 0 {
		return nil, fmt.Errorf("ENGINE_TICK_RATE must be positive, got %d", cfg.Engine.TickRate)
	}
	if cfg.Engine.Admission != "block" && cfg.Engine.Admission != "drop_newest" {
		return nil, fmt.Errorf("ENGINE_ADMISSION must be block or drop_newest, got %q", cfg.Engine.Admission)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a "|"-separated value into lines.
func getListEnv(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	if value == "" {
		return []string{}
	}
	return strings.Split(value, "|")
}
