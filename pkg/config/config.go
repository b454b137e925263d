package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	Env         string
	ServiceName string
	Port        int
	APIPrefix   string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Clock      ClockConfig
	Scheduler  SchedulerConfig
	Attendance AttendanceConfig
	Resolver   ResolverConfig
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ClockConfig pins the wall-clock offset. The roster runs on a single
// fixed offset (UTC-04:00) with no DST transitions.
type ClockConfig struct {
	UTCOffsetHours int
}

// SchedulerConfig governs the shift generator and its solver.
type SchedulerConfig struct {
	MinimumStaff   int
	PreferredStaff int
	DefaultTutors  int
	DefaultWeight  int
	SolverBudget   time.Duration
	SlowSolve      time.Duration
}

// AttendanceConfig tunes the time-tracking state machine.
type AttendanceConfig struct {
	EarlyClockInWindow time.Duration
	MaxSession         time.Duration
	SweepInterval      time.Duration
}

// ResolverConfig tunes the availability resolver cache.
type ResolverConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.ServiceName = v.GetString("SERVICE_NAME")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		URL:          v.GetString("DATABASE_URL"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Clock = ClockConfig{
		UTCOffsetHours: v.GetInt("CLOCK_UTC_OFFSET_HOURS"),
	}

	cfg.Scheduler = SchedulerConfig{
		MinimumStaff:   v.GetInt("SCHEDULER_MINIMUM_STAFF"),
		PreferredStaff: v.GetInt("SCHEDULER_PREFERRED_STAFF"),
		DefaultTutors:  v.GetInt("SCHEDULER_DEFAULT_TUTORS"),
		DefaultWeight:  v.GetInt("SCHEDULER_DEFAULT_WEIGHT"),
		SolverBudget:   parseDuration(v.GetString("SCHEDULER_SOLVER_BUDGET"), 10*time.Second),
		SlowSolve:      parseDuration(v.GetString("SCHEDULER_SLOW_SOLVE"), 2*time.Second),
	}

	cfg.Attendance = AttendanceConfig{
		EarlyClockInWindow: parseDuration(v.GetString("ATTENDANCE_EARLY_WINDOW"), 15*time.Minute),
		MaxSession:         parseDuration(v.GetString("ATTENDANCE_MAX_SESSION"), 8*time.Hour),
		SweepInterval:      parseDuration(v.GetString("ATTENDANCE_SWEEP_INTERVAL"), 15*time.Minute),
	}

	cfg.Resolver = ResolverConfig{
		CacheTTL: parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 10*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("SERVICE_NAME", "roster-api")
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "roster")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "roster-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CLOCK_UTC_OFFSET_HOURS", -4)

	v.SetDefault("SCHEDULER_MINIMUM_STAFF", 2)
	v.SetDefault("SCHEDULER_PREFERRED_STAFF", 2)
	v.SetDefault("SCHEDULER_DEFAULT_TUTORS", 2)
	v.SetDefault("SCHEDULER_DEFAULT_WEIGHT", 2)
	v.SetDefault("SCHEDULER_SOLVER_BUDGET", "10s")
	v.SetDefault("SCHEDULER_SLOW_SOLVE", "2s")

	v.SetDefault("ATTENDANCE_EARLY_WINDOW", "15m")
	v.SetDefault("ATTENDANCE_MAX_SESSION", "8h")
	v.SetDefault("ATTENDANCE_SWEEP_INTERVAL", "15m")

	v.SetDefault("AVAILABILITY_CACHE_TTL", "10s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
