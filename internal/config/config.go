// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	STT           STTConfig
	Audio         AudioConfig
	Database      DatabaseConfig
	Kafka         KafkaConfig
	Scoring       ScoringConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process identity and listener settings.
type ServiceConfig struct {
	Name        string
	Principal   string
	Environment string
	HTTPPort    string
	GRPCPort    string
	MetricsAddr string
}

// STTConfig selects and configures the transcription provider.
type STTConfig struct {
	Provider      string // mock, whisper, google
	WhisperURL    string
	WhisperModel  string
	LanguageCode  string
	SampleRateHz  int
	AudioEncoding string
	Timeout       time.Duration
}

// AudioConfig controls upload intake and transcoding.
type AudioConfig struct {
	UploadDir        string
	MaxUploadBytes   int64
	FFmpegPath       string
	TargetSampleRate int
}

// DatabaseConfig points at the Postgres database holding call records.
// An empty DSN keeps records in memory.
type DatabaseConfig struct {
	URL         string
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	RecentLimit int
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicScored    string
	TopicEmergency string
	Principal      string
}

// ScoringConfig points at an optional YAML policy override.
type ScoringConfig struct {
	PolicyFile string
}

// CORSConfig lists origins allowed to call the HTTP API.
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment. Unparseable values fall
// back to their defaults.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-voxguardian")

	return &Configuration{
		Service: ServiceConfig{
			Name:        envOrDefault("SERVICE_NAME", "voxguardian"),
			Principal:   principal,
			Environment: envOrDefault("ENV", "prod"),
			HTTPPort:    envOrDefault("HTTP_PORT", envOrDefault("PORT", "5000")),
			GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
		STT: STTConfig{
			Provider:      envOrDefault("STT_PROVIDER", "mock"),
			WhisperURL:    envOrDefault("STT_WHISPER_URL", "http://localhost:8080"),
			WhisperModel:  envOrDefault("STT_WHISPER_MODEL", "base"),
			LanguageCode:  envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:  envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
			AudioEncoding: envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
			Timeout:       envOrDefaultDuration("STT_TIMEOUT", 2*time.Minute),
		},
		Audio: AudioConfig{
			UploadDir:        envOrDefault("UPLOAD_DIR", "static/audio"),
			MaxUploadBytes:   envOrDefaultInt64("MAX_UPLOAD_BYTES", 10*1024*1024),
			FFmpegPath:       envOrDefault("FFMPEG_PATH", "ffmpeg"),
			TargetSampleRate: envOrDefaultInt("AUDIO_TARGET_SAMPLE_RATE", 16000),
		},
		Database: DatabaseConfig{
			URL:         os.Getenv("DATABASE_URL"),
			Host:        os.Getenv("DB_HOST"),
			Port:        envOrDefault("DB_PORT", "5432"),
			Name:        envOrDefault("DB_NAME", "voxguardian"),
			User:        envOrDefault("DB_USER", "postgres"),
			Password:    os.Getenv("DB_PASS"),
			RecentLimit: envOrDefaultInt("RECENT_CALLS_LIMIT", 20),
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        envList("KAFKA_BROKERS"),
			TopicScored:    envOrDefault("KAFKA_TOPIC_SCORED", "call.scored"),
			TopicEmergency: envOrDefault("KAFKA_TOPIC_EMERGENCY", "call.emergency"),
			Principal:      envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Scoring: ScoringConfig{
			PolicyFile: os.Getenv("SCORING_POLICY_FILE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: envListOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// DSN returns the Postgres connection string. DATABASE_URL wins; otherwise
// one is assembled from the DB_* variables when DB_HOST is set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	return u.String()
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.DSN() != ""
}

// String hides the password.
func (d DatabaseConfig) String() string {
	if !d.Enabled() {
		return "memory"
	}
	if d.URL != "" {
		return "postgres (DATABASE_URL)"
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s", d.User, d.Host, d.Port, d.Name)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envListOrDefault(key string, def []string) []string {
	if l := envList(key); len(l) > 0 {
		return l
	}
	return def
}
