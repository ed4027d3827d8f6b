package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// Generation pipeline knobs.
	Objective          string
	BackendOverride    string
	CacheEnabled       bool
	ParallelismEnabled bool
	CacheTTL           time.Duration
	StageTimeout       time.Duration
	RateLimitRPS       float64
	CatalogPath        string

	GeminiAPIKey string
	GroqAPIKey   string

	Artifact ArtifactConfig
}

type ArtifactConfig struct {
	// Backend selects the sink: memory, postgres or s3.
	Backend     string
	DatabaseURL string
	Endpoint    string
	Region      string
	AccessKey   string
	SecretKey   string
	Bucket      string
	UseSSL      bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port:               *port,
		Env:                env,
		Objective:          strings.TrimSpace(os.Getenv("OPTIMIZE_FOR")),
		BackendOverride:    strings.TrimSpace(os.Getenv("BACKEND_OVERRIDE")),
		CacheEnabled:       envBool("CACHE_ENABLED", true),
		ParallelismEnabled: envBool("PARALLELISM_ENABLED", true),
		CacheTTL:           envHours("CACHE_TTL_HOURS", 24*time.Hour),
		StageTimeout:       envSeconds("STAGE_TIMEOUT_SECONDS", 120*time.Second),
		RateLimitRPS:       envFloat("RATE_LIMIT_RPS", 0),
		CatalogPath:        strings.TrimSpace(os.Getenv("BACKEND_CATALOG_PATH")),
		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GroqAPIKey:         strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		Artifact:           loadArtifactConfig(env),
	}
	return cfg, nil
}

func loadArtifactConfig(env string) ArtifactConfig {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return localArtifactConfig()
	}
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("ARTIFACT_BACKEND")))
	if backend == "" {
		backend = "memory"
	}
	return ArtifactConfig{
		Backend:     backend,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Endpoint:    strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT")),
		Region:      firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey:   firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey:   firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:      firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "compforge-artifacts"),
		UseSSL:      envBool("ARTIFACT_S3_USE_SSL", true),
	}
}

func envBool(name string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func envHours(name string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return time.Duration(v) * time.Hour
}

func envSeconds(name string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return time.Duration(v) * time.Second
}

func envFloat(name string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
