package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	DBDriver      string
	MongoURI      string
	MongoDatabase string
	DBPath        string
	StoreTimeout  time.Duration

	CORSAllowedOrigins []string
	EmptyFilterPolicy  string
	VersionCacheTTL    time.Duration

	Ingest IngestConfig
}

type IngestConfig struct {
	Language        string
	AssetBaseURL    string
	DataBaseURL     string
	SetCount        int
	WorkDir         string
	DownloadTimeout time.Duration
	FetchAttempts   int
	FetchInterval   time.Duration
	PushgatewayURL  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		DBDriver:      getEnv("DB_DRIVER", "mongo"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "runeterra-roulette-db"),
		DBPath:        getEnv("DB_PATH", "./runeterra_roulette.db"),
		StoreTimeout:  getEnvDuration("STORE_TIMEOUT", 10*time.Second),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		EmptyFilterPolicy:  getEnv("EMPTY_FILTER_POLICY", "match_all"),
		VersionCacheTTL:    getEnvDuration("VERSION_CACHE_TTL", 5*time.Minute),

		Ingest: IngestConfig{
			Language:        getEnv("CARD_LANGUAGE", "en_us"),
			AssetBaseURL:    getEnv("ASSET_BASE_URL", "https://dd.b.pvp.net"),
			DataBaseURL:     getEnv("DATA_BASE_URL", "https://dd.b.pvp.net/latest"),
			SetCount:        getEnvInt("SET_COUNT", 3),
			WorkDir:         getEnv("WORK_DIR", "./temp"),
			DownloadTimeout: getEnvDuration("DOWNLOAD_TIMEOUT", 5*time.Minute),
			FetchAttempts:   getEnvInt("FETCH_ATTEMPTS", 1),
			FetchInterval:   getEnvDuration("FETCH_INTERVAL", 0),
			PushgatewayURL:  getEnv("PUSHGATEWAY_URL", ""),
		},
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
