package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type AppConfig struct {
	HTTPPort        string `validate:"required,numeric"`
	Env             string `validate:"required"`
	LogLevel        string `validate:"oneof=DEBUG INFO WARN ERROR"`
	SwaggerEnable   bool
	DocsPath        string
	DataDir         string `validate:"required"`
	MasterToken     string
	AllowedOrigins  []string
	DefaultTimezone string `validate:"required,timezone"`
	CacheSize       int    `validate:"min=-1"`
	EventLogDir     string

	DatabaseDSN string
	DBDriver    string `validate:"oneof=memory sqlite postgres"`
	Postgres    PostgresConfig

	Storage    StorageConfig
	WAHA       WAHAConfig
	WhatsApp   WhatsAppConfig
	Summarizer SummarizerConfig
	Digest     DigestConfig
	Notify     NotifyConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
	Prefix    string
}

func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

type WAHAConfig struct {
	URL          string `validate:"omitempty,url"`
	APIKey       string
	Session      string
	GroupsTTL    time.Duration `validate:"min=0"`
	Timeout      time.Duration `validate:"min=0"`
	WebhookToken string
}

type WhatsAppConfig struct {
	Sessions    []string
	StoreDir    string
	SkipConnect bool
}

type SummarizerConfig struct {
	Provider      string `validate:"omitempty,oneof=ai basic"`
	OpenAIKey     string
	OpenAIBaseURL string `validate:"omitempty,url"`
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   string
}

type DigestConfig struct {
	Cron        string
	Timezone    string `validate:"omitempty,timezone"`
	Groups      []string
	Concurrency int           `validate:"min=0,max=16"`
	Timeout     time.Duration `validate:"min=0"`
}

type NotifyConfig struct {
	WebhookURL     string `validate:"omitempty,url"`
	WebhookHeaders map[string]string
	Realtime       bool
}

func Load() *AppConfig {
	pg := PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", ""),
		Port:     getEnv("POSTGRES_PORT", ""),
		User:     getEnv("POSTGRES_USER", ""),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		DBName:   getEnv("POSTGRES_DB", ""),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}

	storage := StorageConfig{
		Endpoint:  getEnv("STORAGE_ENDPOINT", getEnv("MINIO_ENDPOINT", "")),
		AccessKey: getEnv("STORAGE_ACCESS_KEY", getEnv("MINIO_ACCESS_KEY", "")),
		SecretKey: getEnv("STORAGE_SECRET_KEY", getEnv("MINIO_SECRET_KEY", "")),
		Bucket:    getEnv("STORAGE_BUCKET", getEnv("MINIO_BUCKET", "")),
		Region:    getEnv("STORAGE_REGION", getEnv("MINIO_REGION", "")),
		UseSSL:    getBool("STORAGE_USE_SSL", getBool("MINIO_USE_SSL", false)),
		PublicURL: getEnv("STORAGE_PUBLIC_URL", getEnv("MINIO_PUBLIC_URL", "")),
		Prefix:    getEnv("STORAGE_PREFIX", "summaries"),
	}

	dsn := getEnv("DATABASE_DSN", "")
	driver := strings.ToLower(getEnv("DB_DRIVER", ""))
	if driver == "" {
		switch {
		case strings.HasPrefix(strings.ToLower(dsn), "postgres"):
			driver = "postgres"
		case pg.Host != "":
			driver = "postgres"
		default:
			driver = "sqlite"
		}
	}
	switch driver {
	case "postgres":
		if dsn == "" {
			dsn = buildPostgresDSN(pg)
		}
	case "sqlite":
		if dsn == "" {
			dsn = "file:second-brain.db?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
		}
	}

	defaultTZ := getEnv("DEFAULT_TIMEZONE", "UTC")
	dataDir := getEnv("DATA_DIR", "data")

	return &AppConfig{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		SwaggerEnable:   getBool("SWAGGER_ENABLE", true),
		DocsPath:        getEnv("DOCS_PATH", "docs/openapi.yaml"),
		DataDir:         dataDir,
		MasterToken:     getEnv("API_MASTER_TOKEN", ""),
		AllowedOrigins:  getList("CORS_ALLOWED_ORIGINS"),
		DefaultTimezone: defaultTZ,
		CacheSize:       getInt("SUMMARY_CACHE_SIZE", 256),
		EventLogDir:     getEnv("EVENT_LOG_DIR", ""),
		DatabaseDSN:     dsn,
		DBDriver:        driver,
		Postgres:        pg,
		Storage:         storage,
		WAHA: WAHAConfig{
			URL:          getEnv("WAHA_URL", ""),
			APIKey:       getEnv("WAHA_API_KEY", ""),
			Session:      getEnv("WAHA_SESSION", "default"),
			GroupsTTL:    getDuration("WAHA_GROUPS_TTL", 5*time.Minute),
			Timeout:      getDuration("WAHA_TIMEOUT", 15*time.Second),
			WebhookToken: getEnv("WAHA_WEBHOOK_TOKEN", ""),
		},
		WhatsApp: WhatsAppConfig{
			Sessions:    getList("WA_SESSIONS"),
			StoreDir:    getEnv("WA_STORE_DIR", dataDir+"/sessions"),
			SkipConnect: getBool("WA_SKIP_CONNECT", false),
		},
		Summarizer: SummarizerConfig{
			Provider:      strings.ToLower(getEnv("SUMMARY_PROVIDER", "")),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", ""),
			GeminiKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", ""),
		},
		Digest: DigestConfig{
			Cron:        getEnv("DIGEST_CRON", "0 7 * * *"),
			Timezone:    getEnv("DIGEST_TIMEZONE", defaultTZ),
			Groups:      getList("DIGEST_GROUPS"),
			Concurrency: getInt("DIGEST_CONCURRENCY", 2),
			Timeout:     getDuration("DIGEST_TIMEOUT", 5*time.Minute),
		},
		Notify: NotifyConfig{
			WebhookURL:     strings.TrimSpace(getEnv("NOTIFY_WEBHOOK_URL", "")),
			WebhookHeaders: getHeaders("NOTIFY_WEBHOOK_HEADERS"),
			Realtime:       getBool("NOTIFY_REALTIME", true),
		},
	}
}

// Validate checks the struct tags and the cross-field rules.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.DBDriver != "memory" && c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN required for " + c.DBDriver + " driver")
	}
	return nil
}

func buildPostgresDSN(pg PostgresConfig) string {
	host := pg.Host
	if host == "" {
		host = "localhost"
	}
	port := pg.Port
	if port == "" {
		port = "5432"
	}
	ssl := pg.SSLMode
	if ssl == "" {
		ssl = "disable"
	}

	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%s", host, port)}
	if pg.User != "" {
		if pg.Password != "" {
			u.User = url.UserPassword(pg.User, pg.Password)
		} else {
			u.User = url.User(pg.User)
		}
	}
	if pg.DBName != "" {
		u.Path = pg.DBName
	}
	q := u.Query()
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

// getList splits a comma separated value, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getHeaders parses "Name: value; Other: value".
func getHeaders(key string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(os.Getenv(key), ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}

func MustLoad() *AppConfig {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	return cfg
}
