package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.DBDriver != "sqlite" || !strings.HasPrefix(cfg.DatabaseDSN, "file:") {
		t.Fatalf("driver %q dsn %q", cfg.DBDriver, cfg.DatabaseDSN)
	}
	if cfg.DefaultTimezone != "UTC" || cfg.Digest.Cron != "0 7 * * *" || cfg.Digest.Concurrency != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "brain")
	t.Setenv("POSTGRES_PASSWORD", "p@ss")
	t.Setenv("POSTGRES_DB", "brain")
	t.Setenv("DEFAULT_TIMEZONE", "Asia/Jerusalem")
	t.Setenv("DIGEST_GROUPS", " a@g.us, ,b@g.us ")
	t.Setenv("WAHA_GROUPS_TTL", "90s")
	t.Setenv("NOTIFY_WEBHOOK_HEADERS", "Authorization: Bearer x; X-Team: ops")
	t.Setenv("MINIO_BUCKET", "legacy")

	cfg := Load()
	if cfg.DBDriver != "postgres" || cfg.DatabaseDSN != "postgres://brain:p%40ss@db:5432/brain?sslmode=disable" {
		t.Fatalf("driver %q dsn %q", cfg.DBDriver, cfg.DatabaseDSN)
	}
	if cfg.Digest.Timezone != "Asia/Jerusalem" {
		t.Fatalf("digest timezone should follow the default, got %q", cfg.Digest.Timezone)
	}
	if len(cfg.Digest.Groups) != 2 || cfg.Digest.Groups[1] != "b@g.us" {
		t.Fatalf("groups = %v", cfg.Digest.Groups)
	}
	if cfg.WAHA.GroupsTTL != 90*time.Second {
		t.Fatalf("ttl = %s", cfg.WAHA.GroupsTTL)
	}
	if cfg.Notify.WebhookHeaders["X-Team"] != "ops" || cfg.Notify.WebhookHeaders["Authorization"] != "Bearer x" {
		t.Fatalf("headers = %v", cfg.Notify.WebhookHeaders)
	}
	if cfg.Storage.Bucket != "legacy" {
		t.Fatalf("bucket = %q", cfg.Storage.Bucket)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		ok   bool
	}{
		{"memory", map[string]string{"DB_DRIVER": "memory"}, true},
		{"bad timezone", map[string]string{"DEFAULT_TIMEZONE": "Mars/Olympus"}, false},
		{"bad driver", map[string]string{"DB_DRIVER": "mongo"}, false},
		{"bad provider", map[string]string{"SUMMARY_PROVIDER": "magic"}, false},
		{"bad webhook", map[string]string{"NOTIFY_WEBHOOK_URL": "not a url"}, false},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			err := Load().Validate()
			if (err == nil) != tc.ok {
				t.Fatalf("Validate() = %v, ok=%v", err, tc.ok)
			}
		})
	}
}
