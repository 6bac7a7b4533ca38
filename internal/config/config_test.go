package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validConfig = `
app:
  name: courtmatch
  environment: test
  port: 8080
database:
  driver: sqlite
  filename: courtmatch.db
pubsub:
  project_id: test-project
  topic_prefix: courtmatch-
features:
  enable_metrics: true
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.App.Name != "courtmatch" {
		t.Errorf("app name = %q", cfg.App.Name)
	}
	if cfg.App.Port != 8080 {
		t.Errorf("port = %d", cfg.App.Port)
	}
	if cfg.Database.Filename != "courtmatch.db" {
		t.Errorf("database filename = %q", cfg.Database.Filename)
	}
	if !cfg.Features.EnableMetrics {
		t.Error("metrics should be enabled")
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"missing name", `
app:
  port: 8080
database:
  driver: sqlite
  filename: test.db
`},
		{"missing port", `
app:
  name: courtmatch
database:
  driver: sqlite
  filename: test.db
`},
		{"unsupported driver", `
app:
  name: courtmatch
  port: 8080
database:
  driver: postgres
  filename: test.db
`},
		{"sender without region", `
app:
  name: courtmatch
  port: 8080
database:
  driver: sqlite
  filename: test.db
email:
  sender: noreply@example.com
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.contents)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
