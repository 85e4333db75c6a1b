package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "testdb", cfg.Database.Name)
				assert.Equal(t, "testuser", cfg.Database.User)
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.Database.PoolSize)
				assert.Equal(t, 3, cfg.Detector.MaxRetries)
				assert.Equal(t, 250*time.Millisecond, cfg.Detector.RetryBackoff)
				assert.Equal(t, 100, cfg.Feed.PageSize)
				assert.Equal(t, 30*time.Second, cfg.Feed.Timeout)
				assert.Equal(t, 4, cfg.Jobs.MaxConcurrent)
				assert.InDelta(t, 2.0, cfg.Jobs.BatchesPerSecond, 1e-9)
				assert.Equal(t, 2*time.Hour, cfg.Jobs.StaleRunTimeout)
				assert.Equal(t, 90, cfg.Retention.MaxAgeDays)
				assert.Equal(t, 24*time.Hour, cfg.Retention.CleanupInterval)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
  password: ${TEST_DB_PASSWORD}
`,
			envVars: map[string]string{"TEST_DB_PASSWORD": "s3cret"},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "s3cret", cfg.Database.Password)
			},
		},
		{
			name: "clients with discount rules",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
clients:
  - name: acme
    target_urls:
      - https://acme.com/catalog
    categories: [widgets, gadgets]
    max_pages: 5
    discount_rules:
      - percent_off: 10
      - absolute_off: 2.5
    schedule: "0 3 * * *"
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				require.Len(t, cfg.Clients, 1)
				c := cfg.Clients[0]
				assert.Equal(t, "acme", c.Name)
				assert.Equal(t, []string{"https://acme.com/catalog"}, c.TargetURLs)
				assert.Equal(t, 5, c.MaxPages)
				require.Len(t, c.DiscountRules, 2)
				assert.InDelta(t, 10.0, c.DiscountRules[0].PercentOff, 1e-9)
				assert.InDelta(t, 2.5, c.DiscountRules[1].AbsoluteOff, 1e-9)

				rc := c.RunConfig()
				assert.Equal(t, c.TargetURLs, rc.TargetURLs)
				assert.Equal(t, c.Categories, rc.Categories)
			},
		},
		{
			name: "missing database host fails validation",
			yaml: `
database:
  name: testdb
  user: testuser
`,
			wantErr: "database.host is required",
		},
		{
			name: "missing database name and user reports both",
			yaml: `
database:
  host: localhost
`,
			wantErr: "database.name is required",
		},
		{
			name: "client without name fails validation",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
clients:
  - target_urls: [https://acme.com]
`,
			wantErr: "clients[0].name is required",
		},
		{
			name: "duplicate client names fail validation",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
clients:
  - name: acme
  - name: acme
`,
			wantErr: `clients[1].name "acme" is duplicated`,
		},
		{
			name: "discount percent out of range fails validation",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
clients:
  - name: acme
    discount_rules:
      - percent_off: 150
`,
			wantErr: "percent_off must be within [0, 100]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.checkFunc(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	d := &DatabaseConfig{
		Host: "db", Port: 5433, Name: "catalog", User: "svc",
		Password: "pw", SSLMode: "require",
	}
	assert.Equal(
		t,
		"host=db port=5433 dbname=catalog user=svc password=pw sslmode=require",
		d.DSN(),
	)
}
