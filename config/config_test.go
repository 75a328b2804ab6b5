package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_defaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.True(t, cfg.SeedAgenda)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 5, cfg.AuthRateLimit)
	assert.Equal(t, 15*time.Minute, cfg.AuthRateWindow)
	assert.Equal(t, "noop", cfg.Email.Provider)

	venue, err := cfg.Venue()
	require.NoError(t, err)
	assert.Equal(t, "America/Bogota", venue.String())
}

func TestLoad_overrides(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("SEED_AGENDA", "false")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://devopsdaymedellin.com, ,http://localhost:5173")
	t.Setenv("ADMIN_EMAIL", "admin@devopsdaymedellin.com")
	t.Setenv("ADMIN_PASSWORD", "Admin1234")
	t.Setenv("NOTIFIER_WORKERS", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.False(t, cfg.SeedAgenda)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, []string{"https://devopsdaymedellin.com", "http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "admin@devopsdaymedellin.com", cfg.AdminEmail)
	assert.Equal(t, 4, cfg.NotifierWorkers)
}

func TestLoad_errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "production default secret", env: map[string]string{"GO_ENV": "production"}, wantErr: "JWT_SECRET must be set in production"},
		{name: "bad duration", env: map[string]string{"JWT_EXPIRY": "forever"}, wantErr: "JWT_EXPIRY"},
		{name: "bad integer", env: map[string]string{"BCRYPT_COST": "ten"}, wantErr: "BCRYPT_COST"},
		{name: "unknown backend", env: map[string]string{"STORE_BACKEND": "redis"}, wantErr: "STORE_BACKEND"},
		{name: "admin without password", env: map[string]string{"ADMIN_EMAIL": "admin@example.com"}, wantErr: "ADMIN_EMAIL and ADMIN_PASSWORD"},
		{name: "ses without sender", env: map[string]string{"EMAIL_PROVIDER": "ses"}, wantErr: "EMAIL_FROM_ADDRESS"},
		{name: "bad timezone", env: map[string]string{"VENUE_TIMEZONE": "Mars/Olympus"}, wantErr: "VENUE_TIMEZONE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GO_ENV", "test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production", "warn")
	logger.Info("hidden")
	logger.Warn("shown", "talk_id", "t1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "t1", rec["talk_id"])

	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
