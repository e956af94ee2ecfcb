package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "almi-settlements", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AccessTokenExpiration)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.NotEmpty(t, cfg.JWT.Secret)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ALMI_DATABASE_HOST", "db.internal")
	t.Setenv("ALMI_APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "9090", cfg.App.Port)
}

func TestValidate_Production(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "missing jwt secret",
			cfg: Config{
				App: AppConfig{Env: "production"},
				Log: LogConfig{Level: "info"},
			},
			wantErr: "jwt.secret is required",
		},
		{
			name: "short jwt secret",
			cfg: Config{
				App: AppConfig{Env: "production"},
				JWT: JWTConfig{Secret: "too-short"},
				Log: LogConfig{Level: "info"},
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "missing database password",
			cfg: Config{
				App: AppConfig{Env: "production"},
				JWT: JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
				Log: LogConfig{Level: "info"},
			},
			wantErr: "database.password is required",
		},
		{
			name: "invalid log level",
			cfg: Config{
				App: AppConfig{Env: "development"},
				Log: LogConfig{Level: "verbose"},
			},
			wantErr: "log.level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	dsn := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "postgres",
		Password: "secret", DBName: "almi", SSLMode: "disable",
	}.DSN()
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=almi sslmode=disable", dsn)
}
