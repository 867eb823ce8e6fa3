package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		errMsg  string
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
				"JWT_SECRET":  testSecret,
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.False(t, cfg.Server.TLS.Enabled)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.True(t, cfg.Database.AutoMigrate)
				assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
				assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
				assert.Empty(t, cfg.JWT.Issuer)
				assert.Equal(t, 10, cfg.Auth.BcryptCost)
				assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, "info", cfg.Observability.LogLevel)
				assert.Equal(t, "json", cfg.Observability.LogFormat)
			},
		},
		{
			name: "jwt settings",
			envVars: map[string]string{
				"JWT_SECRET": testSecret,
				"JWT_TTL":    "90m",
				"JWT_ISSUER": "security-api",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, testSecret, cfg.JWT.Secret)
				assert.Equal(t, 90*time.Minute, cfg.JWT.TTL)
				assert.Equal(t, "security-api", cfg.JWT.Issuer)
			},
		},
		{
			name:    "missing jwt secret",
			envVars: map[string]string{"ENVIRONMENT": "development"},
			wantErr: true,
			errMsg:  "JWT_SECRET is required",
		},
		{
			name:    "short jwt secret",
			envVars: map[string]string{"JWT_SECRET": "short"},
			wantErr: true,
			errMsg:  "at least 32 bytes",
		},
		{
			name: "ttl out of range",
			envVars: map[string]string{
				"JWT_SECRET": testSecret,
				"JWT_TTL":    "500ms",
			},
			wantErr: true,
			errMsg:  "JWT_TTL",
		},
		{
			name: "memory store",
			envVars: map[string]string{
				"JWT_SECRET":   testSecret,
				"STORE_DRIVER": "MEMORY",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
			},
		},
		{
			name: "memory store rejected in production",
			envVars: map[string]string{
				"ENVIRONMENT":  "production",
				"JWT_SECRET":   testSecret,
				"STORE_DRIVER": "memory",
			},
			wantErr: true,
			errMsg:  "memory store",
		},
		{
			name: "unknown store driver",
			envVars: map[string]string{
				"JWT_SECRET":   testSecret,
				"STORE_DRIVER": "redis",
			},
			wantErr: true,
			errMsg:  "unknown store driver",
		},
		{
			name: "bcrypt cost out of range",
			envVars: map[string]string{
				"JWT_SECRET":  testSecret,
				"BCRYPT_COST": "99",
			},
			wantErr: true,
			errMsg:  "BCRYPT_COST",
		},
		{
			name: "database url takes precedence",
			envVars: map[string]string{
				"JWT_SECRET":      testSecret,
				"DATABASE_URL":    "postgres://u:p@db.internal:6543/auth?sslmode=require",
				"DB_AUTO_MIGRATE": "false",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://u:p@db.internal:6543/auth?sslmode=require", cfg.Database.DSN())
				assert.Equal(t, "host=db.internal port=6543 database=auth", cfg.Database.LogString())
				assert.False(t, cfg.Database.AutoMigrate)
			},
		},
		{
			name: "custom timeouts and pool settings",
			envVars: map[string]string{
				"JWT_SECRET":           testSecret,
				"SERVER_READ_TIMEOUT":  "60s",
				"SERVER_WRITE_TIMEOUT": "90s",
				"DB_MAX_OPEN_CONNS":    "50",
				"DB_MAX_IDLE_CONNS":    "10",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 50, cfg.Database.MaxOpenConns)
				assert.Equal(t, 10, cfg.Database.MaxIdleConns)
			},
		},
		{
			name: "cors and logging",
			envVars: map[string]string{
				"JWT_SECRET":           testSecret,
				"CORS_ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com,",
				"LOG_LEVEL":            "debug",
				"LOG_FORMAT":           "console",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "console", cfg.Observability.LogFormat)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"JWT_SECRET":  testSecret,
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Database: DatabaseConfig{
			Host:     "localhost",
			User:     "user",
			Database: "db",
		},
		Store:         StoreConfig{Driver: StoreDriverPostgres},
		JWT:           JWTConfig{Secret: testSecret, TTL: time.Hour},
		Auth:          AuthConfig{BcryptCost: 10},
		Observability: ObservabilityConfig{LogLevel: "info", LogFormat: "json"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:   "missing database host",
			mutate: func(c *Config) { c.Database.Host = "" },
			errMsg: "database configuration required",
		},
		{
			name:   "missing database user",
			mutate: func(c *Config) { c.Database.User = "" },
			errMsg: "database user is required",
		},
		{
			name:   "missing database name",
			mutate: func(c *Config) { c.Database.Database = "" },
			errMsg: "database name is required",
		},
		{
			name: "memory store ignores database",
			mutate: func(c *Config) {
				c.Store.Driver = StoreDriverMemory
				c.Database = DatabaseConfig{}
			},
		},
		{
			name:   "missing log level",
			mutate: func(c *Config) { c.Observability.LogLevel = "" },
			errMsg: "log level is required",
		},
		{
			name:   "unknown log format",
			mutate: func(c *Config) { c.Observability.LogFormat = "xml" },
			errMsg: "LOG_FORMAT",
		},
		{
			name:   "ttl too long",
			mutate: func(c *Config) { c.JWT.TTL = 400 * 24 * time.Hour },
			errMsg: "JWT_TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "testpass")
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "42", 10, 42},
		{"empty value", "", 10, 10},
		{"invalid int", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_INT", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"empty value", "", true, true},
		{"invalid bool", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "30s", 10 * time.Second, 30 * time.Second},
		{"empty value", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_DURATION", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, []string{"x"}, getEnvAsSlice("TEST_SLICE", []string{"x"}))

	os.Setenv("TEST_SLICE", " a ,b,, c ")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsSlice("TEST_SLICE", nil))

	os.Setenv("TEST_SLICE", " , ")
	assert.Equal(t, []string{"x"}, getEnvAsSlice("TEST_SLICE", []string{"x"}))
}
