package core

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		orig, had := os.LookupEnv(k)
		require.NoError(t, os.Setenv(k, v))
		k := k
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(k, orig)
			} else {
				_ = os.Unsetenv(k)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		conf    Config
		wantErr string
	}{
		{
			name:    "nothing set",
			wantErr: "missing required configuration: database.host, secret_key",
		},
		{
			name:    "no secret key",
			conf:    Config{Database: DatabaseConfig{Host: "localhost"}},
			wantErr: "missing required configuration: secret_key",
		},
		{
			name:    "no database host",
			conf:    Config{SecretKey: "secret"},
			wantErr: "missing required configuration: database.host",
		},
		{
			name:    "unknown timezone",
			conf:    Config{SecretKey: "secret", Database: DatabaseConfig{Host: "localhost"}, Timezone: "Africa/Nowhere"},
			wantErr: `loading timezone "Africa/Nowhere": unknown time zone Africa/Nowhere`,
		},
		{
			name: "ok",
			conf: Config{SecretKey: "secret", Database: DatabaseConfig{Host: "localhost"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, time.Local, tt.conf.Location())
		})
	}
}

func TestNewConfig(t *testing.T) {
	setEnv(t, map[string]string{"ENV": "test"})

	t.Run("missing values", func(t *testing.T) {
		_, err := NewConfig()
		assert.Error(t, err)
	})

	t.Run("from env", func(t *testing.T) {
		setEnv(t, map[string]string{
			"TEST_DATABASE_HOST":     "db.internal",
			"TEST_SECRET_KEY":        "s3cr3t",
			"TEST_TIMEZONE":          "UTC",
			"TEST_SCAN_SESSION_TTL":  "5m",
			"TEST_SERVER_DEBUG_HOST": "127.0.0.1:4001",
		})

		conf, err := NewConfig()
		require.NoError(t, err)
		assert.Equal(t, "TEST", conf.Env)
		assert.True(t, conf.TestMode)
		assert.Equal(t, "db.internal:5432", conf.Database.Address())
		assert.Equal(t, "s3cr3t", conf.SecretKey)
		assert.Equal(t, 5*time.Minute, conf.Scan.SessionTTL)
		assert.Equal(t, "127.0.0.1:4001", conf.Server.DebugHost)
		assert.Equal(t, time.UTC, conf.Location())
	})
}
