package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-g", "127.0.0.1:9091", "-d", "db", "-s", "secret", "-k", "email-secret",
				"-t", "5", "-v", "48", "-b", "https://api.example.com/", "-m", "smtp.example.com", "-P", "2525",
				"-u", "user", "-p", "password", "-f", "noreply@example.com", "-w", "4", "-q", "10", "-l", "debug",
			},
			expected: &Config{
				EndpointAddrHTTP:            "127.0.0.1:9090",
				EndpointAddrGRPC:            "127.0.0.1:9091",
				DatabaseDSN:                 "db",
				SecretKey:                   "secret",
				EmailSecretKey:              "email-secret",
				AccessTokenValidityDuration: 5 * time.Minute,
				EmailTokenValidityDuration:  48 * time.Hour,
				PublicBaseURL:               "https://api.example.com/",
				SMTPHost:                    "smtp.example.com",
				SMTPPort:                    2525,
				SMTPUser:                    "user",
				SMTPPassword:                "password",
				MailFrom:                    "noreply@example.com",
				MailWorkers:                 4,
				MailQueueSize:               10,
				LogLevel:                    "debug",
			},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"cmd", "-x", "1", "-d", "db"},
			expected: &Config{
				DatabaseDSN: "db",
			},
		},
		{
			name:        "bad integer panics",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := os.Args
			t.Cleanup(func() { os.Args = orig })
			os.Args = tt.args

			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}

			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

func TestParseFlags_KeepsDurationsWhenAbsent(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = []string{"cmd", "-a", ":1"}

	config := &Config{
		AccessTokenValidityDuration: 90 * time.Second,
		EmailTokenValidityDuration:  30 * time.Minute,
	}
	parseFlags(config)

	assert.Equal(t, 90*time.Second, config.AccessTokenValidityDuration)
	assert.Equal(t, 30*time.Minute, config.EmailTokenValidityDuration)
}
