package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseJWKSEndpoints(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "empty string",
			input: "",
			want:  map[string]string{},
		},
		{
			name:  "single pair",
			input: "https://auth.vibeship.dev=https://auth.vibeship.dev/.well-known/jwks.json",
			want: map[string]string{
				"https://auth.vibeship.dev": "https://auth.vibeship.dev/.well-known/jwks.json",
			},
		},
		{
			name:  "multiple pairs with whitespace",
			input: "a=1, b=2",
			want:  map[string]string{"a": "1", "b": "2"},
		},
		{
			name:  "malformed pair skipped",
			input: "a=1,garbage,b=2",
			want:  map[string]string{"a": "1", "b": "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseJWKSEndpoints(tt.input))
		})
	}
}

func TestDatabaseConnectionString(t *testing.T) {
	c := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "vibeship",
		Password: "hunter2",
		Database: "vibeship_engine",
		SSLMode:  "require",
	}

	got := c.ConnectionString()
	assert.Equal(t, "host=db.internal port=5433 user=vibeship password=hunter2 dbname=vibeship_engine sslmode=require", got)
}
