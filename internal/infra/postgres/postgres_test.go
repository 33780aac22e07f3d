package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifan077/curto/config"
)

func TestConnString(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "defaults to prefer",
			cfg:  config.DatabaseConfig{URL: "postgres://user:pw@db:5432/links"},
			want: "postgres://user:pw@db:5432/links?sslmode=prefer",
		},
		{
			name: "keeps explicit mode",
			cfg:  config.DatabaseConfig{URL: "postgres://db/links?sslmode=disable"},
			want: "postgres://db/links?sslmode=disable",
		},
		{
			name: "require overrides url",
			cfg:  config.DatabaseConfig{URL: "postgresql://db/links?sslmode=disable", RequireSSL: true},
			want: "postgresql://db/links?sslmode=require",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ConnString(tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConnStringRejectsOtherSchemes(t *testing.T) {
	_, err := ConnString(config.DatabaseConfig{URL: "mysql://db/links"})
	assert.Error(t, err)
}
