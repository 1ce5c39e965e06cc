package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresBotToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CONFESSION_COOLDOWN", "")
	t.Setenv("ADMIN_IDS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite://confide.db", cfg.DatabaseURL)
	assert.Equal(t, 60*time.Second, cfg.ConfessionCooldown)
	assert.Empty(t, cfg.AdminIDs)
}

func TestLoadParsesCooldown(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("CONFESSION_COOLDOWN", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.ConfessionCooldown)

	t.Setenv("CONFESSION_COOLDOWN", "soon")
	_, err = Load()
	require.Error(t, err)
}

func TestParseAdminIDs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "42", want: []int64{42}},
		{name: "list with spaces", raw: "1, 2,3 ", want: []int64{1, 2, 3}},
		{name: "garbage entry", raw: "1,abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAdminIDs(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{AdminIDs: []int64{10, 20}}
	assert.True(t, cfg.IsAdmin(10))
	assert.False(t, cfg.IsAdmin(30))
	assert.False(t, (&Config{}).IsAdmin(10))
}
