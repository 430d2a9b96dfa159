package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
		wantErr string
	}{
		{
			name: "applies defaults",
			content: `
jwt:
  secret: test-secret
storage:
  local_path: ` + filepath.Join(os.TempDir(), "study-uploads") + `
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "8080", cfg.Server.Port)
				assert.Equal(t, 72*time.Hour, cfg.JWT.ExpireTime)
				assert.Equal(t, 1, cfg.Engine.Flashcard.MinDifficulty)
				assert.Equal(t, 5, cfg.Engine.Flashcard.MaxDifficulty)
				assert.Equal(t, 10*time.Minute, cfg.Engine.Flashcard.HardDelay)
				assert.Equal(t, 24*time.Hour, cfg.Engine.Flashcard.EasyBaseInterval)
				assert.Equal(t, "debug", cfg.EffectiveLogLevel())
			},
		},
		{
			name: "reads durations and overrides",
			content: `
server:
  mode: test
log:
  level: warn
jwt:
  secret: test-secret
  expire_hours: 1
storage:
  local_path: ` + filepath.Join(os.TempDir(), "study-uploads") + `
engine:
  timezone: Asia/Shanghai
  flashcard:
    max_difficulty: 7
    hard_delay: 5m
    easy_base_interval: 12h
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, time.Hour, cfg.JWT.ExpireTime)
				assert.Equal(t, 7, cfg.Engine.Flashcard.MaxDifficulty)
				assert.Equal(t, 5*time.Minute, cfg.Engine.Flashcard.HardDelay)
				assert.Equal(t, "warn", cfg.EffectiveLogLevel())
				loc, err := cfg.Location()
				require.NoError(t, err)
				assert.Equal(t, "Asia/Shanghai", loc.String())
			},
		},
		{
			name: "rejects inverted difficulty bounds",
			content: `
jwt:
  secret: test-secret
engine:
  flashcard:
    min_difficulty: 4
    max_difficulty: 2
`,
			wantErr: "MaxDifficulty",
		},
		{
			name: "rejects short secret in release mode",
			content: `
server:
  mode: release
jwt:
  secret: short
`,
			wantErr: "JWT secret is too short",
		},
		{
			name: "rejects unknown timezone",
			content: `
jwt:
  secret: test-secret
engine:
  timezone: Mars/Olympus
`,
			wantErr: "engine.timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, tt.content)

			cfg, err := LoadConfig(dir)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
