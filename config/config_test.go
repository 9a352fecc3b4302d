package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunfischtoast/gitlab-visualizer/internal/api"
	"github.com/thunfischtoast/gitlab-visualizer/internal/filter"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_AcceptsCommentsAndTrailingCommas(t *testing.T) {
	t.Setenv(EnvGitLabToken, "")
	t.Setenv(EnvGitLabURL, "")

	path := writeConfig(t, `{
		// instance
		"gitlab_url": "https://gitlab.example.com/",
		"token": "glpat-file",
		"enabled_scoped_keys": ["Team",],
	}`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.example.com", config.GitLabURL)
	assert.Equal(t, "glpat-file", config.Token)
	assert.Equal(t, api.AuthPAT, config.AuthMethod)
	assert.Equal(t, []string{"Team"}, config.EnabledScopedKeys)
	assert.Equal(t, DefaultWorkers, config.Workers)
	assert.Equal(t, filepath.Join(filepath.Dir(path), DefaultDatabasePath), config.DatabasePath)
	assert.True(t, config.HasConnection())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvGitLabToken, "glpat-env")
	t.Setenv(EnvGitLabURL, "https://env.example.com//")

	config, err := LoadConfig(writeConfig(t, `{"gitlab_url": "https://file.example.com", "token": "glpat-file"}`))
	require.NoError(t, err)

	assert.Equal(t, "glpat-env", config.Token)
	assert.Equal(t, "https://env.example.com", config.GitLabURL)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(EnvGitLabToken, "")
	t.Setenv(EnvGitLabURL, "")

	config, err := LoadConfig(writeConfig(t, `{"database_path": "/var/cache/glv.db"}`))
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/glv.db", config.DatabasePath)
	assert.Equal(t, filter.DefaultScopedKeys, config.EnabledScopedKeys)
	assert.False(t, config.HasConnection())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadConfig(writeConfig(t, `{"token": `))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"pat", Config{AuthMethod: api.AuthPAT}, false},
		{"oauth without refresh", Config{AuthMethod: api.AuthOAuth}, false},
		{"oauth refresh needs client id", Config{AuthMethod: api.AuthOAuth, RefreshToken: "r"}, true},
		{"oauth refresh", Config{AuthMethod: api.AuthOAuth, RefreshToken: "r", ClientID: "app"}, false},
		{"unknown method", Config{AuthMethod: "basic"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Setenv(EnvGitLabToken, "")
	t.Setenv(EnvGitLabURL, "")

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	require.NoError(t, CreateDefaultConfig(path))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.com", config.GitLabURL)
	assert.Equal(t, filter.DefaultScopedKeys, config.EnabledScopedKeys)

	// an existing file is left alone
	config.Token = "glpat-saved"
	require.NoError(t, SaveConfig(config, path))
	require.NoError(t, CreateDefaultConfig(path))

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "glpat-saved", reloaded.Token)
}

func TestLoadConfigOrDefault(t *testing.T) {
	t.Setenv(EnvGitLabToken, "glpat-env")
	t.Setenv(EnvGitLabURL, "")

	dir := t.TempDir()
	config, err := LoadConfigOrDefault(filepath.Join(dir, "config.json"))
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.com", config.GitLabURL)
	assert.Equal(t, "glpat-env", config.Token)
	assert.Equal(t, filepath.Join(dir, DefaultDatabasePath), config.DatabasePath)
	_, statErr := os.Stat(filepath.Join(dir, "config.json"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
