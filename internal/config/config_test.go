package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Scan.Threads)
	assert.Equal(t, time.Second, cfg.Scan.Timeout)
	assert.Equal(t, 2048, cfg.Scan.BannerBufferSize)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "neorecon:cve:", cfg.Store.Redis.Prefix)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, 5.0, cfg.Server.RateLimit)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
log:
  level: debug
scan:
  threads: 20
  timeout: 2s
  nameservers: ["1.1.1.1"]
server:
  port: 9000
  api_key: secret
`)
	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 20, cfg.Scan.Threads)
	assert.Equal(t, 2*time.Second, cfg.Scan.Timeout)
	assert.Equal(t, []string{"1.1.1.1"}, cfg.Scan.Nameservers)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.APIKey)
	// 未写的字段保持默认值
	assert.Equal(t, "v1", cfg.Server.APIVersion)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"threads", "scan:\n  threads: 0\n"},
		{"banner buffer", "scan:\n  banner_buffer_size: 512\n"},
		{"server port", "server:\n  port: 70000\n"},
		{"proxy url", "proxy:\n  enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".yaml", tt.content)
			_, err := LoadConfigFromFile(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadConfigFromFile(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NEORECON_SCAN_THREADS", "33")
	t.Setenv("NVD_API_KEY", "nvd-key")

	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 33, cfg.Scan.Threads)
	assert.Equal(t, "nvd-key", cfg.Intel.NVDAPIKey)
}

func TestSaveToFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Default()
	require.NoError(t, err)
	cfg.Scan.Threads = 42

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Scan.Threads)
	assert.Equal(t, cfg.Scan.Timeout, loaded.Scan.Timeout)
	assert.Equal(t, cfg.Server.Addr(), loaded.Server.Addr())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "NEORECON_DOTENV_PROBE=loaded\n")
	t.Cleanup(func() { os.Unsetenv("NEORECON_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("NEORECON_DOTENV_PROBE"))
}

func TestMySQLDSN(t *testing.T) {
	c := &MySQLConfig{Host: "db", Port: 3306, Username: "u", Password: "p", Database: "recon", Charset: "utf8mb4"}
	assert.Equal(t, "u:p@tcp(db:3306)/recon?charset=utf8mb4&parseTime=True&loc=Local", c.DSN())
}

func TestConfigWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "log:\n  level: info\n")
	initial, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	w, err := NewConfigWatcher(path, initial)
	require.NoError(t, err)
	w.reloadDelay = 50 * time.Millisecond

	changed := make(chan string, 1)
	w.AddCallback(func(oldCfg, newCfg *Config) error {
		if oldCfg.Log.Level != newCfg.Log.Level {
			select {
			case changed <- newCfg.Log.Level:
			default:
			}
		}
		return nil
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	select {
	case level := <-changed:
		assert.Equal(t, "debug", level)
	case <-time.After(5 * time.Second):
		t.Fatal("config reload callback not called")
	}
	assert.Eventually(t, func() bool { return w.GetConfig().Log.Level == "debug" }, time.Second, 10*time.Millisecond)
}

func TestNewConfigWatcher_EmptyPath(t *testing.T) {
	_, err := NewConfigWatcher("", nil)
	assert.Error(t, err)
}

func TestEnvManager(t *testing.T) {
	t.Setenv("NEORECON_CONFIG_PATH", "/etc/neorecon")
	em := NewEnvManager("")
	assert.Equal(t, "/etc/neorecon", em.GetString("config_path", "./configs"))
	assert.Equal(t, "fallback", em.GetString("UNSET_KEY", "fallback"))
}
