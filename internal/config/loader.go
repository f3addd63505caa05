package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultEnvPrefix 环境变量前缀
const DefaultEnvPrefix = "NEORECON"

// ConfigLoader 配置加载器
type ConfigLoader struct {
	configPath string
	envPrefix  string
	viper      *viper.Viper
	// 配置文件缺失时是否使用默认值继续 (CLI 模式)
	allowMissing bool
}

// NewConfigLoader 创建配置加载器
func NewConfigLoader(configPath, envPrefix string) *ConfigLoader {
	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}

	return &ConfigLoader{
		configPath:   configPath,
		envPrefix:    envPrefix,
		viper:        viper.New(),
		allowMissing: true,
	}
}

// RequireFile 要求配置文件必须存在 (serve 模式)
func (cl *ConfigLoader) RequireFile() *ConfigLoader {
	cl.allowMissing = false
	return cl
}

// Viper 暴露底层 viper，便于 CLI 绑定 flag
func (cl *ConfigLoader) Viper() *viper.Viper {
	return cl.viper
}

// LoadConfig 加载配置
func (cl *ConfigLoader) LoadConfig() (*Config, error) {
	cl.viper.SetConfigType("yaml")

	// 环境变量: NEORECON_SCAN_THREADS -> scan.threads
	cl.viper.SetEnvPrefix(cl.envPrefix)
	cl.viper.AutomaticEnv()
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cl.bindEnvVars()
	cl.setDefaults()

	if err := cl.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	var config Config
	if err := cl.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cl.validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// loadConfigFile 加载配置文件
func (cl *ConfigLoader) loadConfigFile() error {
	// 显式指定了文件
	if strings.HasSuffix(cl.configPath, ".yaml") || strings.HasSuffix(cl.configPath, ".yml") {
		cl.viper.SetConfigFile(cl.configPath)
		return cl.viper.ReadInConfig()
	}

	if cl.configPath == "" {
		cl.configPath = NewEnvManager(cl.envPrefix).GetString("CONFIG_PATH", "./configs")
	}

	cl.viper.AddConfigPath(cl.configPath)
	cl.viper.AddConfigPath("./configs")
	cl.viper.AddConfigPath(".")

	// 先尝试环境特定的配置文件 config.<env>.yaml
	cl.viper.SetConfigName(fmt.Sprintf("config.%s", cl.getEnvironment()))
	if err := cl.viper.ReadInConfig(); err == nil {
		return nil
	}

	cl.viper.SetConfigName("config")
	if err := cl.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cl.allowMissing {
			return nil
		}
		return fmt.Errorf("config file not found: %w", err)
	}
	return nil
}

// getEnvironment 获取运行环境
func (cl *ConfigLoader) getEnvironment() string {
	env := NewEnvManager(cl.envPrefix).GetString("ENV", os.Getenv("GO_ENV"))
	if env == "" {
		env = "development"
	}
	return env
}

// bindEnvVars 绑定不符合自动映射规则的环境变量
func (cl *ConfigLoader) bindEnvVars() {
	cl.viper.BindEnv("intel.nvd_api_key", cl.envPrefix+"_NVD_API_KEY", "NVD_API_KEY")
	cl.viper.BindEnv("log.level", cl.envPrefix+"_LOG_LEVEL")
	cl.viper.BindEnv("log.file_path", cl.envPrefix+"_LOG_FILE_PATH")
	cl.viper.BindEnv("proxy.url", cl.envPrefix+"_PROXY_URL", "ALL_PROXY")
	cl.viper.BindEnv("store.database.password", cl.envPrefix+"_DB_PASSWORD")
	cl.viper.BindEnv("store.redis.password", cl.envPrefix+"_REDIS_PASSWORD")
}

// setDefaults 设置默认值
func (cl *ConfigLoader) setDefaults() {
	v := cl.viper

	v.SetDefault("app.name", "NeoRecon")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "./logs/recon.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.caller", false)

	v.SetDefault("scan.threads", 10)
	v.SetDefault("scan.timeout", "1s")
	v.SetDefault("scan.ping_timeout", "1s")
	v.SetDefault("scan.privileged_ping", false)
	v.SetDefault("scan.banner_buffer_size", 2048)
	v.SetDefault("scan.credential_limit", 20)

	v.SetDefault("intel.nvd_url", "https://services.nvd.nist.gov/rest/json/cves/2.0")
	v.SetDefault("intel.mitre_url", "https://cveawg.mitre.org/api/cve")
	v.SetDefault("intel.circl_url", "https://cve.circl.lu/api/cve")
	v.SetDefault("intel.exploitdb_url", "https://www.exploit-db.com/search")
	v.SetDefault("intel.kev_url", "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json")
	v.SetDefault("intel.timeout", "10s")
	v.SetDefault("intel.enrich_timeout", "5s")
	v.SetDefault("intel.enrich_all_sources", true)
	v.SetDefault("intel.user_agent", "NeoRecon-Vulnerability-Scanner/1.0")

	v.SetDefault("proxy.enabled", false)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.database.host", "localhost")
	v.SetDefault("store.database.port", 3306)
	v.SetDefault("store.database.database", "neorecon")
	v.SetDefault("store.database.charset", "utf8mb4")
	v.SetDefault("store.database.max_idle_conns", 10)
	v.SetDefault("store.database.max_open_conns", 50)
	v.SetDefault("store.database.conn_max_lifetime", "1h")
	v.SetDefault("store.redis.enabled", false)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "neorecon:cve:")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.api_version", "v1")
	v.SetDefault("server.prefix", "/api")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.rate_limit", 5)
	v.SetDefault("server.rate_burst", 10)
}

// validateConfig 验证配置
func (cl *ConfigLoader) validateConfig(config *Config) error {
	if config.Scan == nil || config.Intel == nil || config.Server == nil || config.Log == nil {
		return fmt.Errorf("incomplete configuration")
	}

	if config.Scan.Threads < 1 || config.Scan.Threads > 1000 {
		return fmt.Errorf("invalid scan threads: %d (must be 1-1000)", config.Scan.Threads)
	}

	if config.Scan.BannerBufferSize < 2048 {
		return fmt.Errorf("banner buffer size must be at least 2048 bytes, got %d", config.Scan.BannerBufferSize)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Proxy != nil && config.Proxy.Enabled && config.Proxy.URL == "" {
		return fmt.Errorf("proxy enabled but proxy.url is empty")
	}

	if config.Log.Output == "file" && config.Log.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.Log.FilePath), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	return nil
}

// GetConfigPath 获取配置文件路径
func (cl *ConfigLoader) GetConfigPath() string {
	return cl.viper.ConfigFileUsed()
}

// LoadConfigFromFile 从指定文件加载配置
func LoadConfigFromFile(configFile string) (*Config, error) {
	return NewConfigLoader(configFile, DefaultEnvPrefix).RequireFile().LoadConfig()
}

// Default 不要求配置文件，仅使用默认值、环境变量以及工作目录下可选的 config.yaml
func Default() (*Config, error) {
	return NewConfigLoader("", DefaultEnvPrefix).LoadConfig()
}
