// Package config loads process configuration from an optional .env file,
// an optional YAML file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: http.port is DISPATCH_HTTP_PORT.
const EnvPrefix = "DISPATCH"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Auth      AuthConfig      `mapstructure:"auth"`
	NLU       NLUConfig       `mapstructure:"nlu"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

type HTTPConfig struct {
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type CatalogConfig struct {
	Path     string        `mapstructure:"path"`
	IconsDir string        `mapstructure:"icons_dir"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type NLUConfig struct {
	Provider string        `mapstructure:"provider"` // zhipu | gemini | none
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type AgentConfig struct {
	Kind    string        `mapstructure:"kind"` // exec | mqtt
	Timeout time.Duration `mapstructure:"timeout"`
	Exec    ExecConfig    `mapstructure:"exec"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
}

type ExecConfig struct {
	Program     string   `mapstructure:"program"`
	Args        []string `mapstructure:"args"`
	Dir         string   `mapstructure:"dir"`
	Env         []string `mapstructure:"env"`
	OutputLimit int      `mapstructure:"output_limit"`
}

type MQTTConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	TLS         bool   `mapstructure:"tls"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         int    `mapstructure:"qos"`
}

type SchedulerConfig struct {
	Tick     time.Duration `mapstructure:"tick"`
	Timezone string        `mapstructure:"timezone"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"` // console | json
	Backlog int    `mapstructure:"backlog"`
}

// legacyEnv lists environment names kept from earlier deployments.
var legacyEnv = map[string][]string{
	"nlu.api_key":       {"ZHIPU_API_KEY"},
	"nlu.base_url":      {"ZHIPU_API_BASE_URL"},
	"nlu.model":         {"ZHIPU_MODEL"},
	"catalog.icons_dir": {"ICONS_DIR"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("db.path", "app.db")
	v.SetDefault("catalog.path", "configs/devices.yml")
	v.SetDefault("catalog.icons_dir", "icons")
	v.SetDefault("catalog.watch", true)
	v.SetDefault("catalog.debounce", 200*time.Millisecond)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("nlu.provider", "zhipu")
	v.SetDefault("nlu.api_key", "")
	v.SetDefault("nlu.base_url", "")
	v.SetDefault("nlu.model", "")
	v.SetDefault("nlu.timeout", 10*time.Second)
	v.SetDefault("agent.kind", "exec")
	v.SetDefault("agent.timeout", 30*time.Second)
	v.SetDefault("agent.exec.program", "autoglm")
	v.SetDefault("agent.exec.args", []string{})
	v.SetDefault("agent.exec.dir", "")
	v.SetDefault("agent.exec.env", []string{})
	v.SetDefault("agent.exec.output_limit", 64<<10)
	v.SetDefault("agent.mqtt.host", "")
	v.SetDefault("agent.mqtt.port", 1883)
	v.SetDefault("agent.mqtt.tls", false)
	v.SetDefault("agent.mqtt.client_id", "home-dispatch")
	v.SetDefault("agent.mqtt.username", "")
	v.SetDefault("agent.mqtt.password", "")
	v.SetDefault("agent.mqtt.topic_prefix", "home/agent")
	v.SetDefault("agent.mqtt.qos", 1)
	v.SetDefault("scheduler.tick", time.Second)
	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.backlog", 100)
}

// Load reads configuration. path may be empty, in which case configs/config.yml
// is used when it exists. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envName := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envName}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HTTP.CORSOrigins = splitList(cfg.HTTP.CORSOrigins)
	return &cfg, nil
}

// Validate checks everything the serve command needs.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if c.HTTP.Port == "" {
		add("http.port is required")
	}
	if c.DB.Path == "" {
		add("db.path is required")
	}
	if c.Catalog.Path == "" {
		add("catalog.path is required")
	}
	if c.Auth.SigningKey == "" {
		add("auth.signing_key is required")
	}
	if c.Auth.TokenTTL <= 0 {
		add("auth.token_ttl must be positive")
	}
	switch c.NLU.Provider {
	case "zhipu", "gemini", "none", "":
	default:
		add("nlu.provider %q is not one of zhipu, gemini, none", c.NLU.Provider)
	}
	if c.NLU.Timeout <= 0 {
		add("nlu.timeout must be positive")
	}
	switch c.Agent.Kind {
	case "exec":
		if c.Agent.Exec.Program == "" {
			add("agent.exec.program is required for agent.kind=exec")
		}
	case "mqtt":
		if c.Agent.MQTT.Host == "" {
			add("agent.mqtt.host is required for agent.kind=mqtt")
		}
		if c.Agent.MQTT.QoS < 0 || c.Agent.MQTT.QoS > 2 {
			add("agent.mqtt.qos must be 0, 1 or 2")
		}
	default:
		add("agent.kind %q is not one of exec, mqtt", c.Agent.Kind)
	}
	if c.Agent.Timeout <= 0 {
		add("agent.timeout must be positive")
	}
	if c.Scheduler.Tick <= 0 {
		add("scheduler.tick must be positive")
	}
	if _, err := c.Location(); err != nil {
		add("scheduler.timezone: %v", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		add("log.format %q is not one of console, json", c.Log.Format)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Location resolves scheduler.timezone. Empty and "Local" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Scheduler.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	return time.LoadLocation(c.Scheduler.Timezone)
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
