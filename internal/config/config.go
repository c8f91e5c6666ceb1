package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Accessory       AccessoryConfig `yaml:"accessory"`
	HomeKit         HomeKitConfig   `yaml:"homekit"`
	Device          DeviceConfig    `yaml:"device"`
	MQTT            MQTTConfig      `yaml:"mqtt"`
	HTTP            HTTPConfig      `yaml:"http"`
	Database        DatabaseConfig  `yaml:"database"`
	Ledger          LedgerConfig    `yaml:"ledger"`
	Log             LogConfig       `yaml:"log"`
	EventBus        EventBusConfig  `yaml:"eventbus"`
	ShutdownTimeout Duration        `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// AccessoryConfig describes the accessory as advertised to controllers
type AccessoryConfig struct {
	Name         string `yaml:"name"`
	SerialNumber string `yaml:"serial_number"`
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
	Firmware     string `yaml:"firmware"`
}

// HomeKitConfig contains HomeKit (HAP) server settings
type HomeKitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Pin         string `yaml:"pin"`          // 8 digits, e.g. 66666666
	SetupID     string `yaml:"setup_id"`     // 4 characters, used in the setup payload
	Addr        string `yaml:"addr"`         // listen address, empty = random port
	StoragePath string `yaml:"storage_path"` // pairing data directory
}

// DeviceConfig selects and tunes the device driver
type DeviceConfig struct {
	Driver       string         `yaml:"driver"` // yeelight, hue or log
	QueueSize    int            `yaml:"queue_size"`
	RateLimitRPS float64        `yaml:"rate_limit_rps"`
	Timeout      Duration       `yaml:"timeout"` // per-command timeout
	Yeelight     YeelightConfig `yaml:"yeelight"`
	Hue          HueConfig      `yaml:"hue"`
}

// YeelightConfig contains Yeelight bulb settings
type YeelightConfig struct {
	White    string   `yaml:"white"` // host or host:port of the white bulb
	Color    string   `yaml:"color"` // host or host:port of the color bulb
	Smooth   bool     `yaml:"smooth"`
	Duration Duration `yaml:"duration"` // transition duration when smooth
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge     string `yaml:"bridge"`
	Token      string `yaml:"token"`
	WhiteLight int    `yaml:"white_light"`
	ColorLight int    `yaml:"color_light"`
}

// MQTTConfig contains MQTT bridge settings
type MQTTConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Broker      string   `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID    string   `yaml:"client_id"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	TopicPrefix string   `yaml:"topic_prefix"`
	QoS         byte     `yaml:"qos"`
	Coalesce    Duration `yaml:"coalesce"` // batch state publishes, 0 = publish every write
}

// HTTPConfig contains HTTP API and health check settings
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// GetHost returns the listen host with default
func (c *HTTPConfig) GetHost() string {
	if c.Host == "" {
		return "0.0.0.0"
	}
	return c.Host
}

// GetPort returns the listen port with default
func (c *HTTPConfig) GetPort() int {
	if c.Port == 0 {
		return 8080
	}
	return c.Port
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// Retention returns the retention period as a duration
func (c *LedgerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 2)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 2
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// GetShutdownTimeout returns the shutdown timeout as a time.Duration
func (c *Config) GetShutdownTimeout() time.Duration {
	return c.ShutdownTimeout.Duration()
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./duolight.sqlite"
	}

	// Accessory defaults
	if cfg.Accessory.Name == "" {
		cfg.Accessory.Name = "Ceiling Light"
	}
	if cfg.Accessory.SerialNumber == "" {
		cfg.Accessory.SerialNumber = "RE:2107"
	}
	if cfg.Accessory.Manufacturer == "" {
		cfg.Accessory.Manufacturer = "Resonaura"
	}
	if cfg.Accessory.Model == "" {
		cfg.Accessory.Model = "ResoLight"
	}
	if cfg.Accessory.Firmware == "" {
		cfg.Accessory.Firmware = "0.0.9"
	}

	// HomeKit defaults
	if cfg.HomeKit.Pin == "" {
		cfg.HomeKit.Pin = "66666666"
	}
	if cfg.HomeKit.SetupID == "" {
		cfg.HomeKit.SetupID = "RERE"
	}
	if cfg.HomeKit.StoragePath == "" {
		cfg.HomeKit.StoragePath = "./homekit"
	}

	// Device defaults
	if cfg.Device.Driver == "" {
		cfg.Device.Driver = "log"
	}
	if cfg.Device.QueueSize == 0 {
		cfg.Device.QueueSize = 64
	}
	if cfg.Device.RateLimitRPS == 0 {
		cfg.Device.RateLimitRPS = 10.0
	}
	if cfg.Device.Timeout == 0 {
		cfg.Device.Timeout = Duration(5 * time.Second)
	}
	if cfg.Device.Yeelight.Duration == 0 {
		cfg.Device.Yeelight.Duration = Duration(300 * time.Millisecond)
	}

	// MQTT defaults
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "duolight"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "duolight"
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks settings that have no sensible default
func (c *Config) Validate() error {
	switch c.Device.Driver {
	case "log":
	case "yeelight":
		if c.Device.Yeelight.White == "" || c.Device.Yeelight.Color == "" {
			return fmt.Errorf("device.yeelight.white and device.yeelight.color are required for the yeelight driver")
		}
	case "hue":
		if c.Device.Hue.Bridge == "" || c.Device.Hue.Token == "" {
			return fmt.Errorf("device.hue.bridge and device.hue.token are required for the hue driver")
		}
		if c.Device.Hue.WhiteLight == 0 || c.Device.Hue.ColorLight == 0 {
			return fmt.Errorf("device.hue.white_light and device.hue.color_light are required for the hue driver")
		}
	default:
		return fmt.Errorf("unknown device driver %q", c.Device.Driver)
	}

	if c.HomeKit.Enabled && len(c.HomeKit.Pin) != 8 {
		return fmt.Errorf("homekit.pin must be 8 digits, got %q", c.HomeKit.Pin)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
