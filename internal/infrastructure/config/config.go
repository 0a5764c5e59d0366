package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Logic Edge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	API          APIConfig          `yaml:"api"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Logging      LoggingConfig      `yaml:"logging"`
	AWS          AWSConfig          `yaml:"aws"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Worker       WorkerConfig       `yaml:"worker"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	// MaxDelay caps the backoff between reconnect attempts (seconds).
	MaxDelay int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// InfluxDBConfig contains InfluxDB connection settings.
// InfluxDB receives the anonymous usage metrics.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`

	// WriteTimeout bounds each usage point write (seconds).
	WriteTimeout int `yaml:"write_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AWSConfig contains settings shared by every AWS service client.
type AWSConfig struct {
	Region string `yaml:"region"`

	// Profile selects a named profile from the shared credentials file.
	// Empty uses the default credential chain.
	Profile string `yaml:"profile"`

	// CapabilityNamespace is the IoT SiteWise gateway capability that
	// holds OPC UA sources.
	CapabilityNamespace string `yaml:"capability_namespace"`
}

// ProvisioningConfig contains settings for the device provisioning saga.
type ProvisioningConfig struct {
	// Principal is the credential principal (certificate or role alias ARN)
	// attached to every system-provisioned identity.
	Principal string `yaml:"principal"`

	// Bucket holds install script templates and rendered per-device scripts.
	Bucket string `yaml:"bucket"`

	// TemplatePrefix is the key prefix of install script templates.
	TemplatePrefix string `yaml:"template_prefix"`

	// InstallPrefix is the key prefix rendered scripts and artifacts are written under.
	InstallPrefix string `yaml:"install_prefix"`

	// DefaultScript is used when a provisioning request names no script.
	DefaultScript string `yaml:"default_script"`

	// SharedArtifacts are keys copied next to every rendered install script.
	SharedArtifacts []string `yaml:"shared_artifacts"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig contains the bounded linear retry policy for eventual-consistency failures.
type RetryConfig struct {
	Attempts int `yaml:"attempts"`
	Step     int `yaml:"step"` // seconds added to the delay after every failed attempt
}

// WorkerConfig contains the background worker invocation settings.
type WorkerConfig struct {
	FunctionName string `yaml:"function_name"`
}

// MetricsConfig contains anonymous usage metric settings.
type MetricsConfig struct {
	SendAnonymousUsage bool   `yaml:"send_anonymous_usage"`
	InstallationID     string `yaml:"installation_id"`
	SolutionID         string `yaml:"solution_id"`
	Version            string `yaml:"version"`
}

// namePattern restricts key names used in object store prefixes.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9!_.*'()/-]*$`)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_EDGE_SECTION_KEY
// For example: GRAYLOGIC_EDGE_DATABASE_PATH, GRAYLOGIC_EDGE_AWS_REGION
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/graylogic-edge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-edge",
			},
			QoS:         1,
			TopicPrefix: "graylogic/edge",
			Reconnect: MQTTReconnectConfig{
				MaxDelay: 60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		AWS: AWSConfig{
			Region:              "us-east-1",
			CapabilityNamespace: "iotsitewise:opcuacollector:2",
		},
		Provisioning: ProvisioningConfig{
			TemplatePrefix: "templates",
			InstallPrefix:  "devices",
			DefaultScript:  "install-greengrass.sh",
			Retry: RetryConfig{
				Attempts: 5,
				Step:     2,
			},
		},
		Metrics: MetricsConfig{
			SendAnonymousUsage: true,
			SolutionID:         "graylogic-edge",
			Version:            "dev",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_EDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAYLOGIC_EDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("GRAYLOGIC_EDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_EDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_EDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GRAYLOGIC_EDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("GRAYLOGIC_EDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("GRAYLOGIC_EDGE_AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("GRAYLOGIC_EDGE_AWS_PROFILE"); v != "" {
		cfg.AWS.Profile = v
	}

	if v := os.Getenv("GRAYLOGIC_EDGE_PROVISIONING_BUCKET"); v != "" {
		cfg.Provisioning.Bucket = v
	}
	if v := os.Getenv("GRAYLOGIC_EDGE_PROVISIONING_PRINCIPAL"); v != "" {
		cfg.Provisioning.Principal = v
	}

	if v := os.Getenv("GRAYLOGIC_EDGE_WORKER_FUNCTION_NAME"); v != "" {
		cfg.Worker.FunctionName = v
	}

	if v := os.Getenv("GRAYLOGIC_EDGE_METRICS_INSTALLATION_ID"); v != "" {
		cfg.Metrics.InstallationID = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.AWS.Region == "" {
		errs = append(errs, "aws.region is required")
	}
	if c.AWS.CapabilityNamespace == "" {
		errs = append(errs, "aws.capability_namespace is required")
	}

	if c.Provisioning.Bucket == "" {
		errs = append(errs, "provisioning.bucket is required (set GRAYLOGIC_EDGE_PROVISIONING_BUCKET)")
	}
	if c.Provisioning.Principal == "" {
		errs = append(errs, "provisioning.principal is required (set GRAYLOGIC_EDGE_PROVISIONING_PRINCIPAL)")
	}
	if !namePattern.MatchString(c.Provisioning.TemplatePrefix) || !namePattern.MatchString(c.Provisioning.InstallPrefix) {
		errs = append(errs, "provisioning prefixes contain invalid characters")
	}
	if c.Provisioning.Retry.Attempts < 1 {
		errs = append(errs, "provisioning.retry.attempts must be at least 1")
	}
	if c.Provisioning.Retry.Step < 0 {
		errs = append(errs, "provisioning.retry.step must not be negative")
	}

	if c.Worker.FunctionName == "" {
		errs = append(errs, "worker.function_name is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// RetryStep returns the linear retry step as a Duration.
func (c *Config) RetryStep() time.Duration {
	return time.Duration(c.Provisioning.Retry.Step) * time.Second
}
