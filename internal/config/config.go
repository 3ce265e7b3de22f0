package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the settings file looked up in the config directory.
const FileName = "trackreel.cfg.json"

// TileCacheConfig holds tile cache settings.
type TileCacheConfig struct {
	Backend       string        `json:"backend" mapstructure:"backend"`
	Dir           string        `json:"dir" mapstructure:"dir"`
	TTL           time.Duration `json:"ttl" mapstructure:"ttl"`
	SweepInterval time.Duration `json:"sweepInterval" mapstructure:"sweepInterval"`
	MemoryEntries int           `json:"memoryEntries" mapstructure:"memoryEntries"`
	Index         string        `json:"index" mapstructure:"index"`
}

// TileSourceConfig holds HTTP tile fetcher settings.
type TileSourceConfig struct {
	UserAgent string        `json:"userAgent" mapstructure:"userAgent"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// RenderConfig holds compositor settings.
type RenderConfig struct {
	Workers int `json:"workers" mapstructure:"workers"`
}

// TrackDefaults holds the track color preference.
type TrackDefaults struct {
	ColorRandom  bool   `json:"colorRandom" mapstructure:"colorRandom"`
	ColorDefault string `json:"colorDefault" mapstructure:"colorDefault"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout   time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
	Endpoint       string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds render metrics export settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// Version is reported in the tile fetcher's User-Agent.
var Version = "dev"

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("render.workers", 4)

	viper.SetDefault("track.colorRandom", true)
	viper.SetDefault("track.colorDefault", "#ff0000")

	viper.SetDefault("tileCache.backend", "disk")
	viper.SetDefault("tileCache.dir", "./tilecache")
	viper.SetDefault("tileCache.ttl", "720h")
	viper.SetDefault("tileCache.sweepInterval", "10m")
	viper.SetDefault("tileCache.memoryEntries", 512)
	viper.SetDefault("tileCache.index", "sqlite")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "trackreel")

	viper.SetDefault("tileSource.userAgent", "trackreel/"+Version)
	viper.SetDefault("tileSource.timeout", "30s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "trackreel")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "30s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "trackreel")
	viper.SetDefault("influx.bucket", "render_performance")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// IsNotFound reports whether err means the settings file does not exist.
func IsNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetTileCacheConfig returns the tile cache settings.
func GetTileCacheConfig() TileCacheConfig {
	return TileCacheConfig{
		Backend:       viper.GetString("tileCache.backend"),
		Dir:           viper.GetString("tileCache.dir"),
		TTL:           viper.GetDuration("tileCache.ttl"),
		SweepInterval: viper.GetDuration("tileCache.sweepInterval"),
		MemoryEntries: viper.GetInt("tileCache.memoryEntries"),
		Index:         viper.GetString("tileCache.index"),
	}
}

// GetTileSourceConfig returns the HTTP tile fetcher settings.
func GetTileSourceConfig() TileSourceConfig {
	return TileSourceConfig{
		UserAgent: viper.GetString("tileSource.userAgent"),
		Timeout:   viper.GetDuration("tileSource.timeout"),
	}
}

// GetRenderConfig returns the compositor settings. Workers is at least 1.
func GetRenderConfig() RenderConfig {
	workers := viper.GetInt("render.workers")
	if workers < 1 {
		workers = 1
	}
	return RenderConfig{Workers: workers}
}

// GetTrackDefaults returns the track color preference.
func GetTrackDefaults() TrackDefaults {
	return TrackDefaults{
		ColorRandom:  viper.GetBool("track.colorRandom"),
		ColorDefault: viper.GetString("track.colorDefault"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the metrics export settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}
