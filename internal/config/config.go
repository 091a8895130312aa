package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// BarrierSettled fires the completion barrier once every fetch has settled.
	BarrierSettled = "settled"
	// BarrierSucceeded fires only once every fetch has succeeded.
	BarrierSucceeded = "succeeded"
)

type Config struct {
	Port        int
	CamerasPort int
	Password    string

	CatalogPath   string
	PhysicalWidth float64
	BarrierPolicy string
	FetchTimeout  time.Duration // 0 disables the timeout
	StrictBinding bool          // panic on an anchor that does not resolve; on by default

	DatabasePath         string
	BindingFlushInterval int // seconds
	LogDirectory         string
	LogLevel             string

	FrameQueueSize int
	MinMatches     int
	MatchRatio     float64

	SurfaceWidth  int
	SurfaceHeight int
	Volume        float64
	VideoSink     string
	AudioSink     string

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	CameraNames map[string]string // camera IP -> display name
}

// fileConfig mirrors the optional TOML file. Zero values leave the default in place.
type fileConfig struct {
	Port          int               `toml:"port"`
	CamerasPort   int               `toml:"cameras_port"`
	CatalogPath   string            `toml:"catalog_path"`
	PhysicalWidth float64           `toml:"physical_width"`
	BarrierPolicy string            `toml:"barrier_policy"`
	DatabasePath  string            `toml:"database_path"`
	LogDirectory  string            `toml:"log_dir"`
	MinMatches    int               `toml:"min_matches"`
	MatchRatio    float64           `toml:"match_ratio"`
	VideoSink     string            `toml:"video_sink"`
	AudioSink     string            `toml:"audio_sink"`
	MQTTBroker    string            `toml:"mqtt_broker"`
	MQTTTopic     string            `toml:"mqtt_topic"`
	CameraNames   map[string]string `toml:"cameras"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:                 8080,
		CamerasPort:          9999,
		Password:             "overlay",
		CatalogPath:          filepath.Join(".", "MovieData.json"),
		PhysicalWidth:        0.1,
		BarrierPolicy:        BarrierSettled,
		StrictBinding:        true,
		DatabasePath:         filepath.Join(".", "data", "overlay.db"),
		BindingFlushInterval: 10,
		LogDirectory:         filepath.Join(".", "logs"),
		LogLevel:             "info",
		FrameQueueSize:       8,
		MinMatches:           25,
		MatchRatio:           0.75,
		SurfaceWidth:         600,
		SurfaceHeight:        300,
		Volume:               2.0,
		VideoSink:            "autovideosink",
		AudioSink:            "autoaudiosink",
		MQTTTopic:            "overlay/events",
		CameraNames:          map[string]string{},
	}
}

// Load reads .env (if present), then the TOML file named by CONFIG_FILE (if
// set), then environment variables. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		c.Port = fc.Port
	}
	if fc.CamerasPort != 0 {
		c.CamerasPort = fc.CamerasPort
	}
	if fc.CatalogPath != "" {
		c.CatalogPath = fc.CatalogPath
	}
	if fc.PhysicalWidth != 0 {
		c.PhysicalWidth = fc.PhysicalWidth
	}
	if fc.BarrierPolicy != "" {
		c.BarrierPolicy = fc.BarrierPolicy
	}
	if fc.DatabasePath != "" {
		c.DatabasePath = fc.DatabasePath
	}
	if fc.LogDirectory != "" {
		c.LogDirectory = fc.LogDirectory
	}
	if fc.MinMatches != 0 {
		c.MinMatches = fc.MinMatches
	}
	if fc.MatchRatio != 0 {
		c.MatchRatio = fc.MatchRatio
	}
	if fc.VideoSink != "" {
		c.VideoSink = fc.VideoSink
	}
	if fc.AudioSink != "" {
		c.AudioSink = fc.AudioSink
	}
	if fc.MQTTBroker != "" {
		c.MQTTBroker = fc.MQTTBroker
	}
	if fc.MQTTTopic != "" {
		c.MQTTTopic = fc.MQTTTopic
	}
	for ip, name := range fc.CameraNames {
		c.CameraNames[ip] = name
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvAsInt("PORT", c.Port)
	c.CamerasPort = getEnvAsInt("CAMERAS_PORT", c.CamerasPort)
	c.Password = getEnv("PASSWORD", c.Password)

	c.CatalogPath = getEnv("CATALOG_PATH", c.CatalogPath)
	c.PhysicalWidth = getEnvAsFloat("PHYSICAL_WIDTH", c.PhysicalWidth)
	c.BarrierPolicy = strings.ToLower(getEnv("BARRIER_POLICY", c.BarrierPolicy))
	c.FetchTimeout = getEnvAsDuration("FETCH_TIMEOUT", c.FetchTimeout)
	c.StrictBinding = getEnvAsBool("STRICT_BINDING", c.StrictBinding)

	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.BindingFlushInterval = getEnvAsInt("BINDING_FLUSH_INTERVAL", c.BindingFlushInterval)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.FrameQueueSize = getEnvAsInt("FRAME_QUEUE_SIZE", c.FrameQueueSize)
	c.MinMatches = getEnvAsInt("MIN_MATCHES", c.MinMatches)
	c.MatchRatio = getEnvAsFloat("MATCH_RATIO", c.MatchRatio)

	c.SurfaceWidth = getEnvAsInt("SURFACE_WIDTH", c.SurfaceWidth)
	c.SurfaceHeight = getEnvAsInt("SURFACE_HEIGHT", c.SurfaceHeight)
	c.Volume = getEnvAsFloat("VOLUME", c.Volume)
	c.VideoSink = getEnv("VIDEO_SINK", c.VideoSink)
	c.AudioSink = getEnv("AUDIO_SINK", c.AudioSink)

	c.MQTTBroker = getEnv("MQTT_BROKER", c.MQTTBroker)
	c.MQTTTopic = getEnv("MQTT_TOPIC", c.MQTTTopic)
	c.MQTTClientID = getEnv("MQTT_CLIENT_ID", c.MQTTClientID)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.BarrierPolicy {
	case BarrierSettled, BarrierSucceeded:
	default:
		return fmt.Errorf("invalid barrier policy %q (want %q or %q)", c.BarrierPolicy, BarrierSettled, BarrierSucceeded)
	}
	if c.PhysicalWidth <= 0 {
		return fmt.Errorf("physical width must be positive, got %v", c.PhysicalWidth)
	}
	if c.SurfaceWidth <= 0 || c.SurfaceHeight <= 0 {
		return fmt.Errorf("surface size must be positive, got %dx%d", c.SurfaceWidth, c.SurfaceHeight)
	}
	if c.MatchRatio <= 0 || c.MatchRatio >= 1 {
		return fmt.Errorf("match ratio must be in (0,1), got %v", c.MatchRatio)
	}
	if c.FrameQueueSize < 1 {
		c.FrameQueueSize = 1
	}
	if c.BindingFlushInterval < 1 {
		c.BindingFlushInterval = 1
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
