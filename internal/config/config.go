package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/editor"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the project directory
const FileName = "wizardry.yaml"

// Config represents the wizardry.yaml configuration
type Config struct {
	// Device the editor opens on
	Device string `yaml:"device,omitempty"`

	// Per-device canvas overrides, keyed by device name
	Devices map[string]DeviceConfig `yaml:"devices,omitempty"`

	// Snapping configuration
	Snap *SnapConfig `yaml:"snap,omitempty"`

	// Undo history configuration
	History *HistoryConfig `yaml:"history,omitempty"`

	// Touch device configuration
	Mobile *MobileConfig `yaml:"mobile,omitempty"`

	// Live session server configuration
	Server *ServerConfig `yaml:"server,omitempty"`

	// Campaign database configuration
	Store *StoreConfig `yaml:"store,omitempty"`

	// PNG export configuration
	Export *ExportConfig `yaml:"export,omitempty"`
}

// DeviceConfig overrides the canvas of one device class
type DeviceConfig struct {
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Content float64 `yaml:"content,omitempty"`
}

// SnapConfig contains snapping configuration
type SnapConfig struct {
	// Grid spacing in logical units
	GridSize float64 `yaml:"gridSize,omitempty"`

	// Snap distance in logical units at zoom 1
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Lower bound of the canvas-center tolerance, in screen pixels
	MinPixelTolerance float64 `yaml:"minPixelTolerance,omitempty"`

	Grid     bool `yaml:"grid"`
	Elements bool `yaml:"elements"`
	Center   bool `yaml:"center"`
}

// HistoryConfig contains undo history configuration
type HistoryConfig struct {
	Capacity int `yaml:"capacity,omitempty"`
}

// MobileConfig contains touch device configuration
type MobileConfig struct {
	// Screen margin kept around the auto-fitted canvas
	Padding float64 `yaml:"padding"`
}

// ServerConfig contains live session server configuration
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// Frames per second drag moves are coalesced to
	FrameRate int `yaml:"frameRate,omitempty"`

	// Allowed WebSocket origins; empty allows same-host only
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`

	// How long a disconnected session is kept for a reconnect, e.g. "5m"
	IdleTimeout time.Duration `yaml:"idleTimeout,omitempty"`

	// Reload campaign files when they change on disk
	Watch bool `yaml:"watch"`

	// Directory of campaign JSON documents served and watched
	CampaignDir string `yaml:"campaignDir,omitempty"`
}

// StoreConfig contains campaign database configuration
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ExportConfig contains PNG export configuration
type ExportConfig struct {
	// Output pixels per logical unit
	Scale float64 `yaml:"scale,omitempty"`

	// Background color as #rrggbb
	Background string `yaml:"background,omitempty"`

	// Draw the snap grid behind elements
	Grid bool `yaml:"grid"`
}

// Load loads configuration from wizardry.yaml in projectPath
func Load(projectPath string) (*Config, error) {
	return LoadFile(filepath.Join(projectPath, FileName))
}

// LoadFile loads configuration from an explicit path. A missing file yields
// the default configuration.
func LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return &config, nil
}

// Save saves configuration to wizardry.yaml in projectPath
func Save(config *Config, projectPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectPath, FileName), data, 0644)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Device: string(device.Reference),
		Snap: &SnapConfig{
			GridSize:          10,
			Tolerance:         3,
			MinPixelTolerance: 2,
			Grid:              true,
			Elements:          true,
			Center:            true,
		},
		History: &HistoryConfig{
			Capacity: 50,
		},
		Mobile: &MobileConfig{
			Padding: 16,
		},
		Server: &ServerConfig{
			Host:        "localhost",
			Port:        8080,
			FrameRate:   60,
			CampaignDir: "campaigns",
		},
		Store: &StoreConfig{
			Path: "wizardry.db",
		},
		Export: &ExportConfig{
			Scale:      1,
			Background: "#ffffff",
			Grid:       false,
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Device == "" {
		config.Device = defaults.Device
	}

	if config.Snap == nil {
		config.Snap = defaults.Snap
	} else {
		if config.Snap.GridSize == 0 {
			config.Snap.GridSize = defaults.Snap.GridSize
		}
		if config.Snap.Tolerance == 0 {
			config.Snap.Tolerance = defaults.Snap.Tolerance
		}
		if config.Snap.MinPixelTolerance == 0 {
			config.Snap.MinPixelTolerance = defaults.Snap.MinPixelTolerance
		}
	}

	if config.History == nil {
		config.History = defaults.History
	} else if config.History.Capacity == 0 {
		config.History.Capacity = defaults.History.Capacity
	}

	if config.Mobile == nil {
		config.Mobile = defaults.Mobile
	}

	if config.Server == nil {
		config.Server = defaults.Server
	} else {
		if config.Server.Host == "" {
			config.Server.Host = defaults.Server.Host
		}
		if config.Server.Port == 0 {
			config.Server.Port = defaults.Server.Port
		}
		if config.Server.FrameRate == 0 {
			config.Server.FrameRate = defaults.Server.FrameRate
		}
		if config.Server.CampaignDir == "" {
			config.Server.CampaignDir = defaults.Server.CampaignDir
		}
	}

	if config.Store == nil {
		config.Store = defaults.Store
	} else if config.Store.Path == "" {
		config.Store.Path = defaults.Store.Path
	}

	if config.Export == nil {
		config.Export = defaults.Export
	} else {
		if config.Export.Scale == 0 {
			config.Export.Scale = defaults.Export.Scale
		}
		if config.Export.Background == "" {
			config.Export.Background = defaults.Export.Background
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := device.Parse(c.Device); err != nil {
		return err
	}
	for name, d := range c.Devices {
		if _, err := device.Parse(name); err != nil {
			return fmt.Errorf("devices: %w", err)
		}
		if d.Width <= 0 || d.Height <= 0 {
			return fmt.Errorf("devices.%s: canvas size must be positive", name)
		}
	}
	if c.Snap != nil && (c.Snap.GridSize < 0 || c.Snap.Tolerance < 0) {
		return errors.New("snap: gridSize and tolerance must not be negative")
	}
	if c.History != nil && c.History.Capacity < 0 {
		return errors.New("history: capacity must not be negative")
	}
	if c.Mobile != nil && c.Mobile.Padding < 0 {
		return errors.New("mobile: padding must not be negative")
	}
	if c.Server != nil && (c.Server.Port < 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	if c.Server != nil && c.Server.IdleTimeout < 0 {
		return errors.New("server: idleTimeout must not be negative")
	}
	if c.Export != nil && c.Export.Scale < 0 {
		return errors.New("export: scale must not be negative")
	}
	return nil
}

// DeviceProvider returns the dimension table with configured overrides
func (c *Config) DeviceProvider() *device.Provider {
	if len(c.Devices) == 0 {
		return device.Default()
	}
	overrides := make(map[device.Device]device.Profile, len(c.Devices))
	for name, d := range c.Devices {
		dev, err := device.Parse(name)
		if err != nil {
			continue
		}
		overrides[dev] = device.Profile{
			Canvas:  canvas.Size{Width: d.Width, Height: d.Height},
			Content: d.Content,
		}
	}
	return device.NewProvider(overrides)
}

// StartDevice returns the configured initial device
func (c *Config) StartDevice() device.Device {
	d, err := device.Parse(c.Device)
	if err != nil {
		return device.Reference
	}
	return d
}

// SnapOptions returns engine options for a canvas size
func (c *Config) SnapOptions(size canvas.Size) snap.Options {
	if c.Snap == nil {
		return snap.DefaultOptions(size)
	}
	return snap.Options{
		Canvas:            size,
		GridSize:          c.Snap.GridSize,
		Tolerance:         c.Snap.Tolerance,
		MinPixelTolerance: c.Snap.MinPixelTolerance,
		Grid:              c.Snap.Grid,
		Elements:          c.Snap.Elements,
		Center:            c.Snap.Center,
	}
}

// EditorOptions returns the editor options described by the configuration.
// Hosts fill in Body, Bus and Scheduler.
func (c *Config) EditorOptions() editor.Options {
	devices := c.DeviceProvider()
	d := c.StartDevice()
	opts := editor.Options{
		Device:  d,
		Devices: devices,
		Snap:    c.SnapOptions(devices.Dimensions(d)),
		Padding: -1,
	}
	if c.History != nil {
		opts.HistoryCapacity = c.History.Capacity
	}
	if c.Mobile != nil {
		opts.Padding = c.Mobile.Padding
	}
	return opts
}

// Addr returns the listen address of the live server
func (c *Config) Addr() string {
	if c.Server == nil {
		return net.JoinHostPort("localhost", "8080")
	}
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// FrameInterval returns the drag frame interval of the live server
func (c *Config) FrameInterval() time.Duration {
	if c.Server == nil || c.Server.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Server.FrameRate)
}
