// Package config persists the streaming and export settings between
// sessions as a YAML file, and converts the persisted form into the typed
// settings the pipelines consume.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/slidestream/slidestream/internal/effect"
	"github.com/slidestream/slidestream/internal/export"
	"github.com/slidestream/slidestream/internal/logger"
	"github.com/slidestream/slidestream/internal/mjpeg"
	"github.com/slidestream/slidestream/internal/osd"
	"github.com/slidestream/slidestream/internal/transition"
)

// StreamConfig is the persisted form of the streaming settings. Enum
// fields are stored by name so the file stays hand-editable.
type StreamConfig struct {
	Port       int      `json:"port" yaml:"port"`
	BindAddr   string   `json:"bind_addr" yaml:"bind_addr"`
	Quality    int      `json:"quality" yaml:"quality"`
	Delay      int      `json:"delay" yaml:"delay"`
	Rate       int      `json:"rate" yaml:"rate"`
	Loop       bool     `json:"loop" yaml:"loop"`
	MaxClients int      `json:"max_clients" yaml:"max_clients"`
	Blacklist  []string `json:"blacklist" yaml:"blacklist"`

	Images           []string `json:"images" yaml:"images"`
	Type             string   `json:"type" yaml:"type"`
	Transition       string   `json:"transition" yaml:"transition"`
	TransitionFrames int      `json:"transition_frames" yaml:"transition_frames"`
	Effect           string   `json:"effect" yaml:"effect"`
	Seed             int64    `json:"seed,omitempty" yaml:"seed,omitempty"`

	OSDEnabled bool           `json:"osd_enabled" yaml:"osd_enabled"`
	OSD        osd.Properties `json:"osd" yaml:"osd"`
}

// ExportConfig is the persisted form of the export settings.
type ExportConfig struct {
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	BaseName  string `json:"base_name" yaml:"base_name"`

	Type     string `json:"type" yaml:"type"`
	Std      string `json:"std" yaml:"std"`
	BitRate  string `json:"bit_rate" yaml:"bit_rate"`
	Codec    string `json:"codec" yaml:"codec"`
	Format   string `json:"format" yaml:"format"`
	Conflict string `json:"conflict" yaml:"conflict"`

	Delay            int    `json:"delay" yaml:"delay"`
	Transition       string `json:"transition" yaml:"transition"`
	TransitionFrames int    `json:"transition_frames" yaml:"transition_frames"`
	Effect           string `json:"effect" yaml:"effect"`
	Seed             int64  `json:"seed,omitempty" yaml:"seed,omitempty"`

	EncoderBin string `json:"encoder_bin" yaml:"encoder_bin"`
}

// Config represents the application configuration
type Config struct {
	LogLevel string       `json:"log_level" yaml:"log_level"`
	Stream   StreamConfig `json:"stream" yaml:"stream"`
	Export   ExportConfig `json:"export" yaml:"export"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "slidestream")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = m.getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("images", len(m.config.Stream.Images)).
		Msg("Config loaded")

	return m, nil
}

// getDefaults returns default configuration
func (m *Manager) getDefaults() *Config {
	stream := mjpeg.DefaultStreamSettings()
	exp := export.DefaultSettings()
	return &Config{
		LogLevel: "info",
		Stream: StreamConfig{
			Port:             stream.Port,
			Quality:          stream.Quality,
			Delay:            stream.Delay,
			Rate:             stream.Rate,
			Loop:             stream.Loop,
			MaxClients:       stream.MaxClients,
			Blacklist:        []string{},
			Images:           []string{},
			Type:             stream.Type.String(),
			Transition:       stream.Transition.String(),
			TransitionFrames: stream.TransitionFrames,
			Effect:           stream.Effect.String(),
			OSD:              stream.OSD,
		},
		Export: ExportConfig{
			Type:             exp.Type.String(),
			Std:              exp.Std.String(),
			BitRate:          exp.BitRate.String(),
			Codec:            exp.Codec,
			Format:           exp.Format.String(),
			Conflict:         exp.Conflict.String(),
			Delay:            exp.Delay,
			Transition:       exp.Transition.String(),
			TransitionFrames: exp.TransitionFrames,
			Effect:           exp.Effect.String(),
			EncoderBin:       exp.EncoderBin,
		},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Stream.Images == nil {
		cfg.Stream.Images = []string{}
	}
	if cfg.Stream.Blacklist == nil {
		cfg.Stream.Blacklist = []string{}
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return m.getDefaults()
	}
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = m.getDefaults()
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update replaces the entire configuration and saves it
func (m *Manager) Update(cfg *Config) error {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// SetImages replaces the stream image list and saves
func (m *Manager) SetImages(paths []string) error {
	m.mu.Lock()
	m.config.Stream.Images = paths
	m.mu.Unlock()
	return m.Save()
}

// GetLogLevel gets the log level
func (m *Manager) GetLogLevel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return "info"
	}
	return m.config.LogLevel
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// StreamSettings converts the persisted stream group into typed settings.
func (c *Config) StreamSettings() (mjpeg.StreamSettings, error) {
	s := mjpeg.DefaultStreamSettings()

	// Zero-valued numeric fields fall back to the defaults.
	if c.Stream.Port > 0 {
		s.Port = c.Stream.Port
	}
	s.BindAddr = c.Stream.BindAddr
	if c.Stream.Quality > 0 {
		s.Quality = c.Stream.Quality
	}
	if c.Stream.Delay > 0 {
		s.Delay = c.Stream.Delay
	}
	if c.Stream.Rate > 0 {
		s.Rate = c.Stream.Rate
	}
	s.Loop = c.Stream.Loop
	if c.Stream.MaxClients > 0 {
		s.MaxClients = c.Stream.MaxClients
	}
	s.Blacklist = c.Stream.Blacklist
	s.Images = c.Stream.Images
	if c.Stream.TransitionFrames > 0 {
		s.TransitionFrames = c.Stream.TransitionFrames
	}
	s.Seed = c.Stream.Seed
	s.OSDEnabled = c.Stream.OSDEnabled
	s.OSD = c.Stream.OSD

	// Hand-edited files may omit the overlay colors. A fully transparent
	// overlay is never what anyone wants, so zero values fall back too.
	def := osd.DefaultProperties()
	if s.OSD.TextColor == (osd.Color{}) {
		s.OSD.TextColor = def.TextColor
	}
	if s.OSD.Background == (osd.Color{}) {
		s.OSD.Background = def.Background
	}
	if s.OSD.Opacity <= 0 {
		s.OSD.Opacity = def.Opacity
	}

	var err error
	if c.Stream.Type != "" {
		if s.Type, err = export.ParseVidType(c.Stream.Type); err != nil {
			return s, err
		}
	}
	if c.Stream.Transition != "" {
		if s.Transition, err = transition.ParseKind(c.Stream.Transition); err != nil {
			return s, err
		}
	}
	if c.Stream.Effect != "" {
		if s.Effect, err = effect.ParseKind(c.Stream.Effect); err != nil {
			return s, err
		}
	}
	return s, nil
}

// ExportSettings converts the persisted export group into typed settings.
// images overrides the persisted list when non-empty.
func (c *Config) ExportSettings(images []string) (export.Settings, error) {
	s := export.DefaultSettings()

	s.Images = images
	s.OutputDir = c.Export.OutputDir
	s.BaseName = c.Export.BaseName
	if c.Export.Delay > 0 {
		s.Delay = c.Export.Delay
	}
	if c.Export.TransitionFrames > 0 {
		s.TransitionFrames = c.Export.TransitionFrames
	}
	s.Seed = c.Export.Seed
	if c.Export.Codec != "" {
		s.Codec = c.Export.Codec
	}
	if c.Export.EncoderBin != "" {
		s.EncoderBin = c.Export.EncoderBin
	}

	var err error
	if c.Export.Type != "" {
		if s.Type, err = export.ParseVidType(c.Export.Type); err != nil {
			return s, err
		}
	}
	if c.Export.Std != "" {
		if s.Std, err = export.ParseVidStd(c.Export.Std); err != nil {
			return s, err
		}
	}
	if c.Export.BitRate != "" {
		if s.BitRate, err = export.ParseVidBitRate(c.Export.BitRate); err != nil {
			return s, err
		}
	}
	if c.Export.Format != "" {
		if s.Format, err = export.ParseVidFormat(c.Export.Format); err != nil {
			return s, err
		}
	}
	if c.Export.Conflict != "" {
		if s.Conflict, err = export.ParseConflictRule(c.Export.Conflict); err != nil {
			return s, err
		}
	}
	if c.Export.Transition != "" {
		if s.Transition, err = transition.ParseKind(c.Export.Transition); err != nil {
			return s, err
		}
	}
	if c.Export.Effect != "" {
		if s.Effect, err = effect.ParseKind(c.Export.Effect); err != nil {
			return s, err
		}
	}
	return s, nil
}
