package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for out-of-range values.
var ErrInvalid = errors.New("config: invalid value")

// Config is the on-disk configuration (~/.termhost/config.yaml).
type Config struct {
	LogLevel  string    `yaml:"log_level" json:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Render    Render    `yaml:"render" json:"render"`
	Engine    Engine    `yaml:"engine" json:"engine"`
	Clipboard Clipboard `yaml:"clipboard" json:"clipboard"`
	WebUI     WebUI     `yaml:"webui" json:"webui"`
}

// Render controls the per-surface render goroutines.
type Render struct {
	// FPS paces each render loop.
	FPS int `yaml:"fps" json:"fps" jsonschema:"minimum=1,maximum=240"`
	// JoinTimeout bounds how long DestroySurface waits for a render loop.
	// Zero waits forever; on expiry the surface is leaked with a warning.
	JoinTimeout time.Duration `yaml:"join_timeout" json:"join_timeout"`
	// ClientVersion is requested when creating graphics contexts.
	ClientVersion int `yaml:"client_version" json:"client_version" jsonschema:"minimum=1"`
}

// Engine configures terminal sessions.
type Engine struct {
	Shell      string `yaml:"shell" json:"shell"`
	CellWidth  int    `yaml:"cell_width" json:"cell_width" jsonschema:"minimum=1"`
	CellHeight int    `yaml:"cell_height" json:"cell_height" jsonschema:"minimum=1"`
	Scrollback int    `yaml:"scrollback" json:"scrollback" jsonschema:"minimum=0"`
}

// Clipboard configures the copy/paste mailbox and the system clipboard pump.
type Clipboard struct {
	// Limit bounds each mailbox queue; 0 means unbounded. Overflow drops the oldest entry.
	Limit  int           `yaml:"limit" json:"limit" jsonschema:"minimum=0"`
	Poll   time.Duration `yaml:"poll" json:"poll"`
	System bool          `yaml:"system" json:"system"`
}

// WebUI configures the web host.
type WebUI struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return Config{
		LogLevel: "info",
		Render: Render{
			FPS:           60,
			ClientVersion: 3,
		},
		Engine: Engine{
			Shell:      shell,
			CellWidth:  8,
			CellHeight: 16,
			Scrollback: 5000,
		},
		Clipboard: Clipboard{
			Limit:  256,
			Poll:   250 * time.Millisecond,
			System: true,
		},
		WebUI: WebUI{Addr: "127.0.0.1:8787"},
	}
}

// Load reads config.yaml. A missing file yields Default() and no error.
// Fields absent from the file keep their default values.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Default(), err
	}
	return LoadFile(p)
}

// LoadFile reads and validates the config at path.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Save writes cfg to config.yaml, creating ~/.termhost when needed.
func Save(cfg Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	return SaveFile(p, cfg)
}

// SaveFile validates cfg and writes it to path.
func SaveFile(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	if c.Render.FPS < 1 || c.Render.FPS > 240 {
		return fmt.Errorf("%w: render.fps %d (want 1..240)", ErrInvalid, c.Render.FPS)
	}
	if c.Render.JoinTimeout < 0 {
		return fmt.Errorf("%w: render.join_timeout %s", ErrInvalid, c.Render.JoinTimeout)
	}
	if c.Render.ClientVersion < 1 {
		return fmt.Errorf("%w: render.client_version %d", ErrInvalid, c.Render.ClientVersion)
	}
	if c.Engine.CellWidth < 1 || c.Engine.CellHeight < 1 {
		return fmt.Errorf("%w: engine cell size %dx%d", ErrInvalid, c.Engine.CellWidth, c.Engine.CellHeight)
	}
	if c.Engine.Scrollback < 0 {
		return fmt.Errorf("%w: engine.scrollback %d", ErrInvalid, c.Engine.Scrollback)
	}
	if c.Clipboard.Limit < 0 {
		return fmt.Errorf("%w: clipboard.limit %d", ErrInvalid, c.Clipboard.Limit)
	}
	if c.Clipboard.Poll <= 0 {
		return fmt.Errorf("%w: clipboard.poll %s", ErrInvalid, c.Clipboard.Poll)
	}
	return nil
}

// FrameInterval converts Render.FPS to the pacing interval of a render loop.
func (c Config) FrameInterval() time.Duration {
	if c.Render.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Render.FPS)
}
