package engine

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/mapviewer/engine/scene"
)

// Duration is a time.Duration written as "30s" or "1m30s" in configuration files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type AssetsConfig struct {
	/** @brief Remote mirror the containers are downloaded from. */
	BaseURL string `toml:"base_url"`
	/** @brief Local mirror directory. Takes precedence over BaseURL. */
	MirrorDir string `toml:"mirror_dir"`
	/** @brief Prefix of every logical path. */
	BasePath string `toml:"base_path"`
	/** @brief Extension of the bulk scene archive. */
	ManifestExt string `toml:"manifest_ext"`
	/** @brief Reload the scene when a file below MirrorDir changes. */
	Watch bool `toml:"watch"`
}

type FetchConfig struct {
	Workers     int      `toml:"workers"`
	QueueSize   int      `toml:"queue_size"`
	HTTPTimeout Duration `toml:"http_timeout"`
}

type PipelineConfig struct {
	/** @brief Name the container decoders registered under. */
	Decoders     string                        `toml:"decoders"`
	Cancellation scene.CancellationGranularity `toml:"cancellation"`
	MaxTextures  uint32                        `toml:"max_textures"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type RenderConfig struct {
	/** @brief Frames drawn after a load. Zero draws until shutdown. */
	Frames uint64 `toml:"frames"`
	/** @brief Frame rate cap. Zero disables the limiter. */
	TargetFPS int `toml:"target_fps"`
}

type ApplicationConfig struct {
	// The application name handed to the renderer backend.
	Name     string         `toml:"name"`
	Assets   AssetsConfig   `toml:"assets"`
	Fetch    FetchConfig    `toml:"fetch"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Log      LogConfig      `toml:"log"`
	Render   RenderConfig   `toml:"render"`
}

func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name: "mapviewer",
		Assets: AssetsConfig{
			MirrorDir:   "assets",
			BasePath:    scene.DefaultBasePath,
			ManifestExt: scene.DefaultManifestExt,
		},
		Fetch: FetchConfig{
			Workers:     8,
			QueueSize:   64,
			HTTPTimeout: Duration{2 * time.Minute},
		},
		Pipeline: PipelineConfig{
			Decoders:     "dks",
			Cancellation: scene.CancelFetch,
			MaxTextures:  4096,
		},
		Log: LogConfig{
			Level: "info",
		},
		Render: RenderConfig{
			Frames:    0,
			TargetFPS: 60,
		},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig. Keys the file does not
// set keep their default.
func LoadConfig(path string) (*ApplicationConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	return config, nil
}

// Write stores the configuration as TOML.
func (c *ApplicationConfig) Write(path string) error {
	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (c *ApplicationConfig) Validate() error {
	if c.Assets.MirrorDir == "" && c.Assets.BaseURL == "" {
		return fmt.Errorf("assets.mirror_dir or assets.base_url must be set")
	}
	if c.Assets.Watch && c.Assets.MirrorDir == "" {
		return fmt.Errorf("assets.watch requires assets.mirror_dir")
	}
	if c.Assets.BasePath == "" || c.Assets.ManifestExt == "" {
		return fmt.Errorf("assets.base_path and assets.manifest_ext must not be empty")
	}
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be > 0")
	}
	if c.Fetch.QueueSize < 0 {
		return fmt.Errorf("fetch.queue_size must be >= 0")
	}
	if c.Fetch.HTTPTimeout.Duration < 0 {
		return fmt.Errorf("fetch.http_timeout must be >= 0")
	}
	if c.Pipeline.Decoders == "" {
		return fmt.Errorf("pipeline.decoders must not be empty")
	}
	if err := c.Pipeline.Cancellation.Validate(); err != nil {
		return fmt.Errorf("pipeline.cancellation: %w", err)
	}
	if c.Pipeline.MaxTextures == 0 {
		return fmt.Errorf("pipeline.max_textures must be > 0")
	}
	if c.Render.TargetFPS < 0 {
		return fmt.Errorf("render.target_fps must be >= 0")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
