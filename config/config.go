package config

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Libonnx        string `toml:"libonnx" mapstructure:"libonnx"`
	LogLevel       string `toml:"log_level" mapstructure:"log_level"`
	IntraOpThreads int    `toml:"intra_op_threads" mapstructure:"intra_op_threads"`

	ModelPath  string `toml:"model_path" mapstructure:"model_path"`
	LabelsPath string `toml:"labels_path" mapstructure:"labels_path"`

	FramesDir       string `toml:"frames_dir" mapstructure:"frames_dir"`
	RotationDegrees int    `toml:"rotation_degrees" mapstructure:"rotation_degrees"`

	Mean [3]float32 `toml:"mean" mapstructure:"mean"`
	Std  [3]float32 `toml:"std" mapstructure:"std"`
}

var (
	cfg      = Default()
	loadOnce sync.Once
)

func Default() Config {
	return Config{
		LogLevel:   "info",
		ModelPath:  "models/mobilenetv2.onnx",
		LabelsPath: "models/labels.txt",
		FramesDir:  "frames",
		Mean:       [3]float32{0.485, 0.456, 0.406},
		Std:        [3]float32{0.229, 0.224, 0.225},
	}
}

func C() Config {
	loadOnce.Do(func() {
		if _, err := os.Stat("config.toml"); err == nil {
			c, err := Load("config.toml")
			if err != nil {
				panic(err)
			}
			cfg = c
		}
	})
	return cfg
}

// Load reads a TOML file on top of the defaults.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
