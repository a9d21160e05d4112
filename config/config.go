// Package config loads the YAML description of a flash image used by
// the cmds. The FTL core itself takes everything through its API; this
// exists so a device description can be checked in next to an image.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/norfs/go-norftl/common"
)

type Config struct {
	// Image is the path of the flash image file.
	Image string `yaml:"image"`
	// FlashSizeMB is the simulated device size in MiB.
	FlashSizeMB uint32 `yaml:"flash_size_mb"`
	// Debug is the log verbosity (higher is more verbose).
	Debug uint64 `yaml:"debug"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks configuration correctness. It MUST NOT mutate the
// configuration.
func Validate(cfg *Config) error {
	if cfg.Image == "" {
		return fmt.Errorf("image path is required")
	}
	if !common.SizeSupported(cfg.FlashSizeMB) {
		return fmt.Errorf("flash_size_mb %d not supported (want one of %v)",
			cfg.FlashSizeMB, common.SupportedFlashSizes)
	}
	return nil
}
