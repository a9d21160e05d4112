package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.yaml")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, "image: flash.img\nflash_size_mb: 16\ndebug: 2\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Image != "flash.img" || cfg.FlashSizeMB != 16 || cfg.Debug != 2 {
		t.Errorf("bad config: %+v", cfg)
	}
}

func TestValidate_MissingImage(t *testing.T) {
	path := writeConfig(t, "flash_size_mb: 4\n")
	if _, err := Load(path); err == nil {
		t.Errorf("expected error for missing image")
	}
}

func TestValidate_BadSize(t *testing.T) {
	for _, sz := range []int{0, 5, 6, 129, 256} {
		cfg := &Config{Image: "flash.img", FlashSizeMB: uint32(sz)}
		if err := Validate(cfg); err == nil {
			t.Errorf("size %d: expected error", sz)
		}
	}
	cfg := &Config{Image: "flash.img", FlashSizeMB: 64}
	if err := Validate(cfg); err != nil {
		t.Errorf("size 64: %v", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "image: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Errorf("expected YAML error")
	}
}
