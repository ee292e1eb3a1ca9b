package internal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"learn.admissionguard/config"
)

// LoadConfig reads and unmarshals the YAML configuration file.
func LoadConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config file %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}
