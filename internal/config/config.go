// Package config loads the demo CLI's settings. Nothing in the core
// storage packages (page, replacer, buffer, heap) imports this package;
// they all take plain constructor arguments.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the knobs the corecli demo needs to stand up a pool and
// a heap over a data file.
type Config struct {
	DataPath     string `mapstructure:"data_path"`
	PoolCapacity int    `mapstructure:"pool_capacity"`
	ReplacerK    int    `mapstructure:"replacer_k"`
}

func defaults() Config {
	return Config{
		DataPath:     "corestore.db",
		PoolCapacity: 16,
		ReplacerK:    2,
	}
}

// Load reads YAML configuration from path. Fields absent from the file
// keep their built-in defaults.
func Load(path string) (Config, error) {
	cfg := defaults()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("data_path", cfg.DataPath)
	v.SetDefault("pool_capacity", cfg.PoolCapacity)
	v.SetDefault("replacer_k", cfg.ReplacerK)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
