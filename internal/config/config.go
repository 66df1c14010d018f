package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultThreshold is large enough to disable distance filtering.
const DefaultThreshold = 1e10

type Config struct {
	LogLevel  string     `mapstructure:"log_level"`
	Threshold float64    `mapstructure:"threshold"`
	Raw       bool       `mapstructure:"raw"`
	WasmDir   string     `mapstructure:"wasm_dir"`
	Wasm      WasmConfig `mapstructure:"wasm"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Enable debug logging of guest calls.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory. Empty keeps the cache in memory.
	CacheDir string `mapstructure:"cache_dir"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level": "log_level",
	"threshold": "threshold",
	"raw":       "raw",
	"wasm":      "wasm_dir",
}

// Load reads configuration from defaults, an optional file and flags.
// Flags that were set on the command line take precedence over the file.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log_level", "warn")
	v.SetDefault("threshold", DefaultThreshold)
	v.SetDefault("raw", false)
	v.SetDefault("wasm_dir", "")

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 32768) // 2GB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
