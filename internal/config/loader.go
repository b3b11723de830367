package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "SPEECHJUDGE"
	configName = "speechjudge"
)

// keys lists every setting that may come from the environment.
var keys = []string{
	"transcription.engine",
	"transcription.model_name",
	"transcription.device",
	"transcription.url",
	"transcription.language",
	"transcription.sample_rate",
	"transcription.timestamps",
	"transcription.timeout",
	"judge.provider",
	"judge.model",
	"judge.base_url",
	"judge.system_prompt",
	"judge.system_prompt_file",
	"judge.temperature",
	"judge.timeout",
	"server.addr",
	"server.max_upload_mb",
	"logging.level",
	"logging.format",
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFile is an explicit YAML file. When empty, speechjudge.yaml is
	// searched in the working directory and $HOME/.config/speechjudge.
	ConfigFile string
	// EnvFile is an explicit .env file. When empty, ./.env is loaded if it
	// exists.
	EnvFile string
	// Overrides take precedence over every other source, keyed like the
	// YAML file ("logging.level").
	Overrides map[string]any
}

// Load reads configuration in increasing precedence: defaults, config file,
// .env, process environment, overrides. The result has defaults applied and
// is validated.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	if err := v.BindEnv("judge.api_key", EnvPrefix+"_JUDGE_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind judge.api_key: %w", err)
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed reports which file Load would read for opts, or "".
func ConfigFileUsed(opts LoadOptions) string {
	if opts.ConfigFile != "" {
		return opts.ConfigFile
	}
	for _, dir := range searchPaths() {
		for _, ext := range viper.SupportedExts {
			path := filepath.Join(dir, configName+"."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	for _, dir := range searchPaths() {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func searchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", configName))
	}
	return paths
}

// loadEnvFile loads a .env file without overriding variables already set in
// the process environment.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return nil
}
