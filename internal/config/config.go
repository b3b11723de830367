// Package config loads speechjudge settings from a YAML file, .env files and
// the environment, applies defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/valpere/speechjudge/internal/judge"
	"github.com/valpere/speechjudge/internal/logging"
	"github.com/valpere/speechjudge/internal/prompt"
	"github.com/valpere/speechjudge/internal/transcriber"
)

const (
	EngineSidecar = transcriber.SidecarName
	EngineOpenAI  = transcriber.OpenAIName

	DefaultTranscriptionTimeout = 10 * time.Minute
	DefaultServerAddr           = ":8080"
	DefaultMaxUploadMB          = 200
)

// TranscriptionConfig selects the speech-to-text engine.
type TranscriptionConfig struct {
	Engine     string        `mapstructure:"engine" validate:"oneof=sidecar openai"`
	ModelName  string        `mapstructure:"model_name" validate:"required"`
	Device     string        `mapstructure:"device" validate:"oneof=auto cpu cuda gpu"`
	URL        string        `mapstructure:"url" validate:"omitempty,url"`
	Language   string        `mapstructure:"language"`
	SampleRate int           `mapstructure:"sample_rate" validate:"omitempty,gte=8000,lte=48000"`
	Timestamps bool          `mapstructure:"timestamps"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string `mapstructure:"addr" validate:"required"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb" validate:"gt=0,lte=4096"`
}

// Config is the complete application configuration.
type Config struct {
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Judge         judge.Config        `mapstructure:"judge"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       logging.Config      `mapstructure:"logging"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	t := &c.Transcription
	t.Engine = strings.ToLower(strings.TrimSpace(t.Engine))
	if t.Engine == "" {
		t.Engine = EngineSidecar
	}
	if t.ModelName == "" {
		if t.Engine == EngineOpenAI {
			t.ModelName = "whisper-1"
		} else {
			t.ModelName = transcriber.DefaultModel
		}
	}
	t.Device = strings.ToLower(strings.TrimSpace(t.Device))
	if t.Device == "" {
		t.Device = string(transcriber.DeviceAuto)
	}
	if t.URL == "" && t.Engine == EngineSidecar {
		t.URL = transcriber.DefaultSidecarURL
	}
	if t.Timeout == 0 {
		t.Timeout = DefaultTranscriptionTimeout
	}

	c.Judge.ApplyDefaults()

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = DefaultMaxUploadMB
	}

	c.Logging.ApplyDefaults()
}

// Validate checks field constraints and the language hint. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fieldError(fe))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if c.Transcription.Language != "" {
		opts := transcriber.Options{Language: c.Transcription.Language}
		if err := opts.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("transcription.language: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Options returns the transcription options derived from the configuration.
func (c *Config) Options() transcriber.Options {
	return transcriber.Options{
		Language:   c.Transcription.Language,
		SampleRate: c.Transcription.SampleRate,
		Timestamps: c.Transcription.Timestamps,
	}
}

// Device returns the parsed transcription device.
func (c *Config) Device() (transcriber.Device, error) {
	return transcriber.ParseDevice(c.Transcription.Device)
}

// EffectiveSystemPrompt resolves the judge system prompt: the prompt file
// wins over the inline prompt, which wins over the built-in rubric.
func (c *Config) EffectiveSystemPrompt() (string, error) {
	if c.Judge.SystemPromptFile != "" {
		data, err := os.ReadFile(c.Judge.SystemPromptFile)
		if err != nil {
			return "", fmt.Errorf("failed to read system prompt file: %w", err)
		}
		if s := strings.TrimSpace(string(data)); s != "" {
			return s, nil
		}
		return "", fmt.Errorf("system prompt file %s is empty", c.Judge.SystemPromptFile)
	}
	if s := strings.TrimSpace(c.Judge.SystemPrompt); s != "" {
		return s, nil
	}
	return prompt.SystemRubric, nil
}

func structValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func fieldError(fe validator.FieldError) error {
	key := fe.Namespace()
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "url":
		return fmt.Errorf("%s must be a valid URL", key)
	case "file":
		return fmt.Errorf("%s must name an existing file", key)
	case "gte", "gt":
		return fmt.Errorf("%s must be %s %s", key, comparison(fe.Tag()), fe.Param())
	case "lte":
		return fmt.Errorf("%s must be at most %s", key, fe.Param())
	default:
		return fmt.Errorf("%s failed %q validation", key, fe.Tag())
	}
}

func comparison(tag string) string {
	if tag == "gt" {
		return "greater than"
	}
	return "at least"
}
