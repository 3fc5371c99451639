package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/qagen/internal/cache"
	"github.com/abhisek/qagen/internal/generator"
	"github.com/abhisek/qagen/internal/qa"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "QAGEN"

// Options controls where Load looks for settings.
type Options struct {
	// ConfigFile is an explicit YAML file. It must exist when set.
	ConfigFile string

	// EnvFile is a dotenv file loaded into the process environment before
	// reading variables. Missing files are ignored. Default ".env".
	EnvFile string
}

// Load reads configuration in increasing precedence: built-in defaults,
// the YAML file, then environment variables. Vendor API keys also fall
// back to the vendors' standard variables (ANTHROPIC_API_KEY and so on).
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := loadDotenv(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("qagen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "qagen"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotenv adds variables from path without overriding ones already set.
func loadDotenv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "")

	v.SetDefault("providers.enabled", []string{})
	for _, name := range vendors {
		v.SetDefault("providers."+name+".api_key", "")
		v.SetDefault("providers."+name+".model", "")
		v.SetDefault("providers."+name+".base_url", "")
	}
	v.SetDefault("providers.ollama.host", "")
	v.SetDefault("providers.ollama.model", "")

	g := generator.DefaultConfig()
	v.SetDefault("generation.max_chunk_size", g.MaxChunkSize)
	v.SetDefault("generation.overlap", g.Overlap)
	v.SetDefault("generation.question_count", g.QuestionCount)
	v.SetDefault("generation.question_type", string(g.QuestionType))
	v.SetDefault("generation.max_retries", g.MaxRetries)
	v.SetDefault("generation.unknown_retries", g.UnknownRetries)
	v.SetDefault("generation.concurrency", g.ConcurrencyLimit)
	v.SetDefault("generation.count_mismatch_policy", string(g.CountMismatchPolicy))
	v.SetDefault("generation.fallback_on_exhaustion", g.FallbackOnExhaustion)
	v.SetDefault("generation.attempt_timeout", g.AttemptTimeout)
	v.SetDefault("generation.backoff.initial", g.Backoff.Initial)
	v.SetDefault("generation.backoff.max", g.Backoff.Max)
	v.SetDefault("generation.backoff.multiplier", g.Backoff.Multiplier)
	v.SetDefault("generation.backoff.jitter", g.Backoff.Jitter)
	v.SetDefault("generation.max_tokens", g.MaxTokens)
	v.SetDefault("generation.temperature", g.Temperature)

	c := cache.DefaultConfig()
	v.SetDefault("cache.type", c.Type)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", c.KeyPrefix)
	v.SetDefault("cache.ttl", c.DefaultTTL)
}

// vendors are the hosted providers configured through VendorConfig.
var vendors = []string{"anthropic", "openai", "gemini", "openrouter", "xai", "groq"}

// bindEnv maps QAGEN_SECTION_KEY variables onto nested keys and adds the
// vendors' own variables (<VENDOR>_API_KEY, <VENDOR>_MODEL_NAME) as
// fallbacks.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, name := range vendors {
		upper := strings.ToUpper(name)
		_ = v.BindEnv("providers."+name+".api_key",
			EnvPrefix+"_"+upper+"_API_KEY", upper+"_API_KEY")
		_ = v.BindEnv("providers."+name+".model",
			EnvPrefix+"_"+upper+"_MODEL", upper+"_MODEL_NAME")
		_ = v.BindEnv("providers."+name+".base_url", EnvPrefix+"_"+upper+"_BASE_URL")
	}
	_ = v.BindEnv("providers.ollama.host", EnvPrefix+"_OLLAMA_HOST", "OLLAMA_HOST")
	_ = v.BindEnv("providers.ollama.model", EnvPrefix+"_OLLAMA_MODEL", "OLLAMA_MODEL_NAME")
	_ = v.BindEnv("providers.enabled", EnvPrefix+"_PROVIDERS")
	_ = v.BindEnv("db_path", EnvPrefix+"_DB")
}

var structValidator = newValidator()

// newValidator reports fields by their config key rather than Go name.
func newValidator() *validator.Validate {
	vd := validator.New(validator.WithRequiredStructEnabled())
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return vd
}

// validate checks struct tags and returns the first violation as a
// *qa.ConfigError.
func validate(cfg *Config) error {
	err := structValidator.Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return qa.ConfigErrorf(field, "failed %q check (%s), got %v", fe.Tag(), fe.Param(), fe.Value())
	}
	return qa.ConfigErrorf(field, "failed %q check, got %v", fe.Tag(), fe.Value())
}
