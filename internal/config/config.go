package config

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultServerURL is the Xively (formerly COSM/Pachube) feeds endpoint.
const DefaultServerURL = "http://api.cosm.com/v2/feeds"

// ErrMissingOption is returned when a required option is absent.
var ErrMissingOption = errors.New("missing option")

// XivelyConfig holds the options of the Xively uploader.
// Zero values of MaxBacklog, Stale and PostInterval mean "no limit".
type XivelyConfig struct {
	Feed      string `mapstructure:"feed" validate:"required"`
	Token     string `mapstructure:"token" validate:"required"`
	Station   string `mapstructure:"station"`
	ServerURL string `mapstructure:"server_url" validate:"required,url"`

	SkipUpload bool `mapstructure:"skip_upload"`
	LogSuccess bool `mapstructure:"log_success"`
	LogFailure bool `mapstructure:"log_failure"`

	MaxBacklog   int           `mapstructure:"max_backlog" validate:"gte=0"`
	MaxTries     int           `mapstructure:"max_tries" validate:"gte=1"`
	Stale        time.Duration `mapstructure:"stale" validate:"gte=0"`
	PostInterval time.Duration `mapstructure:"post_interval" validate:"gte=0"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`

	RetryWait    time.Duration `mapstructure:"retry_wait" validate:"gte=0"`
	MaxRetryWait time.Duration `mapstructure:"max_retry_wait" validate:"gte=0"`

	// BreakerFailures consecutive failed tries open the circuit; 0 (default)
	// disables it, so every record gets MaxTries posts.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"gte=0"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" validate:"gte=0"`

	DrainOnStop bool `mapstructure:"drain_on_stop"`
}

// DefaultXivelyConfig returns the uploader defaults with the required options empty.
func DefaultXivelyConfig() XivelyConfig {
	return XivelyConfig{
		ServerURL:       DefaultServerURL,
		LogSuccess:      true,
		LogFailure:      true,
		MaxTries:        3,
		Timeout:         60 * time.Second,
		RetryWait:       5 * time.Second,
		MaxRetryWait:    time.Minute,
		BreakerFailures: 0,
		BreakerCooldown: 2 * time.Minute,
	}
}

// Validate reports the first missing or invalid option by its config key.
func (c XivelyConfig) Validate() error {
	return validateStruct(c)
}

type HTTPConfig struct {
	Port string `mapstructure:"port" validate:"required,numeric"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Pretty bool   `mapstructure:"pretty"`
}

type StoreConfig struct {
	MaxHistory int           `mapstructure:"max_history" validate:"gte=0"` // 0 = unlimited
	MaxAge     time.Duration `mapstructure:"max_age" validate:"gte=0"`     // 0 = unlimited
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type AppConfig struct {
	// Checked by the uploader itself: a bad xively section disables
	// uploads, not the process.
	Xively    XivelyConfig    `mapstructure:"xively" validate:"-"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Load reads configuration from an optional YAML file and the environment.
// Environment keys are the upper-cased config keys with "." replaced by "_",
// e.g. XIVELY_TOKEN or STORE_MAX_AGE. Durations are either plain numbers of
// seconds ("60") or Go durations ("10m"). xively.url is accepted for
// xively.server_url.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if u := v.GetString("xively.url"); u != "" && v.GetString("xively.server_url") == DefaultServerURL {
		v.Set("xively.server_url", u)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if err := validateStruct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// secondsToDurationHook decodes bare numbers as seconds and anything else
// with time.ParseDuration.
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType || from == durationType {
			return data, nil
		}
		switch x := data.(type) {
		case int:
			return time.Duration(x) * time.Second, nil
		case int32:
			return time.Duration(x) * time.Second, nil
		case int64:
			return time.Duration(x) * time.Second, nil
		case uint:
			return time.Duration(x) * time.Second, nil
		case uint64:
			return time.Duration(x) * time.Second, nil
		case float32:
			return time.Duration(float64(x) * float64(time.Second)), nil
		case float64:
			return time.Duration(x * float64(time.Second)), nil
		case string:
			str := strings.TrimSpace(x)
			if secs, err := strconv.ParseFloat(str, 64); err == nil {
				return time.Duration(secs * float64(time.Second)), nil
			}
			return time.ParseDuration(str)
		}
		return data, nil
	}
}

func setDefaults(v *viper.Viper) {
	x := DefaultXivelyConfig()
	v.SetDefault("xively.feed", "")
	v.SetDefault("xively.token", "")
	v.SetDefault("xively.station", "")
	v.SetDefault("xively.server_url", x.ServerURL)
	v.SetDefault("xively.url", "")
	v.SetDefault("xively.skip_upload", x.SkipUpload)
	v.SetDefault("xively.log_success", x.LogSuccess)
	v.SetDefault("xively.log_failure", x.LogFailure)
	v.SetDefault("xively.max_backlog", x.MaxBacklog)
	v.SetDefault("xively.max_tries", x.MaxTries)
	v.SetDefault("xively.stale", x.Stale)
	v.SetDefault("xively.post_interval", x.PostInterval)
	v.SetDefault("xively.timeout", x.Timeout)
	v.SetDefault("xively.retry_wait", x.RetryWait)
	v.SetDefault("xively.max_retry_wait", x.MaxRetryWait)
	v.SetDefault("xively.breaker_failures", x.BreakerFailures)
	v.SetDefault("xively.breaker_cooldown", x.BreakerCooldown)
	v.SetDefault("xively.drain_on_stop", x.DrainOnStop)

	v.SetDefault("http.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Roughly a week of 5-minute records; max_age covers the rain24 window.
	v.SetDefault("store.max_history", 2016)
	v.SetDefault("store.max_age", 25*time.Hour)

	v.SetDefault("scheduler.interval", 5*time.Minute)
	v.SetDefault("metrics.enabled", true)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	key := fe.Namespace()
	// drop the root struct name
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}
	if fe.Tag() == "required" {
		return fmt.Errorf("%w %s", ErrMissingOption, key)
	}
	return fmt.Errorf("invalid option %s: failed %q check (value %v)", key, fe.Tag(), fe.Value())
}
