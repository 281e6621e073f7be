package app

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const maxBallastCapacity = 0.5

// Config is the "app" section of the process config. The application decodes
// it with mapstructure in Init.
type Config map[string]interface{}

// BaseConfig is the process level configuration shared by every server run
// through Run.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`
	AppName  string `mapstructure:"app_name"`

	// ListenAddress serves TLS and is only opened when a certificate is set.
	ListenAddress         string `mapstructure:"listen_address"`
	InsecureListenAddress string `mapstructure:"insecure_listen_address"`
	DebugListenAddress    string `mapstructure:"debug_listen_address"`

	// TLSCertificate and TLSKey are URLs resolved through LoadFile, eg.
	// file:///etc/todo/tls.crt or s3://bucket/tls.crt.
	TLSCertificate string `mapstructure:"tls_certificate"`
	TLSKey         string `mapstructure:"tls_private_key"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof  bool `mapstructure:"enable_pprof"`
	EnableExpvar bool `mapstructure:"enable_expvar"`

	// BallastCapacity is the fraction of total memory held as a GC ballast,
	// capped at 0.5.
	EnableBallast   bool    `mapstructure:"enable_ballast"`
	BallastCapacity float32 `mapstructure:"ballast_capacity"`

	// RestartSchedule is a cron spec at which the process shuts down so its
	// supervisor restarts it. Empty disables it.
	RestartSchedule string `mapstructure:"restart_schedule"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	AppConfig Config `mapstructure:"app"`
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		LogLevel:              "info",
		AppName:               "todo-server",
		ListenAddress:         ":8085",
		InsecureListenAddress: "localhost:8086",
		DebugListenAddress:    ":8123",
		ShutdownGracePeriod:   30 * time.Second,
		EnablePprof:           true,
		EnableExpvar:          true,
		EnableBallast:         true,
		BallastCapacity:       0.333,
	}
}

var envBindings = map[string]string{
	"log_level":               "LOG_LEVEL",
	"app_name":                "APP_NAME",
	"listen_address":          "LISTEN_ADDRESS",
	"insecure_listen_address": "INSECURE_LISTEN_ADDRESS",
	"debug_listen_address":    "DEBUG_LISTEN_ADDRESS",
	"tls_certificate":         "TLS_CERTIFICATE",
	"tls_private_key":         "TLS_PRIVATE_KEY",
	"shutdown_grace_period":   "SHUTDOWN_GRACE_PERIOD",
	"enable_pprof":            "ENABLE_PPROF",
	"enable_expvar":           "ENABLE_EXPVAR",
	"enable_ballast":          "ENABLE_BALLAST",
	"ballast_capacity":        "BALLAST_CAPACITY",
	"restart_schedule":        "RESTART_SCHEDULE",
	"new_relic_license_key":   "NEW_RELIC_LICENSE_KEY",
}

// loadConfig reads the YAML file at path, if one exists, and overlays any
// bound environment variables on top of the defaults.
func loadConfig(path string) (BaseConfig, error) {
	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return BaseConfig{}, errors.Wrapf(err, "failed to bind %s", env)
		}
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return BaseConfig{}, errors.Wrapf(err, "failed to read %s", path)
		}
	case !os.IsNotExist(err):
		return BaseConfig{}, errors.Wrapf(err, "failed to stat %s", path)
	}

	config := defaultBaseConfig()
	if err := v.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "failed to decode config")
	}
	return config, config.validate()
}

func (c BaseConfig) validate() error {
	switch {
	case c.AppName == "":
		return errors.New("app_name is required")
	case c.InsecureListenAddress == "":
		return errors.New("insecure_listen_address is required")
	case c.TLSCertificate != "" && c.TLSKey == "":
		return errors.New("tls_private_key is required with tls_certificate")
	case c.TLSCertificate == "" && c.TLSKey != "":
		return errors.New("tls_certificate is required with tls_private_key")
	case c.ShutdownGracePeriod <= 0:
		return errors.New("shutdown_grace_period must be positive")
	}
	return nil
}

// ballastSize is the ballast to allocate given the total memory available to
// the process.
func (c BaseConfig) ballastSize(totalMemory uint64) uint64 {
	if !c.EnableBallast || c.BallastCapacity <= 0 {
		return 0
	}
	capacity := min(c.BallastCapacity, maxBallastCapacity)
	return uint64(float64(capacity) * float64(totalMemory))
}
