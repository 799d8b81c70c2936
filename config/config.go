package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Global tool configuration. The credential store is deliberately NOT
// part of this: credentials are re-read per operation (see store.go),
// while this config describes the deployment and is read once per
// command invocation.
type Config struct {
	// BackingDir is the real directory tree the mount mediates.
	BackingDir string `mapstructure:"backing_dir"`

	// MountPoint is where the mediated view is exposed.
	MountPoint string `mapstructure:"mount_point"`

	// AuditLog overrides the default audit log location.
	AuditLog string `mapstructure:"audit_log"`

	// AllowOther passes allow_other to the kernel mount so other local
	// users can traverse the mount point.
	AllowOther bool `mapstructure:"allow_other"`
}

var (
	setupOnce sync.Once
	setupErr  error
)

// ErrConfigAlreadyExists is returned when creating the config without force and it already exists.
var ErrConfigAlreadyExists = errors.New("blpfs config already exists")

// DefaultConfig returns the canonical default configuration used by blpfs.
func DefaultConfig() Config {
	return Config{
		BackingDir: "",
		MountPoint: "",
		AuditLog:   "",
		AllowOther: false,
	}
}

func Load(fs *pflag.FlagSet) (Config, error) {
	if err := ensureViperConfigured(); err != nil {
		return Config{}, err
	}

	// Bind CLI flags so they override config/env
	bindFlags(fs)

	// Read the config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// CreateConfig writes the blpfs config file and returns its absolute path.
func CreateConfig(cfg Config) (string, error) {
	if _, err := createConfigDir(); err != nil {
		return "", err
	}

	cfgFile, err := ConfigFilePath()
	if err != nil {
		return "", err
	}

	writer := viper.New()
	writer.SetConfigType(blpfsConfigType)

	if err := writer.MergeConfigMap(configAsMap(cfg)); err != nil {
		return "", fmt.Errorf("failed to prepare default config: %w", err)
	}

	writeErr := writer.SafeWriteConfigAs(cfgFile)

	if writeErr != nil {
		var alreadyExistsErr viper.ConfigFileAlreadyExistsError
		if errors.As(writeErr, &alreadyExistsErr) {
			return cfgFile, ErrConfigAlreadyExists
		}
		return "", fmt.Errorf("error writing config file: %w", writeErr)
	}

	if err := ensureViperConfigured(); err == nil {
		for key, value := range configAsMap(cfg) {
			viper.Set(key, value)
		}
	}

	return cfgFile, nil
}

// SaveConfig persists the given configuration, overwriting any existing
// config file. The mount command uses it to record the deployment so
// the shell and expurgate commands can find the backing tree later.
func SaveConfig(cfg Config) error {
	if _, err := createConfigDir(); err != nil {
		return err
	}

	cfgFile, err := ConfigFilePath()
	if err != nil {
		return err
	}

	writer := viper.New()
	writer.SetConfigType(blpfsConfigType)

	if err := writer.MergeConfigMap(configAsMap(cfg)); err != nil {
		return fmt.Errorf("failed to prepare config: %w", err)
	}

	if err := writer.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

func ensureViperConfigured() error {
	setupOnce.Do(func() {
		dir, err := ConfigDir()
		if err != nil {
			setupErr = err
			return
		}

		v := viper.GetViper()
		v.SetConfigName(blpfsConfigName)
		v.SetConfigType(blpfsConfigType)
		v.AddConfigPath(dir)

		v.SetEnvPrefix("BLPFS")
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()

		for key, value := range configAsMap(DefaultConfig()) {
			v.SetDefault(key, value)
		}
	})

	return setupErr
}

func bindFlags(fs *pflag.FlagSet) {
	if fs == nil {
		return
	}

	// Helper binds a flag if it exists
	bind := func(key, flag string) {
		if f := fs.Lookup(flag); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}

	bind("backing_dir", "backing-dir")
	bind("mount_point", "mount-point")
	bind("audit_log", "audit-log")
	bind("allow_other", "allow-other")
}

// Helper function to map the provided config for setting key/values in viper
func configAsMap(cfg Config) map[string]any {
	return map[string]any{
		"backing_dir": cfg.BackingDir,
		"mount_point": cfg.MountPoint,
		"audit_log":   cfg.AuditLog,
		"allow_other": cfg.AllowOther,
	}
}
