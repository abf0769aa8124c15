// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/luxfi/tokenbridge/relayer"
)

const usageText = `Usage:
bridged serve --config-file path-to-config            Runs the bridge daemon with the given configuration
bridged serve --help                                  Display bridged serve usage and exit.

Every configuration key may also be set through the environment, e.g.
API_PORT=9650 or RELAYER_ENABLED=true. USER_ENDPOINTS=true serves the
unauthenticated transfer and message endpoints on development ledgers. The config file may be JSON or YAML.
`

// DisplayUsageText prints the serve usage
func DisplayUsageText() {
	fmt.Print(usageText)
}

// BuildFlagSet returns the flags accepted on the command line
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("bridged", pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "Specifies the bridge config file")
	fs.String(LogLevelKey, defaultLogLevel, "Log level: trace, debug, info, warn, error or off")
	fs.Uint16(APIPortKey, defaultAPIPort, "Port of the HTTP API")
	fs.String(DBTypeKey, defaultDBType, "Database backend: memdb or badgerdb")
	fs.String(DBPathKey, "", "Directory of the badgerdb database")
	fs.Bool(RelayerEnabledKey, false, "Run the local validator and relayer workers")
	fs.Bool(UserEndpointsKey, false, "Serve the unauthenticated transfer and message endpoints")
	return fs
}

// BuildViper binds fs and the environment, then reads the config file if one
// is given via the command line flag or environment variable.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	// Map flag names to env var names. Flags are capitalized, and hyphens and
	// dots are replaced with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	if err := v.BindEnv(ConfigFileKey, ConfigFileEnvKey); err != nil {
		return nil, err
	}

	if !v.IsSet(ConfigFileKey) || v.GetString(ConfigFileKey) == "" {
		return v, nil
	}
	filename := v.GetString(ConfigFileKey)
	v.SetConfigFile(filename)
	v.SetConfigType(configType(filename))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return v, nil
}

func configType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func SetDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(APIPortKey, defaultAPIPort)
	v.SetDefault(DBTypeKey, defaultDBType)
	v.SetDefault(SignatureCacheSizeKey, DefaultSignatureCacheSize)
	v.SetDefault(UserEndpointsKey, false)
	v.SetDefault(PollIntervalKey, relayer.DefaultPollInterval)
	v.SetDefault(BatchSizeKey, relayer.DefaultBatchSize)
	v.SetDefault(MaxConcurrentKey, relayer.DefaultMaxConcurrentEvents)
	v.SetDefault(RetryTimeoutKey, relayer.DefaultRetryTimeout)
}

// BuildConfig constructs the bridge config using Viper.
// The following precedence order is used. Each item takes precedence over the item below it:
//  1. Flags
//  2. Environment
//  3. Config file
//  4. Defaults
func BuildConfig(v *viper.Viper) (Config, error) {
	SetDefaultConfigValues(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	cfg.DBPath = getExpandedPath(v, DBPathKey)
	return cfg, nil
}

// NewConfig builds and validates the config
func NewConfig(v *viper.Viper) (Config, error) {
	cfg, err := BuildConfig(v)
	if err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

// getExpandedPath gets the string in viper corresponding to [key] and expands
// any variables using the OS env.
func getExpandedPath(v *viper.Viper, key string) string {
	return os.Expand(
		v.GetString(key),
		func(strVar string) string {
			return os.Getenv(strVar)
		},
	)
}
