// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	VersionKey    = "version"
	HelpKey       = "help"

	// Environment variable keys
	ConfigFileEnvKey = "CONFIG_FILE"

	// Top-level configuration keys
	LogLevelKey           = "log-level"
	APIPortKey            = "api-port"
	DBTypeKey             = "db-type"
	DBPathKey             = "db-path"
	ModeKey               = "mode"
	OwnerKey              = "owner"
	DecimalShiftKey       = "decimal-shift"
	RequiredSignaturesKey = "required-signatures"
	SignatureCacheSizeKey = "signature-cache-size"
	ValidatorKeysKey      = "validator-keys"
	UserEndpointsKey      = "user-endpoints"
	RelayerEnabledKey     = "relayer.enabled"
	PollIntervalKey       = "relayer.poll-interval"
	BatchSizeKey          = "relayer.batch-size"
	MaxConcurrentKey      = "relayer.max-concurrent-events"
	RetryTimeoutKey       = "relayer.retry-timeout"
)
