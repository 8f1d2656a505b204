package config

import (
	"fmt"

	"github.com/robfig/config"
)

// DefaultFilePath is the path to the config file when no override is given
const DefaultFilePath string = "/etc/ledgerline/api.conf"

// APISection is the [api] section of the config file
const APISection string = "api"

// Config file keys
const (
	Environment = "environment"

	ListenPort = "listen_port"

	UpstreamBaseURL     = "upstream_base_url"
	PersonalAccessToken = "personal_access_token"
	BankAccountID       = "bank_account_id"

	StatementDetailPassword = "statement_detail_password"

	SharedStoreName     = "shared_store_name"
	SharedStoreCapacity = "shared_store_capacity"
	CacheFilePath       = "cache_file_path"

	MinSecsBetweenCalls  = "min_secs_between_calls"
	FetchTimeoutSecs     = "fetch_timeout_secs"
	ResponseCacheTTLSecs = "response_cache_ttl_secs"

	AdvisoryLock     = "advisory_lock"
	AdvisoryLockPath = "advisory_lock_path"
)

var configRequiredStrings = []string{
	AdvisoryLockPath,
	BankAccountID,
	CacheFilePath,
	Environment,
	PersonalAccessToken,
	SharedStoreName,
	StatementDetailPassword,
	UpstreamBaseURL,
}

var configRequiredInt64s = []string{
	FetchTimeoutSecs,
	ListenPort,
	MinSecsBetweenCalls,
	ResponseCacheTTLSecs,
	SharedStoreCapacity,
}

var configRequiredBools = []string{
	AdvisoryLock,
}

// ConfigStrings contains the string values for the given config keys
var ConfigStrings = map[string]string{}

// ConfigInt64s contains the int64 values for the given config keys
var ConfigInt64s = map[string]int64{}

// ConfigBools contains the bool values for the given config keys
var ConfigBools = map[string]bool{}

// Load reads the config file at the given path and populates the exported
// maps. Every required key must be present; the first missing or mistyped
// key aborts the load. Loading is explicit rather than an init() side-effect
// so that tests never need a config file on disk.
func Load(filePath string) error {
	c, err := config.ReadDefault(filePath)
	if err != nil {
		return fmt.Errorf("config: %s: %v", filePath, err)
	}

	for _, key := range configRequiredStrings {
		s, err := c.String(APISection, key)
		if err != nil {
			return fmt.Errorf("config: %s: %v", key, err)
		}
		ConfigStrings[key] = s
	}

	for _, key := range configRequiredInt64s {
		ii, err := c.Int(APISection, key)
		if err != nil {
			return fmt.Errorf("config: %s: %v", key, err)
		}
		ConfigInt64s[key] = int64(ii)
	}

	for _, key := range configRequiredBools {
		b, err := c.Bool(APISection, key)
		if err != nil {
			return fmt.Errorf("config: %s: %v", key, err)
		}
		ConfigBools[key] = b
	}

	return nil
}
