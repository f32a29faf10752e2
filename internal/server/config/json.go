package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/nexakey/internal/flagx"
	"github.com/dmitrijs2005/nexakey/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for JSON and YAML decoding. Pointer fields tell
// "absent" apart from zero values, so a file only overrides what it names.
// Durations use timex.Duration, which accepts "24h" as well as nanoseconds.
type FileConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN                 *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                   *string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	FreeItemLimit               *int            `json:"free_item_limit" yaml:"free_item_limit"`
	AuthRateLimit               *int            `json:"auth_rate_limit" yaml:"auth_rate_limit"`
	RedisAddr                   *string         `json:"redis_addr" yaml:"redis_addr"`
	S3RootUser                  *string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                    *string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	BackupLinkValidity          *timex.Duration `json:"backup_link_validity" yaml:"backup_link_validity"`
}

// parseFile loads the file named by -c/-config into config. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON. Without the
// flag nothing happens. An unreadable or malformed file panics, as a
// misconfigured server must not start.
func parseFile(config *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, fc.DatabaseDSN)
	setString(&config.SecretKey, fc.SecretKey)
	if fc.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.FreeItemLimit != nil {
		setLimit(&config.FreeItemLimit, *fc.FreeItemLimit)
	}
	if fc.AuthRateLimit != nil {
		setLimit(&config.AuthRateLimit, *fc.AuthRateLimit)
	}
	setString(&config.RedisAddr, fc.RedisAddr)
	setString(&config.S3RootUser, fc.S3RootUser)
	setString(&config.S3RootPassword, fc.S3RootPassword)
	setString(&config.S3Bucket, fc.S3Bucket)
	setString(&config.S3Region, fc.S3Region)
	setString(&config.S3BaseEndpoint, fc.S3BaseEndpoint)
	if fc.BackupLinkValidity != nil {
		config.BackupLinkValidity = fc.BackupLinkValidity.Duration
	}
}

// setLimit stores n unless it is negative.
func setLimit(dst *int, n int) {
	if n >= 0 {
		*dst = n
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
