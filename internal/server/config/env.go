package config

import (
	"strconv"
	"strings"
	"time"
)

// Environment variable names understood by parseEnv.
const (
	EnvHTTPAddr        = "HTTP_ADDR"
	EnvDatabaseDSN     = "DATABASE_DSN"
	EnvSecretKey       = "SECRET_KEY"
	EnvAccessTokenTTL  = "ACCESS_TOKEN_TTL"
	EnvFreeItemLimit   = "FREE_ITEM_LIMIT"
	EnvAuthRateLimit   = "AUTH_RATE_LIMIT"
	EnvRedisAddr       = "REDIS_ADDR"
	EnvS3RootUser      = "S3_ROOT_USER"
	EnvS3RootPassword  = "S3_ROOT_PASSWORD"
	EnvS3Bucket        = "S3_BUCKET"
	EnvS3Region        = "S3_REGION"
	EnvS3BaseEndpoint  = "S3_BASE_ENDPOINT"
	EnvBackupLinkValid = "BACKUP_LINK_VALIDITY"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// parseEnv overlays non-empty environment variables. Malformed numbers and
// durations are ignored and the previous value is kept.
func parseEnv(config *Config, lookup lookupFunc) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvHTTPAddr); ok {
		config.EndpointAddrHTTP = v
	}
	if v, ok := get(EnvDatabaseDSN); ok {
		config.DatabaseDSN = v
	}
	if v, ok := get(EnvSecretKey); ok {
		config.SecretKey = v
	}
	if v, ok := get(EnvAccessTokenTTL); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.AccessTokenValidityDuration = d
		}
	}
	if v, ok := get(EnvFreeItemLimit); ok {
		if n, err := strconv.Atoi(v); err == nil {
			setLimit(&config.FreeItemLimit, n)
		}
	}
	if v, ok := get(EnvAuthRateLimit); ok {
		if n, err := strconv.Atoi(v); err == nil {
			setLimit(&config.AuthRateLimit, n)
		}
	}
	if v, ok := get(EnvRedisAddr); ok {
		config.RedisAddr = v
	}
	if v, ok := get(EnvS3RootUser); ok {
		config.S3RootUser = v
	}
	if v, ok := get(EnvS3RootPassword); ok {
		config.S3RootPassword = v
	}
	if v, ok := get(EnvS3Bucket); ok {
		config.S3Bucket = v
	}
	if v, ok := get(EnvS3Region); ok {
		config.S3Region = v
	}
	if v, ok := get(EnvS3BaseEndpoint); ok {
		config.S3BaseEndpoint = v
	}
	if v, ok := get(EnvBackupLinkValid); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.BackupLinkValidity = d
		}
	}
}
