package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/equipkeeper/internal/flagx"
	"github.com/dmitrijs2005/equipkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations use
// timex.Duration so both "1m" and integer nanoseconds are accepted.
// Zero values leave the current setting untouched.
type FileConfig struct {
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	S3RootUser                  string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                    string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogLevel                    string         `json:"log_level" yaml:"log_level"`
	LogFormat                   string         `json:"log_format" yaml:"log_format"`
	CascadeRetries              int            `json:"cascade_retries" yaml:"cascade_retries"`
	BlobDeleteConcurrency       int            `json:"blob_delete_concurrency" yaml:"blob_delete_concurrency"`
	IdentityCacheSize           int            `json:"identity_cache_size" yaml:"identity_cache_size"`
	IdentityCacheTTL            timex.Duration `json:"identity_cache_ttl" yaml:"identity_cache_ttl"`
}

// parseFile loads the file named by -c/-config into config. Files ending
// in .yaml or .yml are decoded as YAML, everything else as JSON. Without
// the flag nothing happens.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)

	if fc.AccessTokenValidityDuration.Duration > 0 {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.IdentityCacheTTL.Duration > 0 {
		c.IdentityCacheTTL = fc.IdentityCacheTTL.Duration
	}
	if fc.CascadeRetries > 0 {
		c.CascadeRetries = fc.CascadeRetries
	}
	if fc.BlobDeleteConcurrency > 0 {
		c.BlobDeleteConcurrency = fc.BlobDeleteConcurrency
	}
	if fc.IdentityCacheSize > 0 {
		c.IdentityCacheSize = fc.IdentityCacheSize
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
