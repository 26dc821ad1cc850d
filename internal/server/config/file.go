package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/codereg/internal/flagx"
	"github.com/dmitrijs2005/codereg/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// either "5s" strings or integer nanoseconds. Only keys present in the file
// override the current values.
type FileConfig struct {
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	MetricsAddr      *string        `json:"metrics_addr" yaml:"metrics_addr"`
	DatabaseDSN      string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey        string         `json:"secret_key" yaml:"secret_key"`
	DOIPrefix        string         `json:"doi_prefix" yaml:"doi_prefix"`
	SiteURL          string         `json:"site_url" yaml:"site_url"`
	LockTimeout      timex.Duration `json:"lock_timeout" yaml:"lock_timeout"`
	SyncTimeout      timex.Duration `json:"sync_timeout" yaml:"sync_timeout"`
	S3RootUser       string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region         string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	IndexURL         *string        `json:"index_url" yaml:"index_url"`
	LogFormat        string         `json:"log_format" yaml:"log_format"`
}

// parseFile overlays the file named by -c/-config onto config. A missing or
// malformed file panics: the server must not start on a config it did not
// understand.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}
	if err := LoadFile(config, path); err != nil {
		panic(err)
	}
}

// LoadFile overlays the file at path onto config. Files ending in .yaml or
// .yml are decoded as YAML, everything else as JSON.
func LoadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.DOIPrefix, c.DOIPrefix)
	setString(&config.SiteURL, c.SiteURL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogFormat, c.LogFormat)

	// empty values are meaningful here: they switch the feature off
	if c.MetricsAddr != nil {
		config.MetricsAddr = *c.MetricsAddr
	}
	if c.IndexURL != nil {
		config.IndexURL = *c.IndexURL
	}

	if c.LockTimeout.Duration > 0 {
		config.LockTimeout = c.LockTimeout.Duration
	}
	if c.SyncTimeout.Duration > 0 {
		config.SyncTimeout = c.SyncTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
