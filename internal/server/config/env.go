package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envConfig maps environment variables onto config fields. MASTER_KEY is the
// only supported way to inject the master secret in a deployment; it never
// appears on the command line.
type envConfig struct {
	EndpointAddrHTTP string `env:"ENDPOINT_ADDR_HTTP"`
	DatabaseDSN      string `env:"DATABASE_DSN"`
	SecretKey        string `env:"SECRET_KEY"`
	MasterKeyHex     string `env:"MASTER_KEY"`
	S3RootUser       string `env:"S3_ROOT_USER"`
	S3RootPassword   string `env:"S3_ROOT_PASSWORD"`
	S3Bucket         string `env:"S3_BUCKET"`
	S3Region         string `env:"S3_REGION"`
	S3BaseEndpoint   string `env:"S3_BASE_ENDPOINT"`
}

// parseEnv overlays environment variables onto the config. Unset variables
// leave the existing values intact.
func parseEnv(config *Config) error {
	e := envConfig{}
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("env parse error: %w", err)
	}

	if e.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = e.EndpointAddrHTTP
	}
	if e.DatabaseDSN != "" {
		config.DatabaseDSN = e.DatabaseDSN
	}
	if e.SecretKey != "" {
		config.SecretKey = e.SecretKey
	}
	if e.MasterKeyHex != "" {
		config.MasterKeyHex = e.MasterKeyHex
	}
	if e.S3RootUser != "" {
		config.S3RootUser = e.S3RootUser
	}
	if e.S3RootPassword != "" {
		config.S3RootPassword = e.S3RootPassword
	}
	if e.S3Bucket != "" {
		config.S3Bucket = e.S3Bucket
	}
	if e.S3Region != "" {
		config.S3Region = e.S3Region
	}
	if e.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = e.S3BaseEndpoint
	}

	return nil
}
