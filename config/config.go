// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAccountParam = "firebase_config"
	DefaultRedisURL     = "redis://localhost:6379"
	DefaultAdminClaim   = "admin"
)

// AccountConfig describes one identity-provider account.
type AccountConfig struct {
	Name            string `yaml:"name"`
	Type            string `yaml:"type"` // firebase, oidc or hmac
	Credentials     string `yaml:"credentials"`
	CredentialsFile string `yaml:"credentials_file"`
	ProjectID       string `yaml:"project_id"`
	IssuerURL       string `yaml:"issuer_url"`
	ClientID        string `yaml:"client_id"`
	Secret          string `yaml:"secret"`
}

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	API struct {
		BasePath    string `yaml:"base_path"`
		SwaggerHost string `yaml:"swagger_host"`
	} `yaml:"api"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`

	Auth struct {
		AccountParam string          `yaml:"account_param"`
		Accounts     []AccountConfig `yaml:"accounts"`
		Cache        struct {
			Enabled bool   `yaml:"enabled"`
			Backend string `yaml:"backend"` // redis, postgres or memory
			Redis   struct {
				URL      string `yaml:"url"`
				Host     string `yaml:"host"`
				Port     int    `yaml:"port"`
				DB       int    `yaml:"db"`
				Password string `yaml:"password"`
			} `yaml:"redis"`
			Postgres struct {
				Host     string `yaml:"host"`
				Port     int    `yaml:"port"`
				User     string `yaml:"user"`
				Password string `yaml:"password"`
				DBName   string `yaml:"dbname"`
				Table    string `yaml:"table"`
			} `yaml:"postgres"`
		} `yaml:"cache"`
		// Admin decides who may call the user-management endpoints.
		Admin struct {
			Subjects []string `yaml:"subjects"`
			Claim    string   `yaml:"claim"`
		} `yaml:"admin"`
	} `yaml:"auth"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.API.BasePath == "" {
		c.API.BasePath = "/"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 7
	}
	if c.Auth.AccountParam == "" {
		c.Auth.AccountParam = DefaultAccountParam
	}
	if c.Auth.Admin.Claim == "" {
		c.Auth.Admin.Claim = DefaultAdminClaim
	}
	if c.Auth.Cache.Backend == "" {
		c.Auth.Cache.Backend = "redis"
	}
	if c.Auth.Cache.Postgres.Table == "" {
		c.Auth.Cache.Postgres.Table = "auth_cache"
	}
	if c.Auth.Cache.Postgres.Port == 0 {
		c.Auth.Cache.Postgres.Port = 5432
	}
	for i := range c.Auth.Accounts {
		if c.Auth.Accounts[i].Type == "" {
			c.Auth.Accounts[i].Type = "firebase"
		}
	}
}

// RedisURL returns the configured redis URL, falling back to the
// REDIS_CACHE_URL and REDIS_URL environment variables.
func (c *Config) RedisURL() string {
	r := c.Auth.Cache.Redis
	if r.URL != "" {
		return r.URL
	}
	if r.Host != "" {
		port := r.Port
		if port == 0 {
			port = 6379
		}
		u := url.URL{
			Scheme: "redis",
			Host:   net.JoinHostPort(r.Host, strconv.Itoa(port)),
			Path:   "/" + strconv.Itoa(r.DB),
		}
		if r.Password != "" {
			u.User = url.UserPassword("", r.Password)
		}
		return u.String()
	}
	if v := os.Getenv("REDIS_CACHE_URL"); v != "" {
		return v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		return v
	}
	return DefaultRedisURL
}

// CredentialsJSON returns the inline credentials, or reads them from
// CredentialsFile when no inline value is set.
func (a AccountConfig) CredentialsJSON() ([]byte, error) {
	if a.Credentials != "" {
		return []byte(a.Credentials), nil
	}
	if a.CredentialsFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(a.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials for account %q: %w", a.Name, err)
	}
	return data, nil
}
