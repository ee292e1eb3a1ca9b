// Package config holds the YAML-backed configuration for the admission guard.
package config

import "time"

// DefaultRedisAddress is used when no address is configured.
const DefaultRedisAddress = "localhost:6379"

// DefaultDialTimeout bounds connection establishment to the store. A hung
// connect must resolve within this bound so the fail-open path can trigger.
const DefaultDialTimeout = 5 * time.Second

// RedisConfig holds connection parameters for the shared Redis store.
type RedisConfig struct {
	Address     string        `yaml:"address"`
	Password    string        `yaml:"password,omitempty"`
	DB          int           `yaml:"db,omitempty"`
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty"`
}

// LimitConfig overrides a single dimension of an endpoint-class policy.
type LimitConfig struct {
	Max    int64         `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

// PolicyConfig overrides up to three dimensions of one endpoint class.
// Dimensions left nil keep their built-in values.
type PolicyConfig struct {
	IP   *LimitConfig `yaml:"ip,omitempty"`
	Org  *LimitConfig `yaml:"org,omitempty"`
	User *LimitConfig `yaml:"user,omitempty"`
}

// Config is the top-level configuration file structure.
type Config struct {
	Redis    RedisConfig             `yaml:"redis"`
	Policies map[string]PolicyConfig `yaml:"policies,omitempty"`
}

// Normalize fills in defaults for unset fields.
func (c *Config) Normalize() {
	if c.Redis.Address == "" {
		c.Redis.Address = DefaultRedisAddress
	}
	if c.Redis.DialTimeout <= 0 {
		c.Redis.DialTimeout = DefaultDialTimeout
	}
}
