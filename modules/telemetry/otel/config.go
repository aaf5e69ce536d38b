package otel

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultEndpoint    = "localhost:4318"
	defaultURLPath     = "/v1/traces"
	defaultServiceName = "ghostmail"
	defaultTimeout     = 10 * time.Second
)

// Config holds the tracing exporter configuration.
type Config struct {
	// Endpoint is the collector host:port, without scheme.
	Endpoint string `yaml:"endpoint"`
	URLPath  string `yaml:"url_path"`
	Insecure bool   `yaml:"insecure"`
	// Headers are sent with every export, e.g. an authorization header.
	Headers map[string]string `yaml:"headers"`

	ServiceName string `yaml:"service_name"`
	// SampleRatio is the fraction of root spans kept. Nil means 1.
	SampleRatio *float64      `yaml:"sample_ratio"`
	Timeout     time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.URLPath == "" {
		c.URLPath = defaultURLPath
	}
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) ratio() float64 {
	if c.SampleRatio == nil {
		return 1
	}
	return *c.SampleRatio
}

func (c *Config) validate() error {
	var errs []error
	if strings.Contains(c.Endpoint, "://") {
		errs = append(errs, fmt.Errorf("otel: endpoint must be host:port without scheme, got %q", c.Endpoint))
	}
	if !strings.HasPrefix(c.URLPath, "/") {
		errs = append(errs, fmt.Errorf("otel: url_path must start with /, got %q", c.URLPath))
	}
	if r := c.ratio(); r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("otel: sample_ratio must be within [0, 1], got %v", r))
	}
	if c.ServiceName == "" {
		errs = append(errs, errors.New("otel: service_name is required"))
	}
	return errors.Join(errs...)
}
