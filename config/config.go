// Package config loads conversation options and login credentials from files.
package config

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"http-conversation/application/http/actor/client"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig      = errors.New("invalid config")
	ErrInvalidCredentials = errors.New("invalid credentials file")
)

// FileConfig is the on-disk form of [client.Options].
// Absent keys keep their default. Durations use Go duration format: "5s", "1m".
type FileConfig struct {
	Port            *uint16 `yaml:"port"`
	ConnectTimeout  string  `yaml:"connect_timeout"`
	ReceiveTimeout  string  `yaml:"receive_timeout"`
	ResponseTimeout string  `yaml:"response_timeout"`
	MaxReferrals    *uint   `yaml:"max_referrals"`
	MaxRetries      *uint   `yaml:"max_retries"`
	ExtendedHeaders *bool   `yaml:"extended_headers"`
	AcceptEncoding  *string `yaml:"accept_encoding"`
	ForceSecure     *bool   `yaml:"force_secure"`
	KeepAlive       *bool   `yaml:"keep_alive"`
	RequestInterval string  `yaml:"request_interval"`
	ReadBufferSize  *int    `yaml:"read_buffer_size"`
	UserAgent       *string `yaml:"user_agent"`
}

// Load reads the YAML file at path and applies it over [client.DefaultOptions].
func Load(path string) (client.Options, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return client.Options{}, errors.Wrap(err, "reading config file")
	}
	return Parse(data)
}

func Parse(data []byte) (client.Options, error) {
	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return client.Options{}, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return fc.Options()
}

// Options applies fc over [client.DefaultOptions].
func (fc FileConfig) Options() (client.Options, error) {
	opts := client.DefaultOptions()

	set(&opts.Port, fc.Port)
	set(&opts.MaxReferrals, fc.MaxReferrals)
	set(&opts.MaxRetries, fc.MaxRetries)
	set(&opts.Send.ExtendedHeaders, fc.ExtendedHeaders)
	set(&opts.Send.AcceptEncoding, fc.AcceptEncoding)
	set(&opts.Send.UserAgent, fc.UserAgent)
	set(&opts.ForceSecure, fc.ForceSecure)
	set(&opts.KeepAlive, fc.KeepAlive)
	set(&opts.Receive.BufferSize, fc.ReadBufferSize)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", fc.ConnectTimeout, &opts.Timeout.Connect},
		{"receive_timeout", fc.ReceiveTimeout, &opts.Timeout.Receive},
		{"response_timeout", fc.ResponseTimeout, &opts.Timeout.Response},
		{"request_interval", fc.RequestInterval, &opts.RequestInterval},
	}
	for _, d := range durations {
		if err := parseDurationInto(d.raw, d.dst); err != nil {
			return client.Options{}, errors.Wrapf(ErrInvalidConfig, "%s: %v", d.key, err)
		}
	}

	switch {
	case opts.Port == 0:
		return client.Options{}, errors.Wrap(ErrInvalidConfig, "port must not be zero")
	case opts.MaxRetries == 0:
		return client.Options{}, errors.Wrap(ErrInvalidConfig, "max_retries must be at least 1")
	case opts.Receive.BufferSize <= 0:
		return client.Options{}, errors.Wrap(ErrInvalidConfig, "read_buffer_size must be positive")
	}

	return opts, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func parseDurationInto(raw string, dst *time.Duration) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	if d < 0 {
		return errors.Errorf("negative duration %q", raw)
	}
	*dst = d
	return nil
}

// Credentials are read from a file of three lines: username, password and
// the login URL.
type Credentials struct {
	Username string
	Password string
	LoginURL string
}

func LoadCredentials(path string) (Credentials, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Credentials{}, errors.Wrap(err, "opening credentials file")
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return Credentials{}, errors.Wrap(err, "reading credentials file")
	}

	// A trailing empty line is fine.
	for len(lines) > 3 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) != 3 {
		return Credentials{}, errors.Wrapf(ErrInvalidCredentials, "want 3 lines, got %d", len(lines))
	}
	for i, l := range lines {
		if l == "" {
			return Credentials{}, errors.Wrapf(ErrInvalidCredentials, "line %d is empty", i+1)
		}
	}

	return Credentials{Username: lines[0], Password: lines[1], LoginURL: lines[2]}, nil
}
