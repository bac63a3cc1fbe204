// Package config replaces the source implementation's global mutable
// DebugValues dict (spec.md §9 Design Notes) with an explicit struct
// threaded through every subsystem at construction time.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable named in spec.md §6 plus the constants §9
// says should be configurable rather than hardcoded.
type Config struct {
	// ImageRoot is PKG_IMAGE: the image root directory.
	ImageRoot string

	// ConnectTimeout is PKG_CLIENT_CONNECT_TIMEOUT.
	ConnectTimeout time.Duration
	// ReadTimeout is PKG_CLIENT_READ_TIMEOUT.
	ReadTimeout time.Duration

	// NoNetworkCache is PKG_NO_NETWORK_CACHE: disables HTTP caches and
	// forces Cache-Control: no-cache on every request.
	NoNetworkCache bool

	// DebugFlags is the parsed form of PKG_DEBUG (comma-separated).
	DebugFlags map[string]struct{}

	// MaxConcurrentFetches bounds concurrent GETs per publisher (§5,
	// default 4).
	MaxConcurrentFetches int

	// FastIndexThreshold is MAX_FAST_INDEXED_PKGS (§4.4, §9: "not
	// exposed... implementers should make it a tunable").
	FastIndexThreshold int

	// SolverNodeExpansionLimit caps the solver's search before treating
	// the invocation as a timeout (§4.1 Failure semantics).
	SolverNodeExpansionLimit int
}

// Default returns a Config with the spec's documented defaults.
func Default() Config {
	return Config{
		ImageRoot:                "/",
		ConnectTimeout:           60 * time.Second,
		ReadTimeout:              60 * time.Second,
		MaxConcurrentFetches:     4,
		FastIndexThreshold:       10,
		SolverNodeExpansionLimit: 250_000,
		DebugFlags:               map[string]struct{}{},
	}
}

// FromEnv overlays the recognized PKG_* environment variables (§6) onto
// Default().
func FromEnv() Config {
	c := Default()
	if v := os.Getenv("PKG_IMAGE"); v != "" {
		c.ImageRoot = v
	}
	if v := os.Getenv("PKG_CLIENT_CONNECT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ConnectTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("PKG_CLIENT_READ_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ReadTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("PKG_NO_NETWORK_CACHE"); v != "" {
		c.NoNetworkCache = true
	}
	if v := os.Getenv("PKG_DEBUG"); v != "" {
		for _, flag := range strings.Split(v, ",") {
			flag = strings.TrimSpace(flag)
			if flag != "" {
				c.DebugFlags[flag] = struct{}{}
			}
		}
	}
	return c
}

// DebugEnabled reports whether the named debug flag was set via PKG_DEBUG.
func (c Config) DebugEnabled(flag string) bool {
	_, ok := c.DebugFlags[flag]
	return ok
}
