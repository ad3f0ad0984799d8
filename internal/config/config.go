// Package config declares the desired shape of a running logcore instance:
// which source adapters to run, and the order in which the timestamp
// registry should try its patterns for this deployment.
//
// Scaled down from a whole-system config store (filters, rotation/retention
// policies, stores, certs, users) to the one thing this core needs, since
// the archive, multi-tenant routing, and auth it used to describe are out
// of scope here.
package config

import "context"

// Store persists and loads the desired configuration.
type Store interface {
	// Load reads the full configuration. Returns nil if nothing exists
	// (bootstrap signal: the caller should fall back to built-in defaults).
	Load(ctx context.Context) (*Config, error)

	// Save persists cfg, replacing whatever was there before.
	Save(ctx context.Context, cfg *Config) error
}

// Config describes the desired system shape.
type Config struct {
	// Sources lists the source adapters to instantiate.
	Sources []SourceConfig `json:"sources,omitempty"`

	// PatternOrder, if non-empty, names timestamp patterns (by
	// tspattern.Pattern.Name) in the order the registry should try them for
	// this deployment. Patterns not named here keep the default registry's
	// declared order, tried after every named pattern. This is a hint, not
	// a replacement registry: an unrecognized name is ignored rather than
	// rejected, since a future registry may add patterns this config
	// predates.
	PatternOrder []string `json:"patternOrder,omitempty"`
}

// SourceConfig describes a source adapter to instantiate.
type SourceConfig struct {
	// ID is a unique identifier for this source, passed to its factory as
	// the adapter's uuid.UUID identity when parseable. Any other non-empty
	// ID is mapped to a name-based (SHA-1) UUID derived from it; an empty
	// ID gets a freshly generated one.
	ID string `json:"id"`

	// Type identifies the adapter implementation ("file", "kafka", "relp",
	// "mqtt", "http", "syslog").
	Type string `json:"type"`

	// Params contains type-specific configuration as opaque string
	// key-value pairs. Parsing and validation are the responsibility of
	// the factory that consumes the params; Store does not enforce a
	// schema.
	Params map[string]string `json:"params,omitempty"`
}
