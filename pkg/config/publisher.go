package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
)

// Origin is one fetch location for a publisher, with optional per-origin
// proxy and TLS client-cert configuration (§6).
type Origin struct {
	URL      string `json:"url"`
	Proxy    string `json:"proxy,omitempty"`
	SSLKey   string `json:"sslKey,omitempty"`
	SSLCert  string `json:"sslCert,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Publisher is the persistent per-publisher configuration named in
// spec.md §6: "prefix, alias, sticky (bool), enabled (bool), ordered
// origins, ordered mirrors, per-origin proxy, SSL key/cert pair,
// search-before/after ordering".
type Publisher struct {
	Prefix       string   `json:"prefix"`
	Alias        string   `json:"alias,omitempty"`
	Sticky       bool     `json:"sticky"`
	Enabled      bool     `json:"enabled"`
	Origins      []Origin `json:"origins"`
	Mirrors      []Origin `json:"mirrors,omitempty"`
	SearchBefore []string `json:"searchBefore,omitempty"`
	SearchAfter  []string `json:"searchAfter,omitempty"`
	// Rank is this publisher's position in the image-wide ranking used
	// by the solver's "publisher-preferred version" objective - lower is
	// more preferred. Populated from list order when loaded via
	// LoadPublishers, not stored in the YAML file itself.
	Rank int `json:"-"`
}

// PublisherList is the ordered, YAML-persisted set of configured
// publishers. Order IS the ranking (§3 Publisher ranking).
type PublisherList struct {
	Publishers []Publisher `json:"publishers"`
}

// LoadPublishers reads and decodes a publisher configuration file,
// assigning Rank from list order.
func LoadPublishers(path string) (PublisherList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PublisherList{}, fmt.Errorf("config: read publisher config %s: %w", path, err)
	}
	var list PublisherList
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return PublisherList{}, fmt.Errorf("config: parse publisher config %s: %w", path, err)
	}
	for i := range list.Publishers {
		list.Publishers[i].Rank = i
	}
	return list, nil
}

// Save writes the publisher list back to path, preserving list order as
// the new ranking.
func (l PublisherList) Save(path string) error {
	out, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("config: marshal publisher config: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

// ByPrefix returns the publisher with the given prefix, if configured.
func (l PublisherList) ByPrefix(prefix string) (Publisher, bool) {
	for _, p := range l.Publishers {
		if p.Prefix == prefix {
			return p, true
		}
	}
	return Publisher{}, false
}
