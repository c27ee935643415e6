package sync

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreConfig declares one named store backend in a topology file.
type StoreConfig struct {
	// Name is the registry key sync pairs reference.
	Name string `yaml:"name"`

	// Driver selects the backend: "postgres" or "sqlite".
	Driver string `yaml:"driver"`

	// DSN is the driver-specific connection string: a PostgreSQL URL or a
	// SQLite file path.
	DSN string `yaml:"dsn"`

	// ChangeLogging enables transactional change capture. Only meaningful
	// for the postgres driver.
	ChangeLogging bool `yaml:"change_logging,omitempty"`
}

// PairConfig declares one sync pair in a topology file.
type PairConfig struct {
	Name      string        `yaml:"name"`
	Source    string        `yaml:"source"`
	Target    string        `yaml:"target"`
	Direction string        `yaml:"direction,omitempty"`
	Interval  time.Duration `yaml:"interval"`
}

// Topology is the YAML document describing stores and the sync pairs
// between them:
//
//	stores:
//	  - name: main
//	    driver: postgres
//	    dsn: postgres://localhost/platform
//	    change_logging: true
//	  - name: edge
//	    driver: sqlite
//	    dsn: /var/lib/platform/edge.db
//	pairs:
//	  - name: main-to-edge
//	    source: main
//	    target: edge
//	    direction: source_to_target
//	    interval: 30s
type Topology struct {
	Stores []StoreConfig `yaml:"stores"`
	Pairs  []PairConfig  `yaml:"pairs"`
}

// LoadTopology reads and validates a topology file.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}
	return ParseTopology(data)
}

// ParseTopology decodes and validates topology YAML.
func ParseTopology(data []byte) (*Topology, error) {
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("failed to parse topology: %w", err)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return &topo, nil
}

// Validate checks the topology for missing fields, duplicate names, and
// pairs referencing undeclared stores.
func (t *Topology) Validate() error {
	if len(t.Stores) == 0 {
		return fmt.Errorf("topology declares no stores")
	}

	names := map[string]bool{}
	for _, sc := range t.Stores {
		if sc.Name == "" {
			return fmt.Errorf("store entry missing name")
		}
		if names[sc.Name] {
			return fmt.Errorf("duplicate store name %q", sc.Name)
		}
		names[sc.Name] = true

		switch sc.Driver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("store %s: unknown driver %q", sc.Name, sc.Driver)
		}
		if sc.DSN == "" {
			return fmt.Errorf("store %s: dsn is required", sc.Name)
		}
		if sc.ChangeLogging && sc.Driver != "postgres" {
			return fmt.Errorf("store %s: change logging requires the postgres driver", sc.Name)
		}
	}

	if len(t.Pairs) == 0 {
		return fmt.Errorf("topology declares no sync pairs")
	}
	pairNames := map[string]bool{}
	for _, pc := range t.Pairs {
		pair := pc.ToSyncPair()
		if err := pair.Validate(); err != nil {
			return err
		}
		if pairNames[pc.Name] {
			return fmt.Errorf("duplicate pair name %q", pc.Name)
		}
		pairNames[pc.Name] = true
		if !names[pc.Source] {
			return fmt.Errorf("pair %s: undeclared source store %q", pc.Name, pc.Source)
		}
		if !names[pc.Target] {
			return fmt.Errorf("pair %s: undeclared target store %q", pc.Name, pc.Target)
		}
	}
	return nil
}

// ToSyncPair converts the YAML form to the runtime pair definition.
func (pc PairConfig) ToSyncPair() SyncPair {
	return SyncPair{
		Name:      pc.Name,
		Source:    pc.Source,
		Target:    pc.Target,
		Direction: Direction(pc.Direction),
		Interval:  pc.Interval,
	}
}
