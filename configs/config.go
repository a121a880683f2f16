// Package configs provides library defaults loaded from an embedded YAML file.
// All hardcoded values live in defaults.yaml.
package configs

import (
	_ "embed"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults holds all library default values (loaded from defaults.yaml at startup).
var Defaults LibDefaults

func init() {
	if err := yaml.Unmarshal(defaultsYAML, &Defaults); err != nil {
		panic("foreman-providers-ovirt: invalid defaults.yaml: " + err.Error())
	}
}

// LibDefaults holds all configurable library defaults.
type LibDefaults struct {
	OVirt    OVirtDefaults       `yaml:"ovirt"`
	Timeouts TimeoutDefaults     `yaml:"timeouts"`
	History  HistoryDBDefaults   `yaml:"history_database"`
	Features map[string][]string `yaml:"features"`
	Output   OutputDefaults      `yaml:"output"`
}

// OVirtDefaults holds engine connection defaults.
type OVirtDefaults struct {
	Scheme             string `yaml:"scheme"`
	Port               int    `yaml:"port"`
	APIPath            string `yaml:"api_path"`
	LegacyPrefix       string `yaml:"legacy_prefix"`
	ResolveIPAddresses bool   `yaml:"resolve_ip_addresses"`
}

// TimeoutDefaults holds per-service-role timeouts.
type TimeoutDefaults struct {
	Service   RoleTimeouts `yaml:"service"`
	Inventory RoleTimeouts `yaml:"inventory"`
}

// RoleTimeouts holds the open (dial) and read timeouts of one service role.
// Zero means no timeout.
type RoleTimeouts struct {
	OpenSeconds int `yaml:"open_seconds"`
	ReadSeconds int `yaml:"read_seconds"`
}

func (t RoleTimeouts) Open() time.Duration {
	return time.Duration(t.OpenSeconds) * time.Second
}
func (t RoleTimeouts) Read() time.Duration {
	return time.Duration(t.ReadSeconds) * time.Second
}

// ForRole returns the timeouts configured for a service role name.
// Unknown roles get the "service" timeouts.
func (t TimeoutDefaults) ForRole(role string) RoleTimeouts {
	if role == "Inventory" {
		return t.Inventory
	}
	return t.Service
}

// HistoryDBDefaults holds defaults for the engine history (metrics) database.
type HistoryDBDefaults struct {
	Name    string `yaml:"name"`
	Port    int    `yaml:"port"`
	SSLMode string `yaml:"sslmode"`
}

// OutputDefaults holds CLI output defaults.
type OutputDefaults struct {
	RefreshSummaryPath string `yaml:"refresh_summary_path"`
	DebugLogPath       string `yaml:"debug_log_path"`
}
