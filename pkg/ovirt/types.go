// Package ovirt provides the transport layer for oVirt engines: a connection
// factory for API versions 3 and 4, the error taxonomy every caller depends on,
// and helpers that normalize API resource identifiers.
package ovirt

import (
	"strconv"
	"strings"

	"github.com/agrare/foreman-providers-ovirt/configs"
)

// Version is an oVirt API major version.
type Version int

const (
	V3 Version = 3
	V4 Version = 4
)

// String returns the version number as text ("3", "4").
func (v Version) String() string {
	return strconv.Itoa(int(v))
}

// Valid reports whether v is a version this package can connect with.
func (v Version) Valid() bool {
	return v == V3 || v == V4
}

// AuthRole selects which credential pair of a manager is used.
type AuthRole string

const (
	AuthDefault AuthRole = "default"
	AuthMetrics AuthRole = "metrics"
)

// SupportedAuthRoles lists the auth roles a manager can carry.
func SupportedAuthRoles() []AuthRole {
	return []AuthRole{AuthDefault, AuthMetrics}
}

// ServiceRole tags a connection with the kind of work it is opened for.
// It selects the timeouts applied to the connection.
type ServiceRole string

const (
	ServiceDefault   ServiceRole = "Service"
	ServiceInventory ServiceRole = "Inventory"
)

// Endpoint holds the network location of an engine API.
type Endpoint struct {
	Scheme    string `yaml:"scheme,omitempty" json:"scheme,omitempty" validate:"omitempty,oneof=https http"`
	Host      string `yaml:"host" json:"host" validate:"required"`
	Port      string `yaml:"port,omitempty" json:"port,omitempty"` // textual; coerced to a number where required
	Path      string `yaml:"path,omitempty" json:"path,omitempty"`
	VerifySSL bool   `yaml:"verify_ssl" json:"verify_ssl"`
	CACerts   string `yaml:"ca_certs,omitempty" json:"ca_certs,omitempty"` // PEM bundle; empty = system trust store
}

// Normalize returns a copy of e with scheme, port and path defaults applied.
// The path is never empty afterwards.
func (e Endpoint) Normalize() Endpoint {
	d := configs.Defaults.OVirt
	e.Host = strings.TrimSpace(e.Host)
	if e.Scheme == "" {
		e.Scheme = d.Scheme
	}
	if strings.TrimSpace(e.Port) == "" {
		e.Port = strconv.Itoa(d.Port)
	}
	if strings.TrimSpace(e.Path) == "" {
		e.Path = d.APIPath
	}
	return e
}

// Credentials is a username/password pair for one auth role.
// Password may be in the encrypted "v2:{...}" format.
type Credentials struct {
	Username string   `yaml:"username" json:"username" validate:"required"`
	Password string   `yaml:"password" json:"-"`
	AuthRole AuthRole `yaml:"auth_role,omitempty" json:"auth_role,omitempty" validate:"omitempty,oneof=default metrics"`
}

// ProductInfo describes the engine behind a connection.
type ProductInfo struct {
	Name        string
	FullVersion string
	Major       int
	Minor       int
}

// Host is a raw hypervisor record.
type Host struct {
	ID          string
	Href        string
	Name        string
	Address     string
	Status      string
	ClusterHref string
}

// VM is a raw virtual machine record.
type VM struct {
	ID           string
	Href         string
	Name         string
	Status       string
	MemoryBytes  int64
	HostHref     string
	ClusterHref  string
	TemplateHref string
}

// Template is a raw template record.
type Template struct {
	ID          string
	Href        string
	Name        string
	Status      string
	ClusterHref string
}

// Cluster is a raw cluster record.
type Cluster struct {
	ID             string
	Href           string
	Name           string
	DataCenterHref string
}

// Inventory is the complete set of raw records fetched from an engine.
type Inventory struct {
	Hosts     []Host
	VMs       []VM
	Templates []Template
	Clusters  []Cluster
}
