package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/agrare/foreman-providers-ovirt/internal/utils"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
	"github.com/agrare/foreman-providers-ovirt/pkg/provider"
)

// managerNamespace seeds the stable IDs of managers configured without one.
var managerNamespace = uuid.MustParse("6f1c2d7e-3b0a-4e59-9a55-0c8f3e0b7d21")

// Port is an endpoint port written either as a number or as text.
type Port string

func (p *Port) UnmarshalYAML(value *yaml.Node) error {
	*p = Port(strings.TrimSpace(value.Value))
	return nil
}

func (p *Port) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = Port(strconv.Itoa(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("port must be a number or a string: %w", err)
	}
	*p = Port(strings.TrimSpace(s))
	return nil
}

// CredentialEntry is one username/password pair of a manager.
type CredentialEntry struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// MetricsEntry locates the engine history database.
type MetricsEntry struct {
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
}

// ManagerEntry is one oVirt manager in the managers file.
type ManagerEntry struct {
	ID           string                     `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string                     `json:"name" yaml:"name"`
	Hostname     string                     `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	IPAddress    string                     `json:"ipaddress,omitempty" yaml:"ipaddress,omitempty"`
	Port         Port                       `json:"port,omitempty" yaml:"port,omitempty"`
	Scheme       string                     `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Path         string                     `json:"path,omitempty" yaml:"path,omitempty"`
	VerifySSL    bool                       `json:"verify_ssl" yaml:"verify_ssl"`
	CACerts      string                     `json:"ca_certs,omitempty" yaml:"ca_certs,omitempty"`
	GraphRefresh bool                       `json:"graph_refresh,omitempty" yaml:"graph_refresh,omitempty"`
	Credentials  map[string]CredentialEntry `json:"credentials" yaml:"credentials"`
	Metrics      MetricsEntry               `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Validate checks the fields every manager needs.
func (e ManagerEntry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("manager name is required")
	}
	if strings.TrimSpace(e.Hostname) == "" && strings.TrimSpace(e.IPAddress) == "" {
		return fmt.Errorf("manager %q: hostname or ipaddress is required", e.Name)
	}
	if _, err := utils.ParsePort(string(e.Port)); err != nil {
		return fmt.Errorf("manager %q: %w", e.Name, err)
	}
	for role := range e.Credentials {
		if !slices.Contains(ovirt.SupportedAuthRoles(), ovirt.AuthRole(role)) {
			return fmt.Errorf("manager %q: unsupported auth role %q", e.Name, role)
		}
	}
	if _, ok := e.Credentials[string(ovirt.AuthDefault)]; !ok {
		return fmt.Errorf("manager %q: default credentials are required", e.Name)
	}
	return nil
}

// Settings converts the entry into provider settings.
func (e ManagerEntry) Settings() provider.Settings {
	creds := make(map[ovirt.AuthRole]ovirt.Credentials, len(e.Credentials))
	for role, c := range e.Credentials {
		r := ovirt.AuthRole(role)
		creds[r] = ovirt.Credentials{Username: c.Username, Password: c.Password, AuthRole: r}
	}
	return provider.Settings{
		ID:        e.ID,
		Name:      e.Name,
		Hostname:  e.Hostname,
		IPAddress: e.IPAddress,
		Endpoint: ovirt.Endpoint{
			Scheme:    e.Scheme,
			Port:      string(e.Port),
			Path:      e.Path,
			VerifySSL: e.VerifySSL,
			CACerts:   e.CACerts,
		},
		Credentials:     creds,
		MetricsHostname: e.Metrics.Hostname,
		MetricsPort:     e.Metrics.Port,
		MetricsDatabase: e.Metrics.Database,
		GraphRefresh:    e.GraphRefresh,
	}
}

// ManagersFile is the on-disk list of managers.
type ManagersFile struct {
	Managers []ManagerEntry `json:"managers" yaml:"managers"`
}

// Find returns the manager with the given ID or name.
func (f *ManagersFile) Find(idOrName string) (*ManagerEntry, bool) {
	for i := range f.Managers {
		if f.Managers[i].ID == idOrName || f.Managers[i].Name == idOrName {
			return &f.Managers[i], true
		}
	}
	return nil, false
}

// StableID derives the ID of a manager configured without one.
func StableID(name string) string {
	return uuid.NewSHA1(managerNamespace, []byte(name)).String()
}

// isSOPS reports whether path names a SOPS-encrypted file.
func isSOPS(path string) bool {
	return strings.Contains(filepath.Base(path), ".sops.")
}

// LoadManagers reads the managers file from YAML or JSON. Files named
// *.sops.yaml are decrypted with the sops binary first.
func LoadManagers(path string) (*ManagersFile, error) {
	var content []byte
	var err error
	if isSOPS(path) {
		content, err = sopsDecrypt(path)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read managers %s: %w", path, err)
	}

	var out ManagersFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(content, &out)
	} else {
		err = yaml.Unmarshal(content, &out)
	}
	if err != nil {
		return nil, fmt.Errorf("parse managers %s: %w", path, err)
	}

	seen := make(map[string]bool, len(out.Managers))
	for i := range out.Managers {
		e := &out.Managers[i]
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if e.ID == "" {
			e.ID = StableID(e.Name)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate manager id %q", e.ID)
		}
		seen[e.ID] = true
	}
	return &out, nil
}

// SaveManagers writes the managers file as YAML or JSON based on the file
// extension, encrypting *.sops.yaml files with sops.
func SaveManagers(path string, f *ManagersFile) error {
	for _, e := range f.Managers {
		if err := e.Validate(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}

	var content []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		content, err = json.MarshalIndent(f, "", "  ")
	} else {
		content, err = yaml.Marshal(f)
	}
	if err != nil {
		return fmt.Errorf("marshal managers %s: %w", path, err)
	}

	if isSOPS(path) {
		return sopsEncrypt(path, content)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write managers %s: %w", path, err)
	}
	return nil
}

// FileStore persists endpoint write-backs into a managers file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the managers file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// SaveAPIPath records the negotiated API path of a manager.
func (s *FileStore) SaveAPIPath(managerID, apiPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := LoadManagers(s.path)
	if err != nil {
		return err
	}
	e, ok := f.Find(managerID)
	if !ok {
		return fmt.Errorf("manager %q not found in %s", managerID, s.path)
	}
	if e.Path == apiPath {
		return nil
	}
	e.Path = apiPath
	return SaveManagers(s.path, f)
}

var _ provider.EndpointStore = (*FileStore)(nil)
