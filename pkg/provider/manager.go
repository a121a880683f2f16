// Package provider is the in-memory representation of an oVirt manager and
// the entry points the host platform calls: Refresh and VerifyCredentials.
package provider

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/agrare/foreman-providers-ovirt/internal/metrics"
	"github.com/agrare/foreman-providers-ovirt/pkg/inventory"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

// EndpointStore persists endpoint changes made while connecting.
type EndpointStore interface {
	SaveAPIPath(managerID, path string) error
}

// Settings is the configuration of one manager.
type Settings struct {
	ID        string
	Name      string
	Hostname  string
	IPAddress string
	// Endpoint carries scheme, port, path and TLS settings. Its Host is
	// ignored; the address comes from IPAddress or Hostname.
	Endpoint    ovirt.Endpoint
	Credentials map[ovirt.AuthRole]ovirt.Credentials

	MetricsHostname string
	MetricsPort     int
	MetricsDatabase string

	GraphRefresh bool
}

// ConnectOptions tunes a single connection. Zero values use the manager settings.
type ConnectOptions struct {
	// Version forces an API version. Zero negotiates.
	Version  ovirt.Version
	Service  ovirt.ServiceRole
	AuthRole ovirt.AuthRole

	Host     string
	Port     string
	Path     string
	Username string
	Password string

	ForceLegacyVersion         bool
	SkipSupportedAPIValidation bool
}

// Manager is one oVirt engine as seen by the platform. It is safe for
// concurrent use; its feature cache belongs to this instance only.
type Manager struct {
	settings    Settings
	opener      ovirt.Opener
	store       EndpointStore
	logger      *slog.Logger
	metrics     *metrics.Metrics
	passwordKey *[32]byte

	verifier        *Verifier
	collector       *inventory.Collector
	verifyHistoryDB func(ctx context.Context, opts HistoryDBOptions) error

	mu      sync.Mutex // guards apiPath
	apiPath string

	featuresMu     sync.Mutex // guards versions and features
	versions       []ovirt.Version
	features       []ovirt.Capability
	featuresLoaded bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics records provider metrics into mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithEndpointStore enables write-back of the negotiated API path.
func WithEndpointStore(s EndpointStore) Option {
	return func(m *Manager) { m.store = s }
}

// WithPasswordKey sets the key used to decrypt "v2:" passwords that do not
// go through the connection factory (history database credentials).
func WithPasswordKey(key *[32]byte) Option {
	return func(m *Manager) { m.passwordKey = key }
}

// WithVerifier replaces the credential verifier.
func WithVerifier(v *Verifier) Option {
	return func(m *Manager) { m.verifier = v }
}

// NewManager creates a manager that opens connections through opener.
func NewManager(settings Settings, opener ovirt.Opener, opts ...Option) *Manager {
	m := &Manager{
		settings:        settings,
		opener:          opener,
		logger:          slog.Default(),
		verifyHistoryDB: pingHistoryDB,
		apiPath:         settings.Endpoint.Path,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("manager", settings.Name)
	if m.verifier == nil {
		m.verifier = NewVerifier(opener, m.logger)
	}
	m.collector = inventory.NewCollector(m.logger, m.metrics)
	return m
}

func (m *Manager) ID() string   { return m.settings.ID }
func (m *Manager) Name() string { return m.settings.Name }

// APIPath returns the API path last written back by Connect.
func (m *Manager) APIPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apiPath
}

// SupportsPort reports that the manager endpoint carries a port.
func (m *Manager) SupportsPort() bool { return true }

// SupportsAuthentication reports whether role is an auth role of oVirt managers.
func (m *Manager) SupportsAuthentication(role string) bool {
	return slices.Contains(ovirt.SupportedAuthRoles(), ovirt.AuthRole(strings.ToLower(role)))
}

// AuthenticationsToValidate lists the auth roles to verify when the manager
// is saved: always default, plus metrics when metrics credentials exist.
func (m *Manager) AuthenticationsToValidate() []ovirt.AuthRole {
	roles := []ovirt.AuthRole{ovirt.AuthDefault}
	if c, ok := m.settings.Credentials[ovirt.AuthMetrics]; ok && c.Username != "" {
		roles = append(roles, ovirt.AuthMetrics)
	}
	return roles
}

// address is the network address of the engine API.
func (m *Manager) address() string {
	if m.settings.IPAddress != "" {
		return m.settings.IPAddress
	}
	return m.settings.Hostname
}

func (m *Manager) endpoint(opts ConnectOptions) ovirt.Endpoint {
	ep := m.settings.Endpoint
	ep.Host = m.address()
	ep.Path = m.APIPath()
	if opts.Host != "" {
		ep.Host = opts.Host
	}
	if opts.Port != "" {
		ep.Port = opts.Port
	}
	if opts.Path != "" {
		ep.Path = opts.Path
	}
	return ep
}

func (m *Manager) credentials(opts ConnectOptions) ovirt.Credentials {
	role := opts.AuthRole
	if role == "" {
		role = ovirt.AuthDefault
	}
	creds := m.settings.Credentials[role]
	creds.AuthRole = role
	if opts.Username != "" {
		creds.Username = opts.Username
	}
	if opts.Password != "" {
		creds.Password = opts.Password
	}
	return creds
}

// Connect opens a connection for opts and writes the API path back to the
// endpoint store. The caller owns the connection.
func (m *Manager) Connect(ctx context.Context, opts ConnectOptions) (ovirt.Connection, error) {
	if strings.TrimSpace(m.address()) == "" && opts.Host == "" {
		return nil, ovirt.ConnectFailure("manager %q has no hostname or IP address", m.settings.Name)
	}

	version, err := m.selectVersion(ctx, opts)
	if err != nil {
		return nil, err
	}

	service := opts.Service
	if service == "" {
		service = ovirt.ServiceDefault
	}
	ep := m.endpoint(opts)
	conn, err := m.opener.Open(version, ep, m.credentials(opts), service)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordConnection(version.String(), string(service))

	m.writeBackPath(ep.Normalize().Path)
	return conn, nil
}

// selectVersion picks the API version of a connection.
func (m *Manager) selectVersion(ctx context.Context, opts ConnectOptions) (ovirt.Version, error) {
	switch {
	case opts.ForceLegacyVersion:
		return ovirt.V3, nil
	case opts.Version != 0:
		if !opts.SkipSupportedAPIValidation {
			if err := m.validateVersion(ctx, opts.Version); err != nil {
				return 0, err
			}
		}
		return opts.Version, nil
	case opts.SkipSupportedAPIValidation:
		return ovirt.V4, nil
	}

	versions, err := m.SupportedVersions(ctx)
	if err != nil {
		return 0, err
	}
	return versions[len(versions)-1], nil
}

func (m *Manager) validateVersion(ctx context.Context, v ovirt.Version) error {
	versions, err := m.SupportedVersions(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(versions, v) {
		return ovirt.ConnectFailure("API version %s is not supported by manager %q", v, m.settings.Name)
	}
	return nil
}

func (m *Manager) writeBackPath(path string) {
	m.mu.Lock()
	changed := m.apiPath != path
	m.apiPath = path
	m.mu.Unlock()

	if m.store == nil || !changed {
		return
	}
	if err := m.store.SaveAPIPath(m.settings.ID, path); err != nil {
		m.logger.Warn("Failed to save API path", "path", path, "error", err)
	}
}

// WithConnection opens a connection, passes it to fn and always releases it.
// Release errors are logged, never returned.
func (m *Manager) WithConnection(ctx context.Context, opts ConnectOptions, fn func(ovirt.Connection) error) error {
	m.logger.Info("Connecting to manager", "id", m.settings.ID)
	conn, err := m.Connect(ctx, opts)
	if err != nil {
		return err
	}
	defer m.release(conn)
	return fn(conn)
}

func (m *Manager) release(conn ovirt.Connection) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		m.logger.Error("Error while disconnecting", "error", err)
		m.metrics.RecordDisconnectError()
	}
}

// historyHost returns the address of the history database: the override,
// then the metrics endpoint, then the manager hostname.
func (m *Manager) historyHost(override string) string {
	switch {
	case override != "":
		return override
	case m.settings.MetricsHostname != "":
		return m.settings.MetricsHostname
	case m.settings.Hostname != "":
		return m.settings.Hostname
	default:
		return m.settings.IPAddress
	}
}

