package ovirt

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agrare/foreman-providers-ovirt/configs"
	"github.com/agrare/foreman-providers-ovirt/internal/utils"
)

// v3Params is the parameter set of the legacy API client.
type v3Params struct {
	Scheme      string
	Host        string
	Port        int // 0 = scheme default
	Path        string
	Username    string
	Password    string
	VerifySSL   bool
	CACerts     []byte // nil = system trust store
	OpenTimeout time.Duration
	ReadTimeout time.Duration
}

// v4Params is the parameter set of the go-ovirt SDK connection.
type v4Params struct {
	URL      string
	Username string
	Password string
	Insecure bool
	CACerts  []byte // nil = system trust store
	Timeout  time.Duration
	Service  ServiceRole
}

// Factory is the single place that knows how to build a connection for
// each API version. It does not retry and does not check reachability.
type Factory struct {
	logger      *slog.Logger
	passwordKey *[32]byte
	timeouts    configs.TimeoutDefaults
	validate    *validator.Validate

	dialV3 func(p v3Params) (Connection, error)
	dialV4 func(p v4Params) (Connection, error)
}

// NewFactory creates a factory. passwordKey decrypts "v2:{...}" passwords and
// may be nil when only plain passwords are used.
func NewFactory(logger *slog.Logger, passwordKey *[32]byte) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		logger:      logger,
		passwordKey: passwordKey,
		timeouts:    configs.Defaults.Timeouts,
		validate:    validator.New(),
		dialV3:      newV3Connection,
		dialV4:      newV4Connection,
	}
}

// WithTimeouts returns the factory with per-service-role timeouts replaced.
func (f *Factory) WithTimeouts(t configs.TimeoutDefaults) *Factory {
	f.timeouts = t
	return f
}

// Open builds a connection for version. Success only means the parameters
// were well formed; nothing has been sent to the engine yet.
func (f *Factory) Open(version Version, endpoint Endpoint, creds Credentials, service ServiceRole) (Connection, error) {
	if !version.Valid() {
		return nil, ConnectFailure("unsupported oVirt API version %d", int(version))
	}
	if err := f.validate.Struct(endpoint); err != nil {
		return nil, NewError(KindConnectFailure, fmt.Sprintf("invalid endpoint: %v", err), err)
	}
	if err := f.validate.Struct(creds); err != nil {
		return nil, NewError(KindConnectFailure, fmt.Sprintf("invalid credentials: %v", err), err)
	}

	password, err := utils.TryDecryptPassword(creds.Password, f.passwordKey)
	if err != nil {
		return nil, NewError(KindConnectFailure, "cannot decrypt password", err)
	}

	ep := endpoint.Normalize()
	// An empty bundle must mean "system trust store", never "trust nothing".
	var caCerts []byte
	if strings.TrimSpace(ep.CACerts) != "" {
		caCerts = []byte(ep.CACerts)
	}
	if service == "" {
		service = ServiceDefault
	}
	timeouts := f.timeouts.ForRole(string(service))

	f.logger.Debug("Opening oVirt connection",
		"version", version.String(),
		"host", ep.Host,
		"service", string(service),
	)

	switch version {
	case V3:
		port, err := utils.ParsePort(ep.Port)
		if err != nil {
			return nil, NewError(KindConnectFailure, err.Error(), err)
		}
		conn, err := f.dialV3(v3Params{
			Scheme:      ep.Scheme,
			Host:        ep.Host,
			Port:        port,
			Path:        configs.Defaults.OVirt.APIPath,
			Username:    creds.Username,
			Password:    password,
			VerifySSL:   ep.VerifySSL,
			CACerts:     caCerts,
			OpenTimeout: timeouts.Open(),
			ReadTimeout: timeouts.Read(),
		})
		if err != nil {
			return nil, NewError(KindConnectFailure, fmt.Sprintf("cannot build API v3 connection: %v", err), err)
		}
		return conn, nil
	default:
		u := url.URL{
			Scheme: ep.Scheme,
			Host:   utils.HostPort(ep.Host, ep.Port),
			Path:   ep.Path,
		}
		conn, err := f.dialV4(v4Params{
			URL:      u.String(),
			Username: creds.Username,
			Password: password,
			Insecure: !ep.VerifySSL,
			CACerts:  caCerts,
			Timeout:  timeouts.Read(),
			Service:  service,
		})
		if err != nil {
			return nil, NewError(KindConnectFailure, fmt.Sprintf("cannot build API v4 connection: %v", err), err)
		}
		return conn, nil
	}
}
