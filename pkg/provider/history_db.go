package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agrare/foreman-providers-ovirt/configs"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

// PostgreSQL error codes that reject the login itself.
const (
	pgInvalidPassword                   = "28P01"
	pgInvalidAuthorizationSpecification = "28000"
)

// HistoryDBOptions locates the engine history database used by the
// metrics auth role.
type HistoryDBOptions struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// ConnString renders opts as a PostgreSQL URL.
func (o HistoryDBOptions) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(o.Username, o.Password),
		Host:   net.JoinHostPort(o.Host, strconv.Itoa(o.Port)),
		Path:   "/" + o.Database,
	}
	if o.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {o.SSLMode}}.Encode()
	}
	return u.String()
}

// MetricsConnectOptions resolves the history database connection for the metrics
// role. Overrides win over the metrics endpoint, which wins over the manager.
func (m *Manager) MetricsConnectOptions(opts VerifyOptions) HistoryDBOptions {
	d := configs.Defaults.History
	creds := m.settings.Credentials[ovirt.AuthMetrics]

	o := HistoryDBOptions{
		Host:     m.historyHost(opts.HostnameOverride),
		Port:     d.Port,
		Database: d.Name,
		Username: creds.Username,
		Password: creds.Password,
		SSLMode:  d.SSLMode,
	}
	if m.settings.MetricsPort != 0 {
		o.Port = m.settings.MetricsPort
	}
	if m.settings.MetricsDatabase != "" {
		o.Database = m.settings.MetricsDatabase
	}
	if opts.DatabaseOverride != "" {
		o.Database = opts.DatabaseOverride
	}
	if opts.Username != "" {
		o.Username = opts.Username
	}
	if opts.Password != "" {
		o.Password = opts.Password
	}
	return o
}

// pingHistoryDB connects to the history database and pings it.
func pingHistoryDB(ctx context.Context, opts HistoryDBOptions) error {
	cfg, err := pgx.ParseConfig(opts.ConnString())
	if err != nil {
		return ovirt.NewError(ovirt.KindConnectFailure, "invalid history database parameters", err)
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()
	return conn.Ping(ctx)
}

// classifyHistoryDBError maps a history database failure into the
// verification taxonomy.
func classifyHistoryDBError(err error, logger *slog.Logger) *ovirt.Error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInvalidPassword, pgInvalidAuthorizationSpecification:
			return ovirt.NewError(ovirt.KindInvalidCredentials, "Incorrect user name or password.", err)
		}
	}
	return ovirt.HandleVerificationError(fmt.Errorf("history database: %w", err), logger)
}
