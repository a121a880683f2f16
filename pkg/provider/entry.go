package provider

import (
	"context"
	"strings"
	"time"

	"github.com/agrare/foreman-providers-ovirt/internal/utils"
	"github.com/agrare/foreman-providers-ovirt/pkg/inventory"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

// VerifyOptions are the options of VerifyCredentials. Supported API
// validation is always skipped while verifying.
type VerifyOptions struct {
	SkipSupportedAPIValidation bool
	ForceLegacyVersion         bool
	// HostnameOverride replaces the history database host (metrics role).
	HostnameOverride string
	// DatabaseOverride replaces the history database name (metrics role).
	DatabaseOverride string

	// Username and Password replace the stored credentials of the role.
	Username string
	Password string
}

// VerifyCredentials checks the credentials of authRole ("" means default).
// Any failure is a classified *ovirt.Error.
func (m *Manager) VerifyCredentials(ctx context.Context, authRole string, opts VerifyOptions) error {
	opts.SkipSupportedAPIValidation = true
	role := ovirt.AuthRole(strings.ToLower(strings.TrimSpace(authRole)))
	if role == "" {
		role = ovirt.AuthDefault
	}

	var err error
	switch role {
	case ovirt.AuthDefault:
		err = m.verifyAPI(ctx, opts)
	case ovirt.AuthMetrics:
		err = m.verifyMetrics(ctx, opts)
	default:
		err = ovirt.NewError(ovirt.KindLoginError, "Invalid authentication type: "+authRole, nil)
	}

	result := "success"
	if err != nil {
		result = string(ovirt.KindOf(err))
	}
	m.metrics.RecordVerification(string(role), result)
	return err
}

func (m *Manager) verifyAPI(ctx context.Context, opts VerifyOptions) error {
	copts := ConnectOptions{
		AuthRole: ovirt.AuthDefault,
		Username: opts.Username,
		Password: opts.Password,
	}
	if strings.TrimSpace(m.address()) == "" {
		return ovirt.ConnectFailure("manager %q has no hostname or IP address", m.settings.Name)
	}
	m.logger.Info("Verifying credentials", "role", string(ovirt.AuthDefault))
	return m.verifier.Verify(ctx, m.credentials(copts), m.endpoint(copts), opts.ForceLegacyVersion)
}

func (m *Manager) verifyMetrics(ctx context.Context, opts VerifyOptions) error {
	dbOpts := m.MetricsConnectOptions(opts)
	if dbOpts.Host == "" {
		return ovirt.ConnectFailure("manager %q has no history database host", m.settings.Name)
	}
	password, err := utils.TryDecryptPassword(dbOpts.Password, m.passwordKey)
	if err != nil {
		return ovirt.NewError(ovirt.KindConnectFailure, "cannot decrypt password", err)
	}
	dbOpts.Password = password

	m.logger.Info("Verifying credentials",
		"role", string(ovirt.AuthMetrics),
		"host", dbOpts.Host,
		"database", dbOpts.Database,
	)
	if err := m.verifyHistoryDB(ctx, dbOpts); err != nil {
		return classifyHistoryDBError(err, m.logger)
	}
	return nil
}

// Refresh resolves targets and collects a payload for each resolved target
// over a single inventory connection.
func (m *Manager) Refresh(ctx context.Context, targets []inventory.Target) (*inventory.Result, error) {
	start := time.Now()
	resolved := inventory.Resolve(m.settings.ID, targets, m.settings.GraphRefresh, m.logger)
	if len(resolved) == 0 {
		return &inventory.Result{ManagerID: m.settings.ID}, nil
	}

	m.logger.Info("Refreshing inventory", "targets", len(resolved))
	open := func(ctx context.Context) (ovirt.Connection, error) {
		return m.Connect(ctx, ConnectOptions{Service: ovirt.ServiceInventory})
	}
	res, err := m.collector.Fetch(ctx, m.settings.ID, open, resolved)
	m.metrics.ObserveRefresh(m.settings.Name, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Refresh complete", "targets", len(res.Entries), "duration", time.Since(start).Round(time.Millisecond).String())
	return res, nil
}
