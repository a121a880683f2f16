package provider

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agrare/foreman-providers-ovirt/internal/metrics"
	"github.com/agrare/foreman-providers-ovirt/internal/utils"
	"github.com/agrare/foreman-providers-ovirt/pkg/inventory"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt/mocks"
)

func TestVerifyCredentials_Default(t *testing.T) {
	opener := &mocks.Opener{}
	opener.On("Open", ovirt.V4, mock.Anything,
		mock.MatchedBy(func(c ovirt.Credentials) bool { return c.Password == "override" }),
		ovirt.ServiceInventory,
	).Return(testConn(nil), nil)

	m := NewManager(testSettings(), opener, WithMetrics(metrics.New()))
	err := m.VerifyCredentials(context.Background(), "", VerifyOptions{Password: "override"})
	require.NoError(t, err)
	opener.AssertExpectations(t)
}

func TestVerifyCredentials_ForceLegacy(t *testing.T) {
	opener := &mocks.Opener{}
	opener.On("Open", ovirt.V3, mock.Anything, mock.Anything, ovirt.ServiceInventory).Return(testConn(nil), nil)

	m := NewManager(testSettings(), opener)
	require.NoError(t, m.VerifyCredentials(context.Background(), "default", VerifyOptions{ForceLegacyVersion: true}))
	opener.AssertNotCalled(t, "Open", ovirt.V4, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyCredentials_InvalidRole(t *testing.T) {
	m := NewManager(testSettings(), &mocks.Opener{})
	err := m.VerifyCredentials(context.Background(), "amqp", VerifyOptions{})
	require.Error(t, err)
	assert.Equal(t, ovirt.KindLoginError, ovirt.KindOf(err))
	assert.Contains(t, err.Error(), "amqp")
}

func TestVerifyCredentials_NoAddress(t *testing.T) {
	s := testSettings()
	s.Hostname = ""
	m := NewManager(s, &mocks.Opener{})

	err := m.VerifyCredentials(context.Background(), "default", VerifyOptions{})
	assert.Equal(t, ovirt.KindConnectFailure, ovirt.KindOf(err))
}

func metricsSettings() Settings {
	s := testSettings()
	s.MetricsHostname = "dwh.example.com"
	s.Credentials[ovirt.AuthMetrics] = ovirt.Credentials{Username: "ovirt_engine_history", Password: "dwh"}
	return s
}

func TestVerifyCredentials_Metrics(t *testing.T) {
	m := NewManager(metricsSettings(), &mocks.Opener{})
	var got HistoryDBOptions
	m.verifyHistoryDB = func(ctx context.Context, opts HistoryDBOptions) error {
		got = opts
		return nil
	}

	require.NoError(t, m.VerifyCredentials(context.Background(), "metrics", VerifyOptions{}))
	assert.Equal(t, HistoryDBOptions{
		Host:     "dwh.example.com",
		Port:     5432,
		Database: "ovirt_engine_history",
		Username: "ovirt_engine_history",
		Password: "dwh",
		SSLMode:  "prefer",
	}, got)
}

func TestVerifyCredentials_MetricsDecryptsPassword(t *testing.T) {
	var key [32]byte
	key[3] = 7
	enc, err := utils.EncryptPassword("dwh-secret", &key)
	require.NoError(t, err)

	s := metricsSettings()
	s.Credentials[ovirt.AuthMetrics] = ovirt.Credentials{Username: "history", Password: enc}
	m := NewManager(s, &mocks.Opener{}, WithPasswordKey(&key))
	var got string
	m.verifyHistoryDB = func(ctx context.Context, opts HistoryDBOptions) error {
		got = opts.Password
		return nil
	}

	require.NoError(t, m.VerifyCredentials(context.Background(), "metrics", VerifyOptions{}))
	assert.Equal(t, "dwh-secret", got)
}

func TestVerifyCredentials_MetricsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ovirt.Kind
	}{
		{"Bad password", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}, ovirt.KindInvalidCredentials},
		{"Unknown role", &pgconn.PgError{Code: "28000", Message: "role does not exist"}, ovirt.KindInvalidCredentials},
		{"Missing database", &pgconn.PgError{Code: "3D000", Message: "database does not exist"}, ovirt.KindLoginError},
		{"Network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ovirt.KindUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(metricsSettings(), &mocks.Opener{})
			m.verifyHistoryDB = func(ctx context.Context, opts HistoryDBOptions) error { return tt.err }

			err := m.VerifyCredentials(context.Background(), "metrics", VerifyOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.want, ovirt.KindOf(err))
		})
	}
}

func TestMetricsConnectOptions_Precedence(t *testing.T) {
	s := metricsSettings()
	s.MetricsPort = 6432
	s.MetricsDatabase = "dwh"
	m := NewManager(s, &mocks.Opener{})

	o := m.MetricsConnectOptions(VerifyOptions{})
	assert.Equal(t, "dwh.example.com", o.Host)
	assert.Equal(t, 6432, o.Port)
	assert.Equal(t, "dwh", o.Database)

	o = m.MetricsConnectOptions(VerifyOptions{HostnameOverride: "db.local", DatabaseOverride: "history", Username: "u"})
	assert.Equal(t, "db.local", o.Host)
	assert.Equal(t, "history", o.Database)
	assert.Equal(t, "u", o.Username)

	s.MetricsHostname = ""
	o = NewManager(s, &mocks.Opener{}).MetricsConnectOptions(VerifyOptions{})
	assert.Equal(t, "engine.example.com", o.Host)
}

func TestHistoryDBOptions_ConnString(t *testing.T) {
	o := HistoryDBOptions{Host: "db", Port: 5432, Database: "ovirt_engine_history", Username: "u", Password: "p@ss", SSLMode: "prefer"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/ovirt_engine_history?sslmode=prefer", o.ConnString())
}

func refreshOpener(inv *ovirt.Inventory) (*mocks.Opener, *mocks.Connection) {
	conn := &mocks.Connection{}
	conn.On("ProductInfo", mock.Anything).Return(&ovirt.ProductInfo{FullVersion: "4.4.10", Major: 4, Minor: 4}, nil)
	conn.On("Inventory", mock.Anything).Return(inv, nil)
	conn.On("Close").Return(nil)
	opener := &mocks.Opener{}
	opener.On("Open", ovirt.V4, mock.Anything, mock.Anything, mock.Anything).Return(conn, nil)
	return opener, conn
}

func TestRefresh_ManagerSupersedesTargets(t *testing.T) {
	opener, conn := refreshOpener(&ovirt.Inventory{VMs: []ovirt.VM{{ID: "b", Href: "/ovirt-engine/api/vms/b", Status: "up"}}})
	m := NewManager(testSettings(), opener)

	whole := inventory.ManagerTarget("ems-1", "engine")
	res, err := m.Refresh(context.Background(), []inventory.Target{
		inventory.HostTarget("ems-1", "/api/hosts/a", "A"),
		inventory.VMTarget("ems-1", "/api/vms/b", "B"),
		whole,
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, whole, res.Entries[0].Target)
	assert.Equal(t, "4.4.10", res.Entries[0].Payload.APIVersion)
	conn.AssertNumberOfCalls(t, "Inventory", 1)
}

func TestRefresh_DeletedVM(t *testing.T) {
	opener, _ := refreshOpener(&ovirt.Inventory{VMs: []ovirt.VM{{ID: "other", Href: "/ovirt-engine/api/vms/other"}}})
	m := NewManager(testSettings(), opener)

	gone := inventory.VMTarget("ems-1", "/api/vms/b", "B")
	res, err := m.Refresh(context.Background(), []inventory.Target{gone})
	require.NoError(t, err)

	p, ok := res.Lookup(gone)
	require.True(t, ok)
	assert.True(t, p.NotFound())
}

func TestRefresh_GraphGroupsTargets(t *testing.T) {
	opener, conn := refreshOpener(&ovirt.Inventory{})
	s := testSettings()
	s.GraphRefresh = true
	m := NewManager(s, opener)

	res, err := m.Refresh(context.Background(), []inventory.Target{
		inventory.HostTarget("ems-1", "/api/hosts/a", "A"),
		inventory.VMTarget("ems-1", "/api/vms/b", "B"),
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, inventory.KindGroup, res.Entries[0].Target.Kind)
	assert.Len(t, res.Entries[0].Target.Children, 2)
	conn.AssertNumberOfCalls(t, "Inventory", 1)
}

func TestRefresh_NoTargets(t *testing.T) {
	opener := &mocks.Opener{}
	m := NewManager(testSettings(), opener)

	res, err := m.Refresh(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	opener.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_UnreachableManager(t *testing.T) {
	opener := &mocks.Opener{}
	opener.On("Open", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("no route to host"))
	m := NewManager(testSettings(), opener, WithMetrics(metrics.New()))

	_, err := m.Refresh(context.Background(), []inventory.Target{inventory.ManagerTarget("ems-1", "engine")})
	require.Error(t, err)
	assert.Equal(t, ovirt.KindInventoryUnavailable, ovirt.KindOf(err))
}

func TestRefresh_InventoryResetIsClassified(t *testing.T) {
	conn := &mocks.Connection{}
	conn.On("ProductInfo", mock.Anything).Return(&ovirt.ProductInfo{FullVersion: "4.4.10", Major: 4, Minor: 4}, nil)
	conn.On("Inventory", mock.Anything).Return(nil, &ovirt.ClientError{Version: ovirt.V4, Err: &net.OpError{
		Op:  "read",
		Net: "tcp",
		Err: errors.New("connection reset by peer"),
	}})
	conn.On("Close").Return(nil)
	opener := &mocks.Opener{}
	opener.On("Open", ovirt.V4, mock.Anything, mock.Anything, mock.Anything).Return(conn, nil)
	m := NewManager(testSettings(), opener)

	_, err := m.Refresh(context.Background(), []inventory.Target{inventory.ManagerTarget("ems-1", "engine")})
	require.Error(t, err)
	assert.Equal(t, ovirt.KindInventoryUnavailable, ovirt.KindOf(err))
	assert.Contains(t, err.Error(), "connection reset by peer")
	conn.AssertCalled(t, "Close")
}
