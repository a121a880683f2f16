package ovirt

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrare/foreman-providers-ovirt/configs"
	"github.com/agrare/foreman-providers-ovirt/internal/utils"
)

// recordingFactory returns a factory whose dialers capture their parameters.
func recordingFactory(key *[32]byte) (*Factory, *v3Params, *v4Params) {
	var got3 v3Params
	var got4 v4Params
	f := NewFactory(slog.Default(), key)
	f.dialV3 = func(p v3Params) (Connection, error) {
		got3 = p
		return &v3Connection{}, nil
	}
	f.dialV4 = func(p v4Params) (Connection, error) {
		got4 = p
		return &v4Connection{}, nil
	}
	return f, &got3, &got4
}

func testEndpoint() Endpoint {
	return Endpoint{Host: "engine.example.com", Port: "8443", VerifySSL: true}
}

func testCreds() Credentials {
	return Credentials{Username: "admin@internal", Password: "secret"}
}

func TestOpen_V3CoercesPortAndFixesPath(t *testing.T) {
	f, got, _ := recordingFactory(nil)
	ep := testEndpoint()
	ep.Path = "/custom/path"

	_, err := f.Open(V3, ep, testCreds(), ServiceInventory)
	require.NoError(t, err)

	assert.Equal(t, 8443, got.Port)
	assert.Equal(t, "/ovirt-engine/api", got.Path)
	assert.Equal(t, "https", got.Scheme)
	assert.Equal(t, "secret", got.Password)
	assert.True(t, got.VerifySSL)
}

func TestOpen_V3InvalidPort(t *testing.T) {
	f, _, _ := recordingFactory(nil)
	ep := testEndpoint()
	ep.Port = "https"

	_, err := f.Open(V3, ep, testCreds(), ServiceDefault)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConnectFailure))
}

func TestOpen_V4BuildsURL(t *testing.T) {
	f, _, got := recordingFactory(nil)

	_, err := f.Open(V4, testEndpoint(), testCreds(), ServiceDefault)
	require.NoError(t, err)

	assert.Equal(t, "https://engine.example.com:8443/ovirt-engine/api", got.URL)
	assert.False(t, got.Insecure)
	assert.Equal(t, ServiceDefault, got.Service)
}

func TestOpen_V4DefaultsPortAndService(t *testing.T) {
	f, _, got := recordingFactory(nil)
	ep := Endpoint{Host: "engine.example.com", Path: "/ovirt-engine/api"}

	_, err := f.Open(V4, ep, testCreds(), "")
	require.NoError(t, err)

	assert.Equal(t, "https://engine.example.com:443/ovirt-engine/api", got.URL)
	assert.True(t, got.Insecure)
	assert.Equal(t, ServiceDefault, got.Service)
}

func TestOpen_EmptyCACertsUsesSystemTrust(t *testing.T) {
	for _, ca := range []string{"", "   \n"} {
		f, got3, got4 := recordingFactory(nil)
		ep := testEndpoint()
		ep.CACerts = ca

		_, err := f.Open(V3, ep, testCreds(), ServiceDefault)
		require.NoError(t, err)
		_, err = f.Open(V4, ep, testCreds(), ServiceDefault)
		require.NoError(t, err)

		assert.Nil(t, got3.CACerts, "v3 CA bundle %q", ca)
		assert.Nil(t, got4.CACerts, "v4 CA bundle %q", ca)
	}
}

func TestOpen_CACertsPassedThrough(t *testing.T) {
	f, _, got := recordingFactory(nil)
	ep := testEndpoint()
	ep.CACerts = "-----BEGIN CERTIFICATE-----\nabc\n-----END CERTIFICATE-----\n"

	_, err := f.Open(V4, ep, testCreds(), ServiceDefault)
	require.NoError(t, err)
	assert.Equal(t, []byte(ep.CACerts), got.CACerts)
}

func TestOpen_DecryptsPassword(t *testing.T) {
	var key [32]byte
	key[0] = 9
	enc, err := utils.EncryptPassword("s3cret", &key)
	require.NoError(t, err)

	f, _, got := recordingFactory(&key)
	creds := testCreds()
	creds.Password = enc

	_, err = f.Open(V4, testEndpoint(), creds, ServiceDefault)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got.Password)
}

func TestOpen_EncryptedPasswordWithoutKey(t *testing.T) {
	var key [32]byte
	enc, err := utils.EncryptPassword("s3cret", &key)
	require.NoError(t, err)

	f, _, _ := recordingFactory(nil)
	creds := testCreds()
	creds.Password = enc

	_, err = f.Open(V4, testEndpoint(), creds, ServiceDefault)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConnectFailure))
}

func TestOpen_InvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		version Version
		ep      Endpoint
		creds   Credentials
	}{
		{"Unsupported version", Version(5), testEndpoint(), testCreds()},
		{"Missing host", V4, Endpoint{}, testCreds()},
		{"Bad scheme", V4, Endpoint{Host: "e", Scheme: "ftp"}, testCreds()},
		{"Missing username", V3, testEndpoint(), Credentials{Password: "x"}},
		{"Bad auth role", V3, testEndpoint(), Credentials{Username: "u", AuthRole: "root"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _, _ := recordingFactory(nil)
			_, err := f.Open(tt.version, tt.ep, tt.creds, ServiceDefault)
			require.Error(t, err)
			assert.Equal(t, KindConnectFailure, KindOf(err))
		})
	}
}

func TestOpen_DialErrorIsConnectFailure(t *testing.T) {
	f, _, _ := recordingFactory(nil)
	f.dialV4 = func(p v4Params) (Connection, error) {
		return nil, errors.New("the URL must not be empty")
	}

	_, err := f.Open(V4, testEndpoint(), testCreds(), ServiceDefault)
	require.Error(t, err)
	assert.Equal(t, KindConnectFailure, KindOf(err))
}

func TestOpen_TimeoutsFollowServiceRole(t *testing.T) {
	f, got3, got4 := recordingFactory(nil)
	f.WithTimeouts(configs.TimeoutDefaults{
		Service:   configs.RoleTimeouts{OpenSeconds: 5, ReadSeconds: 50},
		Inventory: configs.RoleTimeouts{OpenSeconds: 7, ReadSeconds: 70},
	})

	_, err := f.Open(V3, testEndpoint(), testCreds(), ServiceInventory)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, got3.OpenTimeout)
	assert.Equal(t, 70*time.Second, got3.ReadTimeout)

	_, err = f.Open(V4, testEndpoint(), testCreds(), ServiceDefault)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Second, got4.Timeout)
}
