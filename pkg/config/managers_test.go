package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

const managersYAML = `managers:
  - id: ems-1
    name: engine
    hostname: engine.example.com
    port: 8443
    verify_ssl: true
    credentials:
      default:
        username: admin@internal
        password: secret
      metrics:
        username: ovirt_engine_history
        password: dwh
    metrics:
      hostname: dwh.example.com
  - name: lab
    ipaddress: 10.0.0.5
    port: "443"
    graph_refresh: true
    credentials:
      default:
        username: admin@internal
        password: secret
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadManagersYAML(t *testing.T) {
	f, err := LoadManagers(writeFile(t, "managers.yaml", managersYAML))
	require.NoError(t, err)
	require.Len(t, f.Managers, 2)

	engine := f.Managers[0]
	assert.Equal(t, Port("8443"), engine.Port)
	assert.Equal(t, "dwh.example.com", engine.Metrics.Hostname)

	lab, ok := f.Find("lab")
	require.True(t, ok)
	assert.Equal(t, StableID("lab"), lab.ID)
	assert.Equal(t, Port("443"), lab.Port)
	assert.True(t, lab.GraphRefresh)
}

func TestLoadManagersJSON(t *testing.T) {
	content := `{"managers":[{"name":"engine","hostname":"e","port":443,"credentials":{"default":{"username":"u","password":"p"}}}]}`
	f, err := LoadManagers(writeFile(t, "managers.json", content))
	require.NoError(t, err)
	assert.Equal(t, Port("443"), f.Managers[0].Port)
}

func TestLoadManagersInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Missing name", "managers:\n  - hostname: e\n    credentials: {default: {username: u}}\n"},
		{"Missing address", "managers:\n  - name: e\n    credentials: {default: {username: u}}\n"},
		{"Bad port", "managers:\n  - name: e\n    hostname: e\n    port: https\n    credentials: {default: {username: u}}\n"},
		{"Unknown role", "managers:\n  - name: e\n    hostname: e\n    credentials: {default: {username: u}, amqp: {username: u}}\n"},
		{"No default credentials", "managers:\n  - name: e\n    hostname: e\n"},
		{"Duplicate id", "managers:\n  - {id: a, name: e, hostname: e, credentials: {default: {username: u}}}\n  - {id: a, name: f, hostname: f, credentials: {default: {username: u}}}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManagers(writeFile(t, "managers.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestManagerEntrySettings(t *testing.T) {
	f, err := LoadManagers(writeFile(t, "managers.yaml", managersYAML))
	require.NoError(t, err)

	s := f.Managers[0].Settings()
	assert.Equal(t, "ems-1", s.ID)
	assert.Equal(t, "engine.example.com", s.Hostname)
	assert.Equal(t, "8443", s.Endpoint.Port)
	assert.True(t, s.Endpoint.VerifySSL)
	assert.Equal(t, "dwh.example.com", s.MetricsHostname)
	assert.Equal(t, ovirt.Credentials{Username: "ovirt_engine_history", Password: "dwh", AuthRole: ovirt.AuthMetrics}, s.Credentials[ovirt.AuthMetrics])
}

func TestSaveManagersRoundTrip(t *testing.T) {
	for _, name := range []string{"managers.yaml", "managers.json"} {
		t.Run(name, func(t *testing.T) {
			in, err := LoadManagers(writeFile(t, "in.yaml", managersYAML))
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, SaveManagers(path, in))

			out, err := LoadManagers(path)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestFileStoreSaveAPIPath(t *testing.T) {
	path := writeFile(t, "managers.yaml", managersYAML)
	store := NewFileStore(path)

	require.NoError(t, store.SaveAPIPath("ems-1", "/ovirt-engine/api"))
	require.NoError(t, store.SaveAPIPath(StableID("lab"), "/api"))

	f, err := LoadManagers(path)
	require.NoError(t, err)
	assert.Equal(t, "/ovirt-engine/api", f.Managers[0].Path)
	assert.Equal(t, "/api", f.Managers[1].Path)

	assert.Error(t, store.SaveAPIPath("missing", "/api"))
}

func TestLoadManagersSOPS(t *testing.T) {
	orig := sopsDecrypt
	t.Cleanup(func() { sopsDecrypt = orig })

	var gotPath string
	sopsDecrypt = func(path string) ([]byte, error) {
		gotPath = path
		return []byte(managersYAML), nil
	}

	f, err := LoadManagers("configs/managers.sops.yaml")
	require.NoError(t, err)
	assert.Len(t, f.Managers, 2)
	assert.Equal(t, "configs/managers.sops.yaml", gotPath)

	sopsDecrypt = func(path string) ([]byte, error) { return nil, errors.New("no key") }
	_, err = LoadManagers("configs/managers.sops.yaml")
	assert.ErrorContains(t, err, "no key")
}

func TestSaveManagersSOPS(t *testing.T) {
	orig := sopsEncrypt
	t.Cleanup(func() { sopsEncrypt = orig })

	var plaintext []byte
	sopsEncrypt = func(path string, content []byte) error {
		plaintext = content
		return nil
	}

	in, err := LoadManagers(writeFile(t, "in.yaml", managersYAML))
	require.NoError(t, err)
	require.NoError(t, SaveManagers(filepath.Join(t.TempDir(), "managers.sops.yaml"), in))
	assert.Contains(t, string(plaintext), "engine.example.com")
}
