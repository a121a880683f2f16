package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrare/foreman-providers-ovirt/pkg/inventory"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

func TestSummarize(t *testing.T) {
	full := inventory.NewPayload(&ovirt.Inventory{
		VMs:   []ovirt.VM{{ID: "v1"}, {ID: "v2"}},
		Hosts: []ovirt.Host{{ID: "h1"}},
	}, "4.4")
	gone := inventory.NewPayload(nil, "4.4")
	gone.Clear()

	res := &inventory.Result{ManagerID: "ems-1", Entries: []inventory.Entry{
		{Target: inventory.VMTarget("ems-1", "x", ""), Payload: gone},
		{Target: inventory.VMTarget("ems-1", "v1", ""), Payload: full},
	}}

	s := Summarize("ems-1", "engine", res, nil)
	assert.Equal(t, 2, s.Targets)
	assert.Equal(t, 1, s.NotFound)
	assert.Equal(t, "4.4", s.APIVersion)
	assert.Equal(t, 2, s.Records["vm"])
	assert.Equal(t, 1, s.Records["host"])
	assert.Equal(t, 0, s.Records["cluster"])
}

func TestSummarizeError(t *testing.T) {
	err := ovirt.NewError(ovirt.KindInventoryUnavailable, "Unable to connect", nil)
	s := Summarize("ems-1", "engine", nil, err)
	assert.Equal(t, "inventory_unavailable", s.ErrorKind)
	assert.Equal(t, "Unable to connect", s.Error)

	summary := RefreshSummary{RunID: "r", Managers: []ManagerSummary{s}}
	assert.True(t, summary.Failed())
}

func TestSaveAndLoadRefreshSummary(t *testing.T) {
	in := RefreshSummary{
		RunID:     "4a0e9b52-37c4-4a8e-9d36-3c8f0f7b1c11",
		StartedAt: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
		Duration:  "1.5s",
		Managers: []ManagerSummary{
			{ID: "ems-1", Name: "engine", APIVersion: "4.4", Targets: 1, Records: map[string]int{"vm": 2}},
		},
	}

	for _, name := range []string{"summary.yaml", "summary.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", name)
			require.NoError(t, SaveRefreshSummary(path, in))

			out, err := LoadRefreshSummary(path)
			require.NoError(t, err)
			assert.Equal(t, in, out)
			assert.False(t, out.Failed())
		})
	}
}

func TestRefreshSummaryValidate(t *testing.T) {
	assert.Error(t, RefreshSummary{}.Validate())
	assert.Error(t, RefreshSummary{RunID: "r", Managers: []ManagerSummary{{}}}.Validate())
	assert.Error(t, RefreshSummary{RunID: "r", Managers: []ManagerSummary{{ID: "a", Targets: 1, NotFound: 2}}}.Validate())
	assert.NoError(t, RefreshSummary{RunID: "r"}.Validate())
}
