package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const mgr = "ems-1"

func TestResolve_ManagerSupersedesAll(t *testing.T) {
	whole := ManagerTarget(mgr, "engine")
	in := []Target{
		HostTarget(mgr, "/api/hosts/a", "A"),
		VMTarget(mgr, "/api/vms/b", "B"),
		whole,
	}

	for _, graph := range []bool{false, true} {
		got := Resolve(mgr, in, graph, nil)
		assert.Equal(t, []Target{whole}, got, "graph=%v", graph)
	}
}

func TestResolve_DedupesInInsertionOrder(t *testing.T) {
	a := HostTarget(mgr, "/api/hosts/a", "A")
	b := VMTarget(mgr, "/api/vms/b", "B")
	tb := TemplateTarget(mgr, "/api/vms/b", "B")

	got := Resolve(mgr, []Target{b, a, b, tb, a}, false, nil)
	assert.Equal(t, []Target{b, a, tb}, got)
}

func TestResolve_GraphBatchesSubEntities(t *testing.T) {
	a := HostTarget(mgr, "/api/hosts/a", "A")
	b := VMTarget(mgr, "/api/vms/b", "B")
	c := VMTarget(mgr, "/api/vms/c", "C")

	got := Resolve(mgr, []Target{a, b, c, b}, true, nil)
	if assert.Len(t, got, 1) {
		assert.Equal(t, KindGroup, got[0].Kind)
		assert.Equal(t, mgr, got[0].ManagerID)
		assert.Equal(t, []Target{a, b, c}, got[0].Children)
	}
}

func TestResolve_IgnoresOtherManagers(t *testing.T) {
	a := HostTarget(mgr, "/api/hosts/a", "A")
	other := ManagerTarget("ems-2", "other")

	got := Resolve(mgr, []Target{other, a}, false, nil)
	assert.Equal(t, []Target{a}, got)
}

func TestResolve_Empty(t *testing.T) {
	assert.Empty(t, Resolve(mgr, nil, false, nil))
	assert.Empty(t, Resolve(mgr, nil, true, nil))
}

func TestResolve_Idempotent(t *testing.T) {
	a := HostTarget(mgr, "/api/hosts/a", "A")
	b := VMTarget(mgr, "/api/vms/b", "B")
	tpl := TemplateTarget(mgr, "/api/templates/t", "T")
	whole := ManagerTarget(mgr, "engine")

	sets := [][]Target{
		nil,
		{a},
		{a, b, a},
		{b, tpl, a},
		{a, whole, b},
		{whole},
		{GroupTarget(mgr, []Target{a}), b},
	}

	for _, graph := range []bool{false, true} {
		for _, set := range sets {
			once := Resolve(mgr, set, graph, nil)
			twice := Resolve(mgr, once, graph, nil)
			assert.Equal(t, once, twice, "graph=%v set=%v", graph, set)
		}
	}
}

func TestResolve_GraphMergesExistingGroup(t *testing.T) {
	a := HostTarget(mgr, "/api/hosts/a", "A")
	b := VMTarget(mgr, "/api/vms/b", "B")

	got := Resolve(mgr, []Target{GroupTarget(mgr, []Target{a}), b, a}, true, nil)
	if assert.Len(t, got, 1) {
		assert.Equal(t, []Target{a, b}, got[0].Children)
	}
}

func TestGroupByManager(t *testing.T) {
	a1 := HostTarget("m1", "a", "")
	b2 := VMTarget("m2", "b", "")
	c1 := VMTarget("m1", "c", "")

	got := GroupByManager([]Target{a1, b2, c1})
	assert.Equal(t, []ManagerTargets{
		{ManagerID: "m1", Targets: []Target{a1, c1}},
		{ManagerID: "m2", Targets: []Target{b2}},
	}, got)
	assert.Empty(t, GroupByManager(nil))
}

func TestTargetKey(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{"Manager", ManagerTarget(mgr, "engine"), "manager:ems-1:ems-1"},
		{"Host", HostTarget(mgr, "/api/hosts/a", "A"), "host:ems-1:/api/hosts/a"},
		{"VM", VMTarget(mgr, "/api/vms/b", ""), "vm:ems-1:/api/vms/b"},
		{"Template", TemplateTarget(mgr, "/api/vms/b", ""), "template:ems-1:/api/vms/b"},
		{"Group", GroupTarget(mgr, []Target{HostTarget(mgr, "a", "")}), "group:ems-1:[host:ems-1:a]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.Key())
		})
	}
}

func TestTargetTargeted(t *testing.T) {
	assert.True(t, HostTarget(mgr, "a", "").Targeted())
	assert.True(t, VMTarget(mgr, "a", "").Targeted())
	assert.False(t, ManagerTarget(mgr, "").Targeted())
	assert.False(t, GroupTarget(mgr, nil).Targeted())
}
