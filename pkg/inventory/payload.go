package inventory

import (
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

// EntityKind names a slot of a payload.
type EntityKind string

const (
	EntityHost     EntityKind = "host"
	EntityVM       EntityKind = "vm"
	EntityTemplate EntityKind = "template"
	EntityCluster  EntityKind = "cluster"
)

// EntityKinds lists every payload slot.
func EntityKinds() []EntityKind {
	return []EntityKind{EntityHost, EntityVM, EntityTemplate, EntityCluster}
}

// Power states of VMs.
const (
	PowerOn        = "on"
	PowerOff       = "off"
	PowerSuspended = "suspended"
	PowerUnknown   = "unknown"
)

var powerStates = map[string]string{
	"up":        PowerOn,
	"down":      PowerOff,
	"suspended": PowerSuspended,
}

// PowerState maps a raw VM status to a power state.
func PowerState(raw string) string {
	if s, ok := powerStates[raw]; ok {
		return s
	}
	return PowerUnknown
}

// Record is one normalized inventory object.
type Record struct {
	EmsRef      string `yaml:"ems_ref" json:"ems_ref"`
	UID         string `yaml:"uid_ems" json:"uid_ems"`
	Name        string `yaml:"name" json:"name"`
	Status      string `yaml:"raw_power_state,omitempty" json:"raw_power_state,omitempty"`
	PowerState  string `yaml:"power_state,omitempty" json:"power_state,omitempty"`
	Address     string `yaml:"address,omitempty" json:"address,omitempty"`
	MemoryBytes int64  `yaml:"memory_bytes,omitempty" json:"memory_bytes,omitempty"`

	HostRef       string `yaml:"host_ref,omitempty" json:"host_ref,omitempty"`
	ClusterRef    string `yaml:"cluster_ref,omitempty" json:"cluster_ref,omitempty"`
	TemplateRef   string `yaml:"template_ref,omitempty" json:"template_ref,omitempty"`
	DataCenterRef string `yaml:"datacenter_ref,omitempty" json:"datacenter_ref,omitempty"`
}

// Payload is the refresh data of one target. A nil slot means "looked and
// found nothing for this target"; an empty slot means the engine has no
// objects of that kind.
type Payload struct {
	Slots      map[EntityKind][]Record `yaml:"slots" json:"slots"`
	APIVersion string                  `yaml:"api_version" json:"api_version"`
}

// NewPayload normalizes raw inventory into a payload tagged with apiVersion.
// Every slot is present and non-nil.
func NewPayload(inv *ovirt.Inventory, apiVersion string) Payload {
	p := Payload{
		Slots:      make(map[EntityKind][]Record, len(EntityKinds())),
		APIVersion: apiVersion,
	}
	for _, k := range EntityKinds() {
		p.Slots[k] = []Record{}
	}
	if inv == nil {
		return p
	}

	for _, h := range inv.Hosts {
		p.Slots[EntityHost] = append(p.Slots[EntityHost], Record{
			EmsRef:     ovirt.ToReferenceKey(h.Href),
			UID:        uid(h.ID, h.Href),
			Name:       h.Name,
			Status:     h.Status,
			Address:    h.Address,
			ClusterRef: ovirt.ToReferenceKey(h.ClusterHref),
		})
	}
	for _, v := range inv.VMs {
		p.Slots[EntityVM] = append(p.Slots[EntityVM], Record{
			EmsRef:      ovirt.ToReferenceKey(v.Href),
			UID:         uid(v.ID, v.Href),
			Name:        v.Name,
			Status:      v.Status,
			PowerState:  PowerState(v.Status),
			MemoryBytes: v.MemoryBytes,
			HostRef:     ovirt.ToReferenceKey(v.HostHref),
			ClusterRef:  ovirt.ToReferenceKey(v.ClusterHref),
			TemplateRef: ovirt.ToReferenceKey(v.TemplateHref),
		})
	}
	for _, t := range inv.Templates {
		p.Slots[EntityTemplate] = append(p.Slots[EntityTemplate], Record{
			EmsRef:     ovirt.ToReferenceKey(t.Href),
			UID:        uid(t.ID, t.Href),
			Name:       t.Name,
			Status:     t.Status,
			ClusterRef: ovirt.ToReferenceKey(t.ClusterHref),
		})
	}
	for _, c := range inv.Clusters {
		p.Slots[EntityCluster] = append(p.Slots[EntityCluster], Record{
			EmsRef:        ovirt.ToReferenceKey(c.Href),
			UID:           uid(c.ID, c.Href),
			Name:          c.Name,
			DataCenterRef: ovirt.ToReferenceKey(c.DataCenterHref),
		})
	}
	return p
}

func uid(id, href string) string {
	if id != "" {
		return id
	}
	return ovirt.IDSuffix(href)
}

// slotFor returns the slot that holds the record of a sub-entity target.
func slotFor(t Target) (EntityKind, bool) {
	switch t.Kind {
	case KindHost:
		return EntityHost, true
	case KindVmOrTemplate:
		if t.Template {
			return EntityTemplate, true
		}
		return EntityVM, true
	default:
		return "", false
	}
}

// Contains reports whether the record t asks for is present in p.
// Targets that are not sub-entities are always considered present.
func (p Payload) Contains(t Target) bool {
	kind, ok := slotFor(t)
	if !ok {
		return true
	}
	if t.ID == "" {
		return false
	}
	ref := ovirt.ToReferenceKey(t.ID)
	for _, r := range p.Slots[kind] {
		if r.EmsRef == ref || r.UID == t.ID {
			return true
		}
	}
	return false
}

// Clear sets every slot to nil, keeping the keys.
func (p *Payload) Clear() {
	if p.Slots == nil {
		p.Slots = make(map[EntityKind][]Record, len(EntityKinds()))
	}
	for _, k := range EntityKinds() {
		p.Slots[k] = nil
	}
}

// NotFound reports whether p was cleared because its target is gone.
func (p Payload) NotFound() bool {
	if len(p.Slots) == 0 {
		return false
	}
	for _, records := range p.Slots {
		if records != nil {
			return false
		}
	}
	return true
}

// Entry pairs a resolved target with its payload.
type Entry struct {
	Target  Target  `yaml:"target" json:"target"`
	Payload Payload `yaml:"payload" json:"payload"`
}

// Result is the outcome of one refresh cycle, in resolved target order.
type Result struct {
	ManagerID string  `yaml:"manager_id" json:"manager_id"`
	Entries   []Entry `yaml:"entries" json:"entries"`
}

// Lookup returns the payload of t.
func (r *Result) Lookup(t Target) (Payload, bool) {
	key := t.Key()
	for _, e := range r.Entries {
		if e.Target.Key() == key {
			return e.Payload, true
		}
	}
	return Payload{}, false
}
