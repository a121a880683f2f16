// Package inventory resolves refresh targets for an oVirt manager and
// collects normalized inventory payloads for them.
package inventory

import (
	"strings"
)

// TargetKind tags the variant of a Target.
type TargetKind string

const (
	KindManager      TargetKind = "manager"
	KindHost         TargetKind = "host"
	KindVmOrTemplate TargetKind = "vm_or_template"
	KindGroup        TargetKind = "group"
)

// Target is a unit of inventory to refresh: the whole manager, a single
// host, a single VM or template, or a group of sub-entity targets.
type Target struct {
	Kind      TargetKind `yaml:"kind" json:"kind"`
	ManagerID string     `yaml:"manager_id" json:"manager_id"`
	// ID is the reference key ("/api/vms/123") or the bare id of the entity.
	ID       string   `yaml:"id,omitempty" json:"id,omitempty"`
	Name     string   `yaml:"name,omitempty" json:"name,omitempty"`
	Template bool     `yaml:"template,omitempty" json:"template,omitempty"`
	Children []Target `yaml:"children,omitempty" json:"children,omitempty"`
}

// ManagerTarget requests a full refresh of a manager.
func ManagerTarget(managerID, name string) Target {
	return Target{Kind: KindManager, ManagerID: managerID, ID: managerID, Name: name}
}

// HostTarget requests a refresh of one host.
func HostTarget(managerID, id, name string) Target {
	return Target{Kind: KindHost, ManagerID: managerID, ID: id, Name: name}
}

// VMTarget requests a refresh of one VM.
func VMTarget(managerID, id, name string) Target {
	return Target{Kind: KindVmOrTemplate, ManagerID: managerID, ID: id, Name: name}
}

// TemplateTarget requests a refresh of one template.
func TemplateTarget(managerID, id, name string) Target {
	return Target{Kind: KindVmOrTemplate, ManagerID: managerID, ID: id, Name: name, Template: true}
}

// GroupTarget batches sub-entity targets of one manager into a single fetch.
func GroupTarget(managerID string, children []Target) Target {
	return Target{Kind: KindGroup, ManagerID: managerID, Name: "target_collection", Children: children}
}

// Key returns a stable identity for t. Two targets with the same key are
// the same request.
func (t Target) Key() string {
	switch t.Kind {
	case KindGroup:
		keys := make([]string, len(t.Children))
		for i, c := range t.Children {
			keys[i] = c.Key()
		}
		return "group:" + t.ManagerID + ":[" + strings.Join(keys, ",") + "]"
	case KindVmOrTemplate:
		if t.Template {
			return "template:" + t.ManagerID + ":" + t.ID
		}
		return "vm:" + t.ManagerID + ":" + t.ID
	default:
		return string(t.Kind) + ":" + t.ManagerID + ":" + t.ID
	}
}

// IsSubEntity reports whether t names something below the manager.
func (t Target) IsSubEntity() bool {
	return t.Kind == KindHost || t.Kind == KindVmOrTemplate
}

// Targeted reports whether a refresh of t must apply the strict absence
// rule: the entity was asked for by identity, so its absence means it is gone.
func (t Target) Targeted() bool {
	return t.IsSubEntity()
}

// String renders t for log lines.
func (t Target) String() string {
	if t.Name != "" {
		return string(t.Kind) + " [" + t.Name + "] id: [" + t.ID + "]"
	}
	return string(t.Kind) + " id: [" + t.ID + "]"
}
