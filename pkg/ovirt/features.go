package ovirt

import "github.com/agrare/foreman-providers-ovirt/configs"

// Capability is an optional platform operation gated by API version.
type Capability string

const (
	CapMigrate          Capability = "migrate"
	CapQuickStats       Capability = "quick_stats"
	CapReconfigureDisks Capability = "reconfigure_disks"
	CapSnapshots        Capability = "snapshots"
	CapPublish          Capability = "publish"
)

// FeaturesFor returns the static capability set of an API version.
// Version 3 exposes none.
func FeaturesFor(v Version) []Capability {
	names := configs.Defaults.Features[v.String()]
	out := make([]Capability, 0, len(names))
	for _, n := range names {
		out = append(out, Capability(n))
	}
	return out
}

// UnionFeatures merges the capability sets of versions, keeping first-seen order.
func UnionFeatures(versions []Version) []Capability {
	seen := make(map[Capability]bool)
	var out []Capability
	for _, v := range versions {
		for _, c := range FeaturesFor(v) {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
