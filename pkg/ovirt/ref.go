package ovirt

import (
	"strings"

	"github.com/agrare/foreman-providers-ovirt/configs"
)

// ToReferenceKey converts an API "href" into the stored reference key by
// removing the "/ovirt-engine/" prefix. Stored keys only carry the "/api"
// prefix used by older engines, so keys stay stable across deployments.
// Empty input returns "".
func ToReferenceKey(href string) string {
	if href == "" {
		return ""
	}
	prefix := configs.Defaults.OVirt.LegacyPrefix
	if strings.HasPrefix(href, prefix) {
		return "/" + strings.TrimPrefix(href, prefix)
	}
	return href
}

// IDSuffix returns the last non-empty path segment of href, or "" when there
// is none.
// Example: "/api/vms/123" -> "123"
func IDSuffix(href string) string {
	parts := strings.Split(href, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}
